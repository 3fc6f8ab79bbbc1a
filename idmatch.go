package fastq

import (
	"bytes"
	"unicode/utf8"

	"github.com/grailbio/base/errors"
	gunsafe "github.com/grailbio/base/unsafe"
)

// idEnd returns the length of the ID prefix of a FASTQ header: everything up
// to the first space or tab.
func idEnd(h []byte) int {
	for i, c := range h {
		if c == ' ' || c == '\t' {
			return i
		}
	}
	return len(h)
}

// IDsMatch reports whether two FASTQ headers refer to the same read. The
// comparison covers the ID part only (up to the first space or tab), and a
// trailing '1', '2' or '3' is ignored when both IDs carry one, so that the
// conventional read/1 and read/2 names of a paired-end mate pair compare
// equal.
func IDsMatch(h1, h2 []byte) bool {
	n := idEnd(h2)
	if len(h1) < n {
		return false
	}
	if len(h1) > n && h1[n] != ' ' && h1[n] != '\t' {
		// h1's ID extends past the end of h2's ID.
		return false
	}
	if n > 0 {
		c1, c2 := h1[n-1], h2[n-1]
		if '1' <= c1 && c1 <= '3' && '1' <= c2 && c2 <= '3' {
			n--
		}
	}
	return bytes.Equal(h1[:n], h2[:n])
}

// IDsMatchString is the text variant of IDsMatch. Headers must be single-byte
// encodable: any rune above U+00FF is rejected.
func IDsMatchString(h1, h2 string) (bool, error) {
	b1, err := latin1Bytes(h1)
	if err != nil {
		return false, err
	}
	b2, err := latin1Bytes(h2)
	if err != nil {
		return false, err
	}
	return IDsMatch(b1, b2), nil
}

// latin1Bytes encodes s with one byte per rune. Bytes that are not part of a
// valid UTF-8 encoding pass through verbatim, so text that already holds raw
// single-byte data (as produced by the parser) is returned unchanged. ASCII
// strings are returned without copying.
func latin1Bytes(s string) ([]byte, error) {
	if isASCII(s) {
		return gunsafe.StringToBytes(s), nil
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1: // raw byte, keep verbatim
			b = append(b, s[i])
		case r > 0xFF:
			return nil, errors.E("fastq: text is not single-byte encodable:", shorten(s, 100))
		default:
			b = append(b, byte(r))
		}
		i += size
	}
	return b, nil
}
