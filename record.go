package fastq

import (
	"bytes"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/simd"
	gunsafe "github.com/grailbio/base/unsafe"
)

// A Record is a FASTQ read with text fields: a name, a nucleotide sequence,
// and a per-base quality string. Qual may be empty when the record originated
// from a source without qualities; the parser always fills it. Records are
// plain values and compare with ==.
type Record struct {
	Name string
	Seq  string
	Qual string
}

// NewRecord constructs a Record, enforcing that the quality string, when
// present, has the same length as the sequence.
func NewRecord(name, seq, qual string) (Record, error) {
	if qual != "" && len(qual) != len(seq) {
		return Record{}, errors.E(fmt.Sprintf(
			"fastq: in read named %q: length of qualities (%d) and length of sequence (%d) differ",
			shorten(name, 100), len(qual), len(seq)))
	}
	return Record{Name: name, Seq: seq, Qual: qual}, nil
}

// Len returns the length of the sequence.
func (r *Record) Len() int { return len(r.Seq) }

// Slice returns a copy of the record with the sequence cut down to the
// half-open interval [i, j) and the qualities, when present, cut identically.
func (r *Record) Slice(i, j int) Record {
	s := Record{Name: r.Name, Seq: r.Seq[i:j]}
	if r.Qual != "" {
		s.Qual = r.Qual[i:j]
	}
	return s
}

// Mate reports whether other is the paired-end mate of r, comparing the read
// IDs with IDsMatch.
func (r *Record) Mate(other *Record) bool {
	return IDsMatch(gunsafe.StringToBytes(r.Name), gunsafe.StringToBytes(other.Name))
}

// QualBytes returns the qualities as ASCII bytes.
func (r *Record) QualBytes() ([]byte, error) {
	if !isASCII(r.Qual) {
		return nil, errors.E(fmt.Sprintf(
			"fastq: in read named %q: qualities are not ASCII", shorten(r.Name, 100)))
	}
	return []byte(r.Qual), nil
}

// MarshalFastq serializes the record as a four-line FASTQ entry,
//
//	@NAME\nSEQ\n+\nQUAL\n
//
// repeating NAME after the '+' when twoHeaders is set. The output is a single
// allocation of the exact final size. The sequence and qualities must be
// ASCII; the name may additionally carry runes up to U+00FF, which are
// encoded with one byte each.
func (r *Record) MarshalFastq(twoHeaders bool) ([]byte, error) {
	if len(r.Qual) != len(r.Seq) {
		return nil, errors.E(fmt.Sprintf(
			"fastq: in read named %q: length of qualities (%d) and length of sequence (%d) differ",
			shorten(r.Name, 100), len(r.Qual), len(r.Seq)))
	}
	if !isASCII(r.Seq) {
		return nil, errors.E(fmt.Sprintf(
			"fastq: in read named %q: sequence is not ASCII", shorten(r.Name, 100)))
	}
	if !isASCII(r.Qual) {
		return nil, errors.E(fmt.Sprintf(
			"fastq: in read named %q: qualities are not ASCII", shorten(r.Name, 100)))
	}
	name, err := latin1Bytes(r.Name)
	if err != nil {
		return nil, err
	}
	n := len(name) + len(r.Seq) + len(r.Qual) + 6
	if twoHeaders {
		n += len(name)
	}
	out := make([]byte, 0, n)
	out = append(out, '@')
	out = append(out, name...)
	out = append(out, '\n')
	out = append(out, r.Seq...)
	out = append(out, '\n')
	out = append(out, '+')
	if twoHeaders {
		out = append(out, name...)
	}
	out = append(out, '\n')
	out = append(out, r.Qual...)
	out = append(out, '\n')
	return out, nil
}

// A Raw is a FASTQ read with uninterpreted byte fields. Unlike Record, the
// qualities are always present.
type Raw struct {
	Name []byte
	Seq  []byte
	Qual []byte
}

// NewRaw constructs a Raw record, enforcing equal sequence and quality
// lengths.
func NewRaw(name, seq, qual []byte) (Raw, error) {
	if len(qual) != len(seq) {
		return Raw{}, errors.E(fmt.Sprintf(
			"fastq: in read named %q: length of qualities (%d) and length of sequence (%d) differ",
			shorten(latin1String(name), 100), len(qual), len(seq)))
	}
	return Raw{Name: name, Seq: seq, Qual: qual}, nil
}

// Len returns the length of the sequence.
func (r *Raw) Len() int { return len(r.Seq) }

// Equal reports componentwise equality.
func (r *Raw) Equal(other *Raw) bool {
	return bytes.Equal(r.Name, other.Name) &&
		bytes.Equal(r.Seq, other.Seq) &&
		bytes.Equal(r.Qual, other.Qual)
}

// Slice returns a copy of the record with sequence and qualities cut down to
// [i, j).
func (r *Raw) Slice(i, j int) Raw {
	return Raw{Name: r.Name, Seq: r.Seq[i:j], Qual: r.Qual[i:j]}
}

// Mate reports whether other is the paired-end mate of r.
func (r *Raw) Mate(other *Raw) bool {
	return IDsMatch(r.Name, other.Name)
}

// MarshalFastq is the byte-flavor analog of Record.MarshalFastq.
func (r *Raw) MarshalFastq(twoHeaders bool) ([]byte, error) {
	if len(r.Qual) != len(r.Seq) {
		return nil, errors.E(fmt.Sprintf(
			"fastq: in read named %q: length of qualities (%d) and length of sequence (%d) differ",
			shorten(latin1String(r.Name), 100), len(r.Qual), len(r.Seq)))
	}
	n := len(r.Name) + len(r.Seq) + len(r.Qual) + 6
	if twoHeaders {
		n += len(r.Name)
	}
	out := make([]byte, 0, n)
	out = append(out, '@')
	out = append(out, r.Name...)
	out = append(out, '\n')
	out = append(out, r.Seq...)
	out = append(out, '\n')
	out = append(out, '+')
	if twoHeaders {
		out = append(out, r.Name...)
	}
	out = append(out, '\n')
	out = append(out, r.Qual...)
	out = append(out, '\n')
	return out, nil
}

// isASCII reports whether s contains only bytes below 0x80.
func isASCII(s string) bool {
	if len(s) == 0 {
		return true
	}
	return simd.FirstGreater8(gunsafe.StringToBytes(s), 0x7F, 0) == len(s)
}
