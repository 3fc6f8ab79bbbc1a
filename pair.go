package fastq

import (
	"io"

	"github.com/pkg/errors"
)

// PairParser composes a pair of Parsers to pull records from two paired
// FASTQ streams in lock-step. Beyond requiring the streams to hold the same
// number of records, every scanned pair is checked to be mates: their read
// IDs must match modulo the trailing 1/2/3 mate digit.
type PairParser struct {
	r1, r2 *Parser
	err    error
}

// NewPairParser creates a new paired FASTQ parser from the provided R1 and
// R2 readers.
func NewPairParser(r1, r2 io.Reader, opts ...Opt) (*PairParser, error) {
	p1, err := NewParser(r1, opts...)
	if err != nil {
		return nil, err
	}
	p2, err := NewParser(r2, opts...)
	if err != nil {
		return nil, err
	}
	return &PairParser{r1: p1, r2: p2}, nil
}

// Scan scans the next read pair into r1, r2, returning whether it succeeded.
// Once Scan returns false it never returns true again; check Err to tell
// failure from end of stream apart.
func (p *PairParser) Scan(r1, r2 *Record) bool {
	if p.err != nil {
		return false
	}
	ok1 := p.r1.Scan(r1)
	ok2 := p.r2.Scan(r2)
	if ok1 != ok2 && p.r1.Err() == nil && p.r2.Err() == nil {
		p.err = ErrDiscordant
	}
	if !ok1 || !ok2 {
		return false
	}
	if !r1.Mate(r2) {
		p.err = errors.Wrapf(ErrDiscordant, "reads %q and %q are not mates",
			shorten(r1.Name, 100), shorten(r2.Name, 100))
		return false
	}
	return true
}

// NumRecords returns the number of pairs scanned so far.
func (p *PairParser) NumRecords() int {
	n := p.r1.NumRecords()
	if m := p.r2.NumRecords(); m < n {
		n = m
	}
	return n
}

// Err returns the scanning error, if any. It should be checked after Scan
// returns false.
func (p *PairParser) Err() error {
	if err := p.r1.Err(); err != nil {
		return errors.Wrap(err, "error reading R1 input")
	}
	if err := p.r2.Err(); err != nil {
		return errors.Wrap(err, "error reading R2 input")
	}
	return p.err
}
