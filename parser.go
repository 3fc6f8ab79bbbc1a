package fastq

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// DefaultCapacity is the initial size of a Parser's internal buffer. The
// buffer doubles whenever a single record does not fit, so the value only
// affects how soon growth kicks in.
const DefaultCapacity = 128 * 1024

// maxConsecutiveEmptyReads bounds how often a source may return (0, nil)
// before the parser gives up, mirroring bufio.
const maxConsecutiveEmptyReads = 100

// EventKind discriminates the values produced by Parser.Next.
type EventKind int

const (
	// EventHeader is produced once, before the first record; input that
	// holds no record produces none. Its
	// TwoHeaders field reports whether the input repeats the read name on
	// the '+' line.
	EventHeader EventKind = iota + 1
	// EventRecord carries one parsed record.
	EventRecord
	// EventEnd signals end of stream. It is idempotent.
	EventEnd
)

// An Event is one step of the pull iteration. Exactly one of the payload
// fields is meaningful, selected by Kind and by the record kind the Parser
// was configured with.
type Event struct {
	Kind       EventKind
	TwoHeaders bool
	Record     Record
	Raw        Raw
	Custom     interface{}
}

// A Builder constructs a caller-defined record value from the three parsed
// fields of a read. Structural validation, including the equal-length check
// on sequence and qualities, has already happened when a Builder runs.
type Builder func(name, seq, qual string) (interface{}, error)

type recordKind int

const (
	kindText recordKind = iota
	kindRaw
	kindCustom
)

// An Opt configures a Parser.
type Opt func(*Parser)

// WithCapacity sets the initial buffer capacity in bytes. It must be at
// least 1.
func WithCapacity(n int) Opt {
	return func(p *Parser) { p.capacity = n }
}

// WithRawRecords makes the parser emit Raw (byte flavor) records.
func WithRawRecords() Opt {
	return func(p *Parser) { p.kind = kindRaw }
}

// WithBuilder makes the parser emit records constructed by b.
func WithBuilder(b Builder) Opt {
	return func(p *Parser) { p.kind = kindCustom; p.build = b }
}

// Parser is a streaming FASTQ parser. It pulls bytes from an io.Reader into
// a growable buffer, locates records on line boundaries, validates their
// structure, and emits them one at a time. Parsers are not threadsafe.
//
// Both LF and CRLF line endings are accepted, and a missing newline on the
// final line of the stream is tolerated. Errors carry 0-based line numbers.
type Parser struct {
	src      io.Reader
	capacity int
	kind     recordKind
	build    Builder

	buf     []byte // len(buf) is the current capacity
	filled  int    // buf[:filled] holds unconsumed input
	start   int    // buf[start:filled] is the pending, unparsed region
	n       int    // records parsed so far
	eof     bool
	extraNL bool // a synthetic trailing newline was appended

	headerDone bool
	twoHeaders bool
	pending    *Event // first record, parsed while classifying the header form
	fatal      error

	scanErr error // sticky error for the Scan/Err interface
}

var errEOF = errors.New("eof")

// NewParser constructs a Parser reading from src. The default configuration
// emits text records and starts with DefaultCapacity bytes of buffer.
func NewParser(src io.Reader, opts ...Opt) (*Parser, error) {
	p := &Parser{src: src, capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(p)
	}
	if p.capacity < 1 {
		return nil, gerrors.E(fmt.Sprintf("fastq: buffer capacity must be at least 1, not %d", p.capacity))
	}
	if p.kind == kindCustom && p.build == nil {
		return nil, gerrors.E("fastq: WithBuilder requires a non-nil Builder")
	}
	p.buf = make([]byte, p.capacity)
	return p, nil
}

// NumRecords returns the number of records emitted so far. The header event
// does not count.
func (p *Parser) NumRecords() int {
	if p.pending != nil {
		return p.n - 1
	}
	return p.n
}

// TwoHeaders reports whether the first record of the input repeats the read
// name on its '+' line. It is meaningful once the header event has been
// produced (or, through Scan, once the first record has been scanned).
func (p *Parser) TwoHeaders() bool { return p.twoHeaders }

// Next returns the next event of the stream: a one-shot header event, then
// one event per record, then an idempotent end event. Errors are terminal;
// after a non-nil error every further call returns the same error.
func (p *Parser) Next() (Event, error) {
	if p.fatal != nil {
		return Event{}, p.fatal
	}
	if !p.headerDone {
		// The header form is a property of the first record, so that record
		// is parsed now and held back until the next call.
		ev, err := p.parseNext()
		if err != nil {
			p.fatal = err
			return Event{}, err
		}
		p.headerDone = true
		if ev.Kind == EventEnd { // empty input
			return ev, nil
		}
		p.pending = &ev
		return Event{Kind: EventHeader, TwoHeaders: p.twoHeaders}, nil
	}
	if p.pending != nil {
		ev := *p.pending
		p.pending = nil
		return ev, nil
	}
	ev, err := p.parseNext()
	if err != nil {
		p.fatal = err
	}
	return ev, err
}

// Scan reads the next record into rec, returning whether it succeeded. Once
// Scan returns false it never returns true again; Err tells failure from
// end of stream apart. Scan requires the default text record kind.
func (p *Parser) Scan(rec *Record) bool {
	if p.kind != kindText {
		log.Panicf("fastq: Scan requires the text record kind")
	}
	if p.scanErr != nil {
		return false
	}
	for {
		ev, err := p.Next()
		if err != nil {
			p.scanErr = err
			return false
		}
		switch ev.Kind {
		case EventHeader:
			continue
		case EventRecord:
			*rec = ev.Record
			return true
		case EventEnd:
			p.scanErr = errEOF
			return false
		default:
			log.Panicf("fastq: unexpected event kind %d", ev.Kind)
		}
	}
}

// Err returns the error that stopped Scan, if any. Reaching the end of the
// stream is not an error.
func (p *Parser) Err() error {
	if p.scanErr == errEOF {
		return nil
	}
	return p.scanErr
}

// parseNext produces the next record or end event, refilling the buffer as
// needed.
func (p *Parser) parseNext() (Event, error) {
	for {
		if p.eof {
			return Event{Kind: EventEnd}, nil
		}
		ev, ok, err := p.parseOne()
		if err != nil {
			return Event{}, err
		}
		if ok {
			return ev, nil
		}
		if err := p.refill(); err != nil {
			return Event{}, err
		}
	}
}

// parseOne attempts to parse one complete record from the pending region.
// It reports false when the region does not yet hold four newlines.
func (p *Parser) parseOne() (Event, bool, error) {
	buf := p.buf[:p.filled]

	// Locate the four line terminators. Scanning restarts from the current
	// record only; bytes before p.start are never touched again.
	nameEnd := scanLine(buf, p.start)
	if nameEnd < 0 {
		return Event{}, false, nil
	}
	seqEnd := scanLine(buf, nameEnd+1)
	if seqEnd < 0 {
		return Event{}, false, nil
	}
	plusEnd := scanLine(buf, seqEnd+1)
	if plusEnd < 0 {
		return Event{}, false, nil
	}
	qualEnd := scanLine(buf, plusEnd+1)
	if qualEnd < 0 {
		return Event{}, false, nil
	}

	if buf[p.start] != '@' {
		return Event{}, false, &FormatError{
			Line: linesPerRecord * p.n,
			Msg:  fmt.Sprintf("line expected to start with '@', but found %q", rune(buf[p.start])),
		}
	}
	if buf[seqEnd+1] != '+' {
		return Event{}, false, &FormatError{
			Line: linesPerRecord*p.n + 2,
			Msg:  fmt.Sprintf("line expected to start with '+', but found %q", rune(buf[seqEnd+1])),
		}
	}

	name := buf[p.start+1 : stripCR(buf, p.start+1, nameEnd)]
	seq := buf[nameEnd+1 : stripCR(buf, nameEnd+1, seqEnd)]
	name2 := buf[seqEnd+2 : stripCR(buf, seqEnd+2, plusEnd)]
	qual := buf[plusEnd+1 : stripCR(buf, plusEnd+1, qualEnd)]

	if len(name2) > 0 && !bytes.Equal(name2, name) {
		return Event{}, false, &FormatError{
			Line: linesPerRecord*p.n + 2,
			Msg: fmt.Sprintf("sequence descriptions don't match ('%s' != '%s')",
				latin1String(name), latin1String(name2)),
		}
	}
	if len(qual) != len(seq) {
		if p.extraNL && qualEnd == p.filled-1 {
			// The quality line was only terminated by the synthetic
			// newline: the stream was cut mid-record.
			p.eof = true
			return Event{}, false, p.truncated()
		}
		return Event{}, false, &FormatError{
			Line: linesPerRecord*p.n + 3,
			Msg: fmt.Sprintf("length of sequence (%d) and qualities (%d) differ in read named %q",
				len(seq), len(qual), shorten(latin1String(name), 100)),
		}
	}

	if p.n == 0 {
		p.twoHeaders = len(name2) > 0
	}
	ev := Event{Kind: EventRecord}
	switch p.kind {
	case kindText:
		ev.Record = Record{Name: string(name), Seq: string(seq), Qual: string(qual)}
	case kindRaw:
		ev.Raw = Raw{
			Name: append([]byte(nil), name...),
			Seq:  append([]byte(nil), seq...),
			Qual: append([]byte(nil), qual...),
		}
	case kindCustom:
		v, err := p.build(string(name), string(seq), string(qual))
		if err != nil {
			return Event{}, false, err
		}
		ev.Custom = v
	}
	p.start = qualEnd + 1
	p.n++
	return ev, true, nil
}

// scanLine returns the index of the next newline at or after pos, or -1.
func scanLine(buf []byte, pos int) int {
	i := bytes.IndexByte(buf[pos:], '\n')
	if i < 0 {
		return -1
	}
	return pos + i
}

// stripCR returns end, or end-1 when the line buf[pos:end] carries a
// trailing carriage return. At most one CR is stripped.
func stripCR(buf []byte, pos, end int) int {
	if end > pos && buf[end-1] == '\r' {
		return end - 1
	}
	return end
}

// refill makes room for and reads more input. When the pending record is the
// sole content of a full buffer, capacity doubles; otherwise the pending
// region moves to the front. A source that reports end of stream triggers
// the trailing-newline and truncation handling.
func (p *Parser) refill() error {
	if p.start == 0 && p.filled == len(p.buf) {
		grown := make([]byte, 2*len(p.buf))
		copy(grown, p.buf[:p.filled])
		p.buf = grown
	} else if p.start > 0 {
		p.filled = copy(p.buf, p.buf[p.start:p.filled])
		p.start = 0
	}
	for empty := 0; ; empty++ {
		n, err := p.src.Read(p.buf[p.filled:])
		if n < 0 || n > len(p.buf)-p.filled {
			return gerrors.E(fmt.Sprintf("fastq: source returned an invalid byte count %d for a %d-byte request",
				n, len(p.buf)-p.filled))
		}
		if n > 0 {
			p.filled += n
			return nil
		}
		if err == io.EOF {
			return p.sourceDrained()
		}
		if err != nil {
			return err
		}
		if empty >= maxConsecutiveEmptyReads {
			return io.ErrNoProgress
		}
	}
}

// sourceDrained handles a read that returned no bytes at end of stream.
func (p *Parser) sourceDrained() error {
	if p.filled == 0 {
		p.eof = true
		return nil
	}
	if p.buf[p.filled-1] != '\n' && !p.extraNL {
		// The final line terminator is missing; tolerate it once.
		if p.filled == len(p.buf) {
			log.Panicf("fastq: no room for the synthetic newline")
		}
		p.buf[p.filled] = '\n'
		p.filled++
		p.extraNL = true
		return nil
	}
	p.eof = true
	return p.truncated()
}

// truncated builds the error for a stream that ended mid-record. The line
// number is four lines per record already emitted plus the complete lines of
// the stranded tail, discarding the synthetic newline when one was added.
func (p *Parser) truncated() error {
	tail := p.buf[p.start:p.filled]
	if p.extraNL {
		tail = tail[:len(tail)-1]
	}
	return &TruncatedError{
		Line: linesPerRecord*p.n + bytes.Count(tail, []byte{'\n'}),
		Msg: fmt.Sprintf("premature end of input; the incomplete final record was: '%s'",
			shorten(latin1String(tail), 500)),
	}
}
