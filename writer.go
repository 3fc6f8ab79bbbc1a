package fastq

import "io"

// A WriterOpt configures a Writer.
type WriterOpt func(*Writer)

// WriteTwoHeaders makes the writer repeat the read name on the '+' line of
// every record.
func WriteTwoHeaders() WriterOpt {
	return func(w *Writer) { w.twoHeaders = true }
}

// Writer is a FASTQ stream writer. The first write error is sticky: every
// later Write returns it without touching the underlying writer.
type Writer struct {
	w          io.Writer
	twoHeaders bool
	err        error
}

// NewWriter constructs a new FASTQ writer that writes records to the
// underlying writer w.
func NewWriter(w io.Writer, opts ...WriterOpt) *Writer {
	fw := &Writer{w: w}
	for _, opt := range opts {
		opt(fw)
	}
	return fw
}

// Write writes the record r in FASTQ format.
// An error is returned if the write failed.
func (w *Writer) Write(r *Record) error {
	if w.err != nil {
		return w.err
	}
	b, err := r.MarshalFastq(w.twoHeaders)
	if err != nil {
		w.err = err
		return err
	}
	_, w.err = w.w.Write(b)
	return w.err
}

// WriteRaw writes the byte-flavor record r in FASTQ format.
func (w *Writer) WriteRaw(r *Raw) error {
	if w.err != nil {
		return w.err
	}
	b, err := r.MarshalFastq(w.twoHeaders)
	if err != nil {
		w.err = err
		return err
	}
	_, w.err = w.w.Write(b)
	return w.err
}

// Err returns the first error encountered while writing, if any.
func (w *Writer) Err() error { return w.err }
