// Package fastq implements a streaming parser for FASTQ sequencing reads,
// along with the record value types it produces, a FASTQ writer, and
// primitives for keeping paired-end streams synchronized.
//
// The parser consumes any io.Reader and owns a growable byte buffer; it
// never seeks, never rescans consumed input, and emits records as owned
// values. Format detection, file handling and decompression are left to the
// caller: wrap the reader accordingly before handing it over.
package fastq
