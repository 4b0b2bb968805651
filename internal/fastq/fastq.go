// Package fastq adapts the FASTQ text format to the read.Read vocabulary
// the block and container packages operate on: a Reader turns FASTQ
// records into read.Read values for a container.Writer to consume, and a
// Writer turns decoded read.Read values back into FASTQ text.
package fastq

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/PINGPengyao/quipcore/internal/read"
)

// ErrMalformed signals a FASTQ record that does not follow the
// four-line @id/sequence/+/quality shape, or whose sequence and quality
// lines disagree in length.
var ErrMalformed = errors.New("malformed FASTQ record")

// Reader parses FASTQ records from an input stream one at a time.
type Reader struct {
	r    *bufio.Reader
	line []byte
}

// NewReader wraps r in a buffered FASTQ reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:    bufio.NewReaderSize(r, 1<<20),
		line: make([]byte, 0, 512),
	}
}

// Next parses and returns the next record as a read.Read. Sequence and
// quality bytes are copies, safe to retain past the next call. Returns
// io.EOF once the stream is exhausted at a record boundary.
func (fr *Reader) Next() (*read.Read, error) {
	idLine, err := fr.readLine()
	if err != nil {
		return nil, err
	}
	if len(idLine) == 0 || idLine[0] != '@' {
		return nil, fmt.Errorf("%w: header line must start with '@'", ErrMalformed)
	}
	r := &read.Read{ID: append([]byte(nil), idLine[1:]...)}

	seqLine, err := fr.readLine()
	if err != nil {
		return nil, unexpectedEOF(err)
	}
	r.Seq = append([]byte(nil), seqLine...)

	plusLine, err := fr.readLine()
	if err != nil {
		return nil, unexpectedEOF(err)
	}
	if len(plusLine) == 0 || plusLine[0] != '+' {
		return nil, fmt.Errorf("%w: separator line must start with '+'", ErrMalformed)
	}

	qualLine, err := fr.readLine()
	if err != nil {
		return nil, unexpectedEOF(err)
	}
	if len(r.Seq) != len(qualLine) {
		return nil, fmt.Errorf("%w: sequence and quality lengths differ", ErrMalformed)
	}

	r.Qual = append([]byte(nil), qualLine...)
	return r, nil
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: truncated record", ErrMalformed)
	}
	return err
}

func (fr *Reader) readLine() ([]byte, error) {
	fr.line = fr.line[:0]
	for {
		segment, isPrefix, err := fr.r.ReadLine()
		if err != nil {
			return nil, err
		}
		fr.line = append(fr.line, segment...)
		if !isPrefix {
			break
		}
	}
	fr.line = bytes.TrimSuffix(fr.line, []byte{'\r'})
	return fr.line, nil
}

// Writer serializes read.Read values back to FASTQ text.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w in a FASTQ writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits one record as four lines: "@id", sequence, "+", quality.
func (fw *Writer) Write(r *read.Read) error {
	if _, err := fw.w.Write([]byte{'@'}); err != nil {
		return err
	}
	if _, err := fw.w.Write(r.ID); err != nil {
		return err
	}
	if _, err := fw.w.Write([]byte{'\n'}); err != nil {
		return err
	}
	if _, err := fw.w.Write(r.Seq); err != nil {
		return err
	}
	if _, err := fw.w.Write([]byte("\n+\n")); err != nil {
		return err
	}
	if _, err := fw.w.Write(r.Qual); err != nil {
		return err
	}
	_, err := fw.w.Write([]byte{'\n'})
	return err
}
