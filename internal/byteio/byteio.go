// Package byteio provides fixed-width, big-endian integer encoding over
// plain io.Writer/io.Reader capabilities, with short reads treated as
// fatal (io.ErrUnexpectedEOF).
package byteio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteUint8 writes a single byte.
func WriteUint8(w io.Writer, x uint8) error {
	_, err := w.Write([]byte{x})
	return err
}

// WriteUint32 writes x as 4 big-endian bytes.
func WriteUint32(w io.Writer, x uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], x)
	_, err := w.Write(buf[:])
	return err
}

// WriteUint64 writes x as 8 big-endian bytes.
func WriteUint64(w io.Writer, x uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], x)
	_, err := w.Write(buf[:])
	return err
}

// ReadUint8 reads a single byte.
func ReadUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, shortRead("uint8", err)
	}
	return buf[0], nil
}

// ReadUint32 reads 4 big-endian bytes.
func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, shortRead("uint32", err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadUint64 reads 8 big-endian bytes.
func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, shortRead("uint64", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// WriteBytes writes a uint32 length prefix followed by data.
func WriteBytes(w io.Writer, data []byte) error {
	if err := WriteUint32(w, uint32(len(data))); err != nil { //nolint:gosec // framed lengths are bounded by block size
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadBytes reads a uint32 length prefix followed by that many bytes.
func ReadBytes(r io.Reader) ([]byte, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, shortRead("bytes", err)
	}
	return buf, nil
}

func shortRead(what string, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF { //nolint:errorlint // sentinel comparison matches io.ReadFull's contract
		return fmt.Errorf("unexpected end of input reading %s: %w", what, io.ErrUnexpectedEOF)
	}
	return fmt.Errorf("reading %s: %w", what, err)
}
