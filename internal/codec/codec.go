// Package codec implements the four per-field codecs a block is built
// from: an id encoder/decoder, an aux encoder/decoder, a sequence
// encoder/decoder, and a quality encoder/decoder, each behind a fixed
// contract so the block pipeline never needs to know their internals.
// The implementations here are concrete and functioning (two-bit
// packing for sequence, scheme-relative delta for quality,
// length-framed concatenation for id/aux), entropy-coded with zstd.
package codec

import (
	"io"

	"github.com/PINGPengyao/quipcore/internal/read"
)

// Tag aliases read.Tag so callers of this package don't need a second
// import for the aux record shape.
type Tag = read.Tag

// TagType aliases read.TagType.
type TagType = read.TagType

// IDEncoder accepts read identifiers in input order.
type IDEncoder interface {
	Encode(id []byte) error
	// Finish flushes internal state and returns the total compressed
	// byte count that Flush will write.
	Finish() (int, error)
	// Flush writes the compressed payload to w.
	Flush(w io.Writer) error
}

// IDDecoder produces read identifiers in input order from a compressed
// payload supplied via Start.
type IDDecoder interface {
	// Reset returns the decoder to its pre-block state.
	Reset()
	// Start begins decoding from r, which holds exactly the compressed
	// payload for one block.
	Start(r io.Reader) error
	Decode() ([]byte, error)
}

// AuxEncoder accepts auxiliary tag lists in input order.
type AuxEncoder interface {
	Encode(tags []Tag) error
	Finish() (int, error)
	Flush(w io.Writer) error
}

// AuxDecoder produces auxiliary tag lists in input order.
type AuxDecoder interface {
	Reset()
	Start(r io.Reader) error
	Decode() ([]Tag, error)
}

// SeqEncoder accepts nucleotide sequences in input order.
type SeqEncoder interface {
	Encode(seq []byte) error
	Finish() (int, error)
	Flush(w io.Writer) error
}

// SeqDecoder produces nucleotide sequences in input order. The caller
// passes each read's length, since sequence length travels out-of-band
// via the block's read-length RLE.
type SeqDecoder interface {
	Reset()
	Start(r io.Reader) error
	Decode(length int) ([]byte, error)
}

// QualEncoder accepts quality strings in input order. SetBaseQual is
// invoked at every quality-scheme boundary.
type QualEncoder interface {
	Encode(qual []byte) error
	Finish() (int, error)
	Flush(w io.Writer) error
	SetBaseQual(base byte)
}

// QualDecoder produces quality strings in input order.
type QualDecoder interface {
	Reset()
	Start(r io.Reader) error
	Decode(length int) ([]byte, error)
	SetBaseQual(base byte)
}
