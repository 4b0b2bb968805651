// Package container implements the top-level encoder/decoder: the file
// header (magic, version, flags, reference binding, auxiliary payload)
// and the block-sequence terminator that frames an internal/block stream.
package container

import (
	"errors"
	"fmt"
	"io"

	"github.com/PINGPengyao/quipcore/internal/block"
	"github.com/PINGPengyao/quipcore/internal/byteio"
	"github.com/PINGPengyao/quipcore/internal/read"
	"github.com/PINGPengyao/quipcore/internal/refset"
)

var magic = [6]byte{0xff, 'Q', 'U', 'I', 'P', 0x00}

const writeVersion = 0x03

const (
	flagReference uint8 = 1 << 0
	flagAssembled uint8 = 1 << 1
)

// ErrBadMagic signals the input does not begin with the quip magic
// bytes.
var ErrBadMagic = errors.New("not a quip container: bad magic")

// ErrVersionTooOld signals a version-1 container, which predates this
// implementation's block layout.
var ErrVersionTooOld = errors.New("container was written by quip version 1.0.x, which this implementation cannot read")

// ErrVersionTooNew signals a version newer than this implementation
// understands.
var ErrVersionTooNew = errors.New("container was written by a newer version of quip")

// ErrReferenceRequired signals a reference-based container was opened
// without a caller-supplied reference set.
var ErrReferenceRequired = errors.New("a reference sequence is needed for decompression")

// Aux is the container's opaque auxiliary payload (e.g. an embedded SAM
// header), carried as a format tag plus raw bytes.
type Aux struct {
	Format uint8
	Data   []byte
}

// Options configures a Writer or Reader. Reference is the reference set
// to bind (writer) or verify against (reader); nil means the container
// is not reference-based. AssemblyN is the upstream-supplied assembly
// parameter for assembly-based containers; zero means not assembly-based
// when Assembled is false.
type Options struct {
	Reference *refset.Set
	Assembled bool
	AssemblyN uint64
	Aux       Aux
}

// Writer emits a complete quip container: header, optional reference
// binding, optional assembly parameter, auxiliary payload, and the
// block stream.
type Writer struct {
	blocks *block.Writer
}

// NewWriter writes the container header to w and returns a Writer ready
// to accept reads via Add.
func NewWriter(w io.Writer, opts Options) (*Writer, error) {
	if _, err := w.Write(magic[:]); err != nil {
		return nil, fmt.Errorf("writing magic: %w", err)
	}
	if err := byteio.WriteUint8(w, writeVersion); err != nil {
		return nil, fmt.Errorf("writing version: %w", err)
	}

	var flags uint8
	if opts.Reference != nil {
		flags |= flagReference
	}
	if opts.Assembled {
		flags |= flagAssembled
	}
	if err := byteio.WriteUint8(w, flags); err != nil {
		return nil, fmt.Errorf("writing flags: %w", err)
	}

	if opts.Reference != nil {
		if err := opts.Reference.WriteBinding(w); err != nil {
			return nil, fmt.Errorf("writing reference binding: %w", err)
		}
	}

	if opts.Assembled {
		if err := byteio.WriteUint64(w, opts.AssemblyN); err != nil {
			return nil, fmt.Errorf("writing assembly parameter: %w", err)
		}
	}

	if err := byteio.WriteUint8(w, opts.Aux.Format); err != nil {
		return nil, fmt.Errorf("writing aux format: %w", err)
	}
	if err := byteio.WriteUint64(w, uint64(len(opts.Aux.Data))); err != nil { //nolint:gosec // aux payload size fits u64 trivially
		return nil, fmt.Errorf("writing aux length: %w", err)
	}
	if _, err := w.Write(opts.Aux.Data); err != nil {
		return nil, fmt.Errorf("writing aux payload: %w", err)
	}

	bw, err := block.NewWriter(w)
	if err != nil {
		return nil, err
	}
	return &Writer{blocks: bw}, nil
}

// Add admits one read into the block stream.
func (cw *Writer) Add(r *read.Read) error {
	return cw.blocks.Add(r)
}

// Close flushes any buffered reads and writes the end-of-stream
// terminator. Close is idempotent.
func (cw *Writer) Close() error {
	return cw.blocks.Finish()
}

// TotalReads reports the number of reads written so far.
func (cw *Writer) TotalReads() uint64 { return cw.blocks.TotalReads() }

// TotalBases reports the number of sequence bases written so far.
func (cw *Writer) TotalBases() uint64 { return cw.blocks.TotalBases() }

// Reader decodes a complete quip container, producing reads in order.
type Reader struct {
	blocks *block.Reader

	Assembled bool
	AssemblyN uint64
	Aux       Aux
}

// NewReader reads and validates the container header from r, verifying
// the reference binding against opts.Reference when the container is
// reference-based, and returns a Reader ready to produce reads via
// Next.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	var got [6]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if got != magic {
		return nil, ErrBadMagic
	}

	version, err := byteio.ReadUint8(r)
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	flags, err := byteio.ReadUint8(r)
	if err != nil {
		return nil, fmt.Errorf("reading flags: %w", err)
	}

	cr := &Reader{}

	if flags&flagReference != 0 {
		if opts.Reference == nil {
			return nil, ErrReferenceRequired
		}
		if err := opts.Reference.VerifyBinding(r); err != nil {
			return nil, fmt.Errorf("verifying reference binding: %w", err)
		}
	}

	if flags&flagAssembled != 0 {
		cr.Assembled = true
		cr.AssemblyN, err = byteio.ReadUint64(r)
		if err != nil {
			return nil, fmt.Errorf("reading assembly parameter: %w", err)
		}
	}

	auxFormat, err := byteio.ReadUint8(r)
	if err != nil {
		return nil, fmt.Errorf("reading aux format: %w", err)
	}
	auxLen, err := byteio.ReadUint64(r)
	if err != nil {
		return nil, fmt.Errorf("reading aux length: %w", err)
	}
	auxData := make([]byte, auxLen)
	if _, err := io.ReadFull(r, auxData); err != nil {
		return nil, fmt.Errorf("reading aux payload: %w", err)
	}
	cr.Aux = Aux{Format: auxFormat, Data: auxData}

	cr.blocks, err = block.NewReader(r)
	if err != nil {
		return nil, err
	}
	return cr, nil
}

// Next returns the next read in the container, or io.EOF once the
// block stream's terminator has been consumed.
func (cr *Reader) Next() (*read.Read, error) {
	return cr.blocks.Next()
}

// Warnings returns the non-fatal CRC-mismatch warnings accumulated so
// far while decoding.
func (cr *Reader) Warnings() []string {
	return cr.blocks.Warnings()
}

// BlockCount reports the number of blocks decoded so far.
func (cr *Reader) BlockCount() int {
	return cr.blocks.BlockCount()
}

func checkVersion(v uint8) error {
	switch {
	case v == 1:
		return ErrVersionTooOld
	case v == 2 || v == 3:
		return nil
	default:
		return ErrVersionTooNew
	}
}
