// Package block implements the block pipeline: chunk admission, the
// four-way per-field parallel codec fork/join, run-length metadata, and
// the on-disk block framing.
package block

import (
	"errors"
	"fmt"
	"hash/crc64"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/PINGPengyao/quipcore/internal/byteio"
	"github.com/PINGPengyao/quipcore/internal/codec"
	"github.com/PINGPengyao/quipcore/internal/read"
	"github.com/PINGPengyao/quipcore/internal/rle"
)

// BlockThreshold is the running-bases count that triggers a block flush.
const BlockThreshold = 5_000_000

// QualWindow is the width of a quality-score scheme's valid range.
const QualWindow = 64

// ErrQualSchemeOverflow signals a quality byte fell outside the
// printable range the scheme model can represent.
var ErrQualSchemeOverflow = errors.New("quality score byte outside supported range")

// ErrWriteAfterFinish signals Add called on a Writer that already
// called Finish.
var ErrWriteAfterFinish = errors.New("block: write after finish")

var crcTable = crc64.MakeTable(crc64.ISO)

// Writer accumulates reads into chunks and blocks, flushing each to an
// underlying io.Writer.
type Writer struct {
	w io.Writer

	chunk read.Chunk

	idEnc   codec.IDEncoder
	auxEnc  codec.AuxEncoder
	seqEnc  codec.SeqEncoder
	qualEnc codec.QualEncoder

	bufferedReads uint32
	bufferedBases uint64
	totalReads    uint64
	totalBases    uint64

	idBytes, auxBytes, seqBytes, qualBytes uint32
	idCRC, auxCRC, seqCRC, qualCRC         uint64

	readlen    rle.List[uint32]
	qualScheme rle.List[byte]

	finished bool
}

// NewWriter allocates a Writer over w. The active quality scheme
// begins at base '!' with run 0.
func NewWriter(w io.Writer) (*Writer, error) {
	idEnc, err := codec.NewIDEncoder()
	if err != nil {
		return nil, err
	}
	auxEnc, err := codec.NewAuxEncoder()
	if err != nil {
		return nil, err
	}
	seqEnc, err := codec.NewSeqEncoder()
	if err != nil {
		return nil, err
	}
	qualEnc, err := codec.NewQualEncoder()
	if err != nil {
		return nil, err
	}

	bw := &Writer{
		w:       w,
		idEnc:   idEnc,
		auxEnc:  auxEnc,
		seqEnc:  seqEnc,
		qualEnc: qualEnc,
	}
	bw.qualScheme.AppendRun('!', 0)
	return bw, nil
}

// TotalReads reports the number of reads written so far, across all
// blocks.
func (bw *Writer) TotalReads() uint64 { return bw.totalReads }

// TotalBases reports the number of sequence bases written so far.
func (bw *Writer) TotalBases() uint64 { return bw.totalBases }

// Add admits one read into the chunk buffer, flushing the current
// block or chunk first if either is full.
func (bw *Writer) Add(r *read.Read) error {
	if bw.finished {
		return ErrWriteAfterFinish
	}
	if bw.bufferedBases > BlockThreshold {
		if err := bw.flushBlock(); err != nil {
			return err
		}
	}
	if bw.chunk.Full() {
		if err := bw.flushChunk(); err != nil {
			return err
		}
	}
	bw.chunk.Add(r)
	return nil
}

// Finish flushes any partially-filled chunk and block, then writes the
// zero-reads terminator that marks the end of the block stream. Finish
// is idempotent.
func (bw *Writer) Finish() error {
	if bw.finished {
		return nil
	}
	if bw.chunk.Len > 0 {
		if err := bw.flushChunk(); err != nil {
			return err
		}
	}
	if bw.bufferedReads > 0 {
		if err := bw.flushBlock(); err != nil {
			return err
		}
	}
	if err := byteio.WriteUint32(bw.w, 0); err != nil {
		return fmt.Errorf("writing end-of-stream marker: %w", err)
	}
	bw.finished = true
	return nil
}

// flushChunk runs the scheme-guess update and the four-way parallel
// encode/CRC pass over the buffered chunk, then folds its contribution
// into the block-level counters.
func (bw *Writer) flushChunk() error {
	n := bw.chunk.Len
	if n == 0 {
		return nil
	}

	if err := bw.updateQualSchemeGuess(); err != nil {
		return err
	}

	var g errgroup.Group

	g.Go(func() error {
		crc := bw.idCRC
		for i := 0; i < n; i++ {
			r := bw.chunk.Slot(i)
			if err := bw.idEnc.Encode(r.ID); err != nil {
				return fmt.Errorf("encoding id: %w", err)
			}
			crc = crc64.Update(crc, crcTable, r.ID)
		}
		bw.idCRC = crc
		return nil
	})

	g.Go(func() error {
		crc := bw.auxCRC
		for i := 0; i < n; i++ {
			r := bw.chunk.Slot(i)
			if err := bw.auxEnc.Encode(r.Aux); err != nil {
				return fmt.Errorf("encoding aux: %w", err)
			}
			crc = crc64.Update(crc, crcTable, read.AuxRawBytes(r.Aux))
		}
		bw.auxCRC = crc
		return nil
	})

	g.Go(func() error {
		crc := bw.seqCRC
		for i := 0; i < n; i++ {
			r := bw.chunk.Slot(i)
			if err := bw.seqEnc.Encode(r.Seq); err != nil {
				return fmt.Errorf("encoding seq: %w", err)
			}
			crc = crc64.Update(crc, crcTable, r.Seq)
		}
		bw.seqCRC = crc
		return nil
	})

	g.Go(func() error {
		crc := bw.qualCRC
		for i := 0; i < n; i++ {
			r := bw.chunk.Slot(i)
			if err := bw.qualEnc.Encode(r.Qual); err != nil {
				return fmt.Errorf("encoding qual: %w", err)
			}
			crc = crc64.Update(crc, crcTable, r.Qual)
		}
		bw.qualCRC = crc
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		r := bw.chunk.Slot(i)
		bw.idBytes += uint32(len(r.ID))           //nolint:gosec // bounded by chunk/block size
		bw.auxBytes += uint32(read.AuxBytes(r.Aux)) //nolint:gosec // bounded
		bw.seqBytes += uint32(len(r.Seq))          //nolint:gosec // bounded
		bw.qualBytes += uint32(len(r.Qual))        //nolint:gosec // bounded
		bw.readlen.Append(uint32(len(r.Seq)))      //nolint:gosec // bounded
		bw.bufferedBases += uint64(len(r.Seq))
		bw.totalBases += uint64(len(r.Seq))
	}
	bw.bufferedReads += uint32(n) //nolint:gosec // n <= read.CHUNK_CAP
	bw.totalReads += uint64(n)
	bw.chunk.Reset()
	return nil
}

// updateQualSchemeGuess scans the chunk's quality bytes for their
// observed range and either extends the active scheme or opens a new
// one, informing the quality codec of the change.
func (bw *Writer) updateQualSchemeGuess() error {
	n := bw.chunk.Len

	var minQual, maxQual byte
	seen := false
	for i := 0; i < n; i++ {
		for _, b := range bw.chunk.Slot(i).Qual {
			if !seen {
				minQual, maxQual = b, b
				seen = true
				continue
			}
			if b < minQual {
				minQual = b
			}
			if b > maxQual {
				maxQual = b
			}
		}
	}

	lastBase := bw.qualScheme.Last()

	switch {
	case !seen:
		bw.qualScheme.ExtendLastRun(uint32(n)) //nolint:gosec // bounded
	case minQual < 33 || maxQual > 126:
		return fmt.Errorf("%w: observed range [%d,%d]", ErrQualSchemeOverflow, minQual, maxQual)
	case minQual < lastBase || maxQual >= lastBase+QualWindow:
		bw.qualScheme.AppendRun(minQual, uint32(n)) //nolint:gosec // bounded
		lastBase = minQual
	default:
		bw.qualScheme.ExtendLastRun(uint32(n)) //nolint:gosec // bounded
	}

	bw.qualEnc.SetBaseQual(lastBase)
	return nil
}

// flushBlock writes the block header, run-length metadata, field
// segment headers, and compressed payloads, then resets per-block
// state, carrying the active scheme forward as a zero-run sentinel.
func (bw *Writer) flushBlock() error {
	if bw.bufferedReads == 0 {
		return nil
	}

	if err := byteio.WriteUint32(bw.w, bw.bufferedReads); err != nil {
		return fmt.Errorf("writing block read count: %w", err)
	}
	if err := byteio.WriteUint32(bw.w, uint32(bw.bufferedBases)); err != nil { //nolint:gosec // bounded by BlockThreshold
		return fmt.Errorf("writing block base count: %w", err)
	}

	if err := writeUint32RLE(bw.w, &bw.readlen); err != nil {
		return fmt.Errorf("writing readlen RLE: %w", err)
	}
	if err := writeByteRLE(bw.w, &bw.qualScheme); err != nil {
		return fmt.Errorf("writing qual_scheme RLE: %w", err)
	}

	idComp, err := bw.idEnc.Finish()
	if err != nil {
		return fmt.Errorf("finishing id codec: %w", err)
	}
	auxComp, err := bw.auxEnc.Finish()
	if err != nil {
		return fmt.Errorf("finishing aux codec: %w", err)
	}
	seqComp, err := bw.seqEnc.Finish()
	if err != nil {
		return fmt.Errorf("finishing seq codec: %w", err)
	}
	qualComp, err := bw.qualEnc.Finish()
	if err != nil {
		return fmt.Errorf("finishing qual codec: %w", err)
	}

	segments := [4]struct {
		uncompressed uint32
		compressed   int
		crc          uint64
	}{
		{bw.idBytes, idComp, bw.idCRC},
		{bw.auxBytes, auxComp, bw.auxCRC},
		{bw.seqBytes, seqComp, bw.seqCRC},
		{bw.qualBytes, qualComp, bw.qualCRC},
	}
	for _, s := range segments {
		if err := byteio.WriteUint32(bw.w, s.uncompressed); err != nil {
			return fmt.Errorf("writing segment header: %w", err)
		}
		if err := byteio.WriteUint32(bw.w, uint32(s.compressed)); err != nil { //nolint:gosec // compressed size fits u32
			return fmt.Errorf("writing segment header: %w", err)
		}
		if err := byteio.WriteUint64(bw.w, s.crc); err != nil {
			return fmt.Errorf("writing segment header: %w", err)
		}
	}

	if err := bw.idEnc.Flush(bw.w); err != nil {
		return fmt.Errorf("flushing id payload: %w", err)
	}
	if err := bw.auxEnc.Flush(bw.w); err != nil {
		return fmt.Errorf("flushing aux payload: %w", err)
	}
	if err := bw.seqEnc.Flush(bw.w); err != nil {
		return fmt.Errorf("flushing seq payload: %w", err)
	}
	if err := bw.qualEnc.Flush(bw.w); err != nil {
		return fmt.Errorf("flushing qual payload: %w", err)
	}

	lastScheme := bw.qualScheme.Last()

	bw.bufferedReads = 0
	bw.bufferedBases = 0
	bw.idBytes, bw.auxBytes, bw.seqBytes, bw.qualBytes = 0, 0, 0, 0
	bw.idCRC, bw.auxCRC, bw.seqCRC, bw.qualCRC = 0, 0, 0, 0
	bw.readlen.Reset()
	bw.qualScheme.Reset()
	bw.qualScheme.AppendRun(lastScheme, 0)

	return nil
}

func writeUint32RLE(w io.Writer, l *rle.List[uint32]) error {
	for i := 0; i < l.Len(); i++ {
		if err := byteio.WriteUint32(w, l.Values[i]); err != nil {
			return err
		}
		if err := byteio.WriteUint32(w, l.Runs[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeByteRLE(w io.Writer, l *rle.List[byte]) error {
	for i := 0; i < l.Len(); i++ {
		if err := byteio.WriteUint8(w, l.Values[i]); err != nil {
			return err
		}
		if err := byteio.WriteUint32(w, l.Runs[i]); err != nil {
			return err
		}
	}
	return nil
}
