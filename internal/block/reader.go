package block

import (
	"fmt"
	"hash/crc64"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/PINGPengyao/quipcore/internal/byteio"
	"github.com/PINGPengyao/quipcore/internal/codec"
	"github.com/PINGPengyao/quipcore/internal/read"
	"github.com/PINGPengyao/quipcore/internal/rle"
)

type fieldSegment struct {
	uncompressed uint32
	compressed   uint32
	crc          uint64
}

// Reader decodes a block stream back into reads, in order, surfacing
// per-field CRC mismatches as non-fatal warnings rather than errors.
type Reader struct {
	r io.Reader

	idDec   codec.IDDecoder
	auxDec  codec.AuxDecoder
	seqDec  codec.SeqDecoder
	qualDec codec.QualDecoder

	pending []read.Read
	pos     int
	eof     bool

	warnings   []string
	blockIndex int
}

// NewReader allocates a Reader over r, which must be positioned at the
// start of the block stream (i.e. past any container-level header).
func NewReader(r io.Reader) (*Reader, error) {
	idDec, err := codec.NewIDDecoder()
	if err != nil {
		return nil, err
	}
	auxDec, err := codec.NewAuxDecoder()
	if err != nil {
		return nil, err
	}
	seqDec, err := codec.NewSeqDecoder()
	if err != nil {
		return nil, err
	}
	qualDec, err := codec.NewQualDecoder()
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, idDec: idDec, auxDec: auxDec, seqDec: seqDec, qualDec: qualDec}, nil
}

// Warnings returns the accumulated non-fatal warnings (e.g. CRC
// mismatches) observed so far.
func (br *Reader) Warnings() []string { return br.warnings }

// BlockCount reports the number of blocks decoded so far.
func (br *Reader) BlockCount() int { return br.blockIndex }

// Next returns the next decoded read in stream order, or io.EOF once
// the block stream's terminator has been consumed.
func (br *Reader) Next() (*read.Read, error) {
	for br.pos >= len(br.pending) {
		if br.eof {
			return nil, io.EOF
		}
		if err := br.decodeBlock(); err != nil {
			return nil, err
		}
	}
	r := &br.pending[br.pos]
	br.pos++
	return r, nil
}

func (br *Reader) decodeBlock() error {
	reads, err := byteio.ReadUint32(br.r)
	if err != nil {
		return fmt.Errorf("reading block header: %w", err)
	}
	if reads == 0 {
		br.eof = true
		br.pending = nil
		br.pos = 0
		return nil
	}

	if _, err := byteio.ReadUint32(br.r); err != nil { // bases, not needed to decode
		return fmt.Errorf("reading block header: %w", err)
	}

	readlenList, err := readUint32RLE(br.r, reads)
	if err != nil {
		return fmt.Errorf("reading readlen RLE: %w", err)
	}
	qualSchemeList, err := readByteRLE(br.r, reads)
	if err != nil {
		return fmt.Errorf("reading qual_scheme RLE: %w", err)
	}

	var segs [4]fieldSegment
	for i := range segs {
		segs[i].uncompressed, err = byteio.ReadUint32(br.r)
		if err != nil {
			return fmt.Errorf("reading segment header: %w", err)
		}
		segs[i].compressed, err = byteio.ReadUint32(br.r)
		if err != nil {
			return fmt.Errorf("reading segment header: %w", err)
		}
		segs[i].crc, err = byteio.ReadUint64(br.r)
		if err != nil {
			return fmt.Errorf("reading segment header: %w", err)
		}
	}
	idSeg, auxSeg, seqSeg, qualSeg := segs[0], segs[1], segs[2], segs[3]

	br.idDec.Reset()
	if err := br.idDec.Start(io.LimitReader(br.r, int64(idSeg.compressed))); err != nil {
		return fmt.Errorf("starting id decoder: %w", err)
	}
	br.auxDec.Reset()
	if err := br.auxDec.Start(io.LimitReader(br.r, int64(auxSeg.compressed))); err != nil {
		return fmt.Errorf("starting aux decoder: %w", err)
	}
	br.seqDec.Reset()
	if err := br.seqDec.Start(io.LimitReader(br.r, int64(seqSeg.compressed))); err != nil {
		return fmt.Errorf("starting seq decoder: %w", err)
	}
	br.qualDec.Reset()
	if err := br.qualDec.Start(io.LimitReader(br.r, int64(qualSeg.compressed))); err != nil {
		return fmt.Errorf("starting qual decoder: %w", err)
	}

	readlenCursor := rle.NewCursor(&readlenList)
	qualCursor := rle.NewCursor(&qualSchemeList)
	qualCursor.SkipZeroRuns()

	decoded := make([]read.Read, reads)

	var blockIDCRC, blockAuxCRC, blockSeqCRC, blockQualCRC uint64

	remaining := int(reads)
	idx := 0
	for remaining > 0 {
		cnt := remaining
		if cnt > read.CHUNK_CAP {
			cnt = read.CHUNK_CAP
		}

		seqCursorSnap := readlenCursor
		qualLenSnap := readlenCursor
		qualSchemeSnap := qualCursor

		var g errgroup.Group
		var idCrc, auxCrc, seqCrc, qualCrc uint64

		g.Go(func() error {
			crc := blockIDCRC
			for i := 0; i < cnt; i++ {
				id, err := br.idDec.Decode()
				if err != nil {
					return fmt.Errorf("decoding id: %w", err)
				}
				decoded[idx+i].ID = id
				crc = crc64.Update(crc, crcTable, id)
			}
			idCrc = crc
			return nil
		})

		g.Go(func() error {
			crc := blockAuxCRC
			for i := 0; i < cnt; i++ {
				tags, err := br.auxDec.Decode()
				if err != nil {
					return fmt.Errorf("decoding aux: %w", err)
				}
				decoded[idx+i].Aux = tags
				crc = crc64.Update(crc, crcTable, read.AuxRawBytes(tags))
			}
			auxCrc = crc
			return nil
		})

		g.Go(func() error {
			cursor := seqCursorSnap
			crc := blockSeqCRC
			for i := 0; i < cnt; i++ {
				n := int(cursor.Value())
				cursor.Advance()
				seq, err := br.seqDec.Decode(n)
				if err != nil {
					return fmt.Errorf("decoding seq: %w", err)
				}
				decoded[idx+i].Seq = seq
				crc = crc64.Update(crc, crcTable, seq)
			}
			seqCrc = crc
			return nil
		})

		g.Go(func() error {
			lenCursor := qualLenSnap
			schemeCursor := qualSchemeSnap
			br.qualDec.SetBaseQual(schemeCursor.Value())
			crc := blockQualCRC
			for i := 0; i < cnt; i++ {
				n := int(lenCursor.Value())
				lenCursor.Advance()

				qual, err := br.qualDec.Decode(n)
				if err != nil {
					return fmt.Errorf("decoding qual: %w", err)
				}
				decoded[idx+i].Qual = qual
				crc = crc64.Update(crc, crcTable, qual)

				// The new base, if any, takes effect starting with the
				// read after the one that closed out the old run —
				// mirrors how the writer only switches schemes at a
				// chunk boundary, never mid-read.
				if schemeCursor.Advance() && schemeCursor.More() {
					br.qualDec.SetBaseQual(schemeCursor.Value())
				}
			}
			qualCrc = crc
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}

		blockIDCRC, blockAuxCRC, blockSeqCRC, blockQualCRC = idCrc, auxCrc, seqCrc, qualCrc

		for i := 0; i < cnt; i++ {
			readlenCursor.Advance()
			qualCursor.Advance()
		}

		idx += cnt
		remaining -= cnt
	}

	br.checkCRC("id", idSeg.crc, blockIDCRC)
	br.checkCRC("aux", auxSeg.crc, blockAuxCRC)
	br.checkCRC("seq", seqSeg.crc, blockSeqCRC)
	br.checkCRC("qual", qualSeg.crc, blockQualCRC)

	br.pending = decoded
	br.pos = 0
	br.blockIndex++
	return nil
}

func (br *Reader) checkCRC(field string, expected, observed uint64) {
	if expected != observed {
		br.warnings = append(br.warnings,
			fmt.Sprintf("CRC mismatch: block=%d field=%s", br.blockIndex, field))
	}
}

func readUint32RLE(r io.Reader, total uint32) (rle.List[uint32], error) {
	var l rle.List[uint32]
	var cnt uint32
	for cnt < total {
		v, err := byteio.ReadUint32(r)
		if err != nil {
			return l, err
		}
		n, err := byteio.ReadUint32(r)
		if err != nil {
			return l, err
		}
		l.AppendRun(v, n)
		cnt += n
	}
	return l, nil
}

func readByteRLE(r io.Reader, total uint32) (rle.List[byte], error) {
	var l rle.List[byte]
	var cnt uint32
	for cnt < total {
		v, err := byteio.ReadUint8(r)
		if err != nil {
			return l, err
		}
		n, err := byteio.ReadUint32(r)
		if err != nil {
			return l, err
		}
		l.AppendRun(v, n)
		cnt += n
	}
	return l, nil
}
