package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/PINGPengyao/quipcore/internal/byteio"
)

// baseCode maps a base byte to its two-bit code and baseChar is its
// reverse lookup: A=00 C=01 G=10 T=11, with N (or any other byte)
// packed as A and its position recorded in a side list. Case is folded
// in the code table: lowercase bases carry the same code as
// their uppercase counterpart, and their positions are recorded in a
// second side list so unpackBases can restore the original case.
var baseCode [256]byte

func init() {
	for i := range baseCode {
		baseCode[i] = 4
	}
	baseCode['A'], baseCode['a'] = 0, 0
	baseCode['C'], baseCode['c'] = 1, 1
	baseCode['G'], baseCode['g'] = 2, 2
	baseCode['T'], baseCode['t'] = 3, 3
}

var baseChar = [4]byte{'A', 'C', 'G', 'T'}

// isLowerBase reports whether b is one of the lowercase letters this
// codec accepts (a, c, g, t, n).
func isLowerBase(b byte) bool {
	switch b {
	case 'a', 'c', 'g', 't', 'n':
		return true
	default:
		return false
	}
}

// packBases two-bit packs seq, returning the packed bytes, the
// positions (within seq) of any base that isn't A/C/G/T (stored as N on
// unpack), and the positions of any lowercase base (restored on unpack).
func packBases(seq []byte) (packed []byte, nPos, lowerPos []uint32) {
	if len(seq) == 0 {
		return nil, nil, nil
	}
	packed = make([]byte, (len(seq)+3)/4)
	for i, b := range seq {
		code := baseCode[b]
		if code == 4 {
			nPos = append(nPos, uint32(i)) //nolint:gosec // i bounded by read length
			code = 0
		}
		if isLowerBase(b) {
			lowerPos = append(lowerPos, uint32(i)) //nolint:gosec // i bounded by read length
		}
		packed[i/4] |= code << ((i % 4) * 2)
	}
	return packed, nPos, lowerPos
}

// unpackBases reverses packBases given the original sequence length.
func unpackBases(packed []byte, nPos, lowerPos []uint32, seqLen int) []byte {
	seq := make([]byte, seqLen)
	for i := 0; i < seqLen; i++ {
		code := (packed[i/4] >> ((i % 4) * 2)) & 0x03
		seq[i] = baseChar[code]
	}
	for _, pos := range nPos {
		if int(pos) < seqLen {
			seq[pos] = 'N'
		}
	}
	for _, pos := range lowerPos {
		if int(pos) < seqLen {
			seq[pos] |= 0x20
		}
	}
	return seq
}

// seqCodec accumulates two-bit-packed sequence bytes and a parallel
// N-position side list across a block, zstd-compressing both as one
// payload. Sequence length itself is not stored here — it travels via
// the block's read-length RLE and is passed into Decode per read.
//
// The reference-based and assembly-based container modes both reuse this
// same codec: a read carries no alignment/position field to diff
// against a reference, so reference identity is verified entirely at
// the container/refset level (see DESIGN.md "Open Questions").
type seqCodec struct {
	packed     bytes.Buffer
	nPosCount  []uint32 // per-read N-position count, for framing
	nPos       []uint32 // flat N positions across all reads in the block
	lowerCount []uint32 // per-read lowercase-position count, for framing
	lowerPos   []uint32 // flat lowercase positions across all reads in the block
	zstdEnc    *zstd.Encoder
	zstdDec    *zstd.Decoder
	compressed bytes.Buffer

	decPacked    []byte
	decPackedAt  int
	decNPos      []uint32
	decNPosIdx   int
	decNPosRead  int
	decLowerPos  []uint32
	decLowerIdx  int
	decLowerRead int
}

// NewSeqEncoder returns a sequence-field encoder.
func NewSeqEncoder() (SeqEncoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating seq zstd encoder: %w", err)
	}
	return &seqCodec{zstdEnc: enc}, nil
}

// NewSeqDecoder returns a sequence-field decoder.
func NewSeqDecoder() (SeqDecoder, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating seq zstd decoder: %w", err)
	}
	return &seqCodec{zstdDec: dec}, nil
}

func (c *seqCodec) Encode(seq []byte) error {
	packed, nPos, lowerPos := packBases(seq)
	c.packed.Write(packed)
	c.nPosCount = append(c.nPosCount, uint32(len(nPos))) //nolint:gosec // bounded by read length
	c.nPos = append(c.nPos, nPos...)
	c.lowerCount = append(c.lowerCount, uint32(len(lowerPos))) //nolint:gosec // bounded by read length
	c.lowerPos = append(c.lowerPos, lowerPos...)
	return nil
}

func (c *seqCodec) Finish() (int, error) {
	nSidecar, err := encodePositionSidecar(c.nPosCount, c.nPos)
	if err != nil {
		return 0, err
	}
	lowerSidecar, err := encodePositionSidecar(c.lowerCount, c.lowerPos)
	if err != nil {
		return 0, err
	}

	var framed bytes.Buffer
	if err := byteio.WriteBytes(&framed, nSidecar); err != nil {
		return 0, err
	}
	if err := byteio.WriteBytes(&framed, lowerSidecar); err != nil {
		return 0, err
	}
	framed.Write(c.packed.Bytes())

	c.compressed.Reset()
	compressed := c.zstdEnc.EncodeAll(framed.Bytes(), nil)
	c.compressed.Write(compressed)

	c.packed.Reset()
	c.nPosCount = c.nPosCount[:0]
	c.nPos = c.nPos[:0]
	c.lowerCount = c.lowerCount[:0]
	c.lowerPos = c.lowerPos[:0]
	return c.compressed.Len(), nil
}

func (c *seqCodec) Flush(w io.Writer) error {
	_, err := w.Write(c.compressed.Bytes())
	return err
}

func (c *seqCodec) Reset() {
	c.decPacked = nil
	c.decPackedAt = 0
	c.decNPos = nil
	c.decNPosIdx = 0
	c.decNPosRead = 0
	c.decLowerPos = nil
	c.decLowerIdx = 0
	c.decLowerRead = 0
}

func (c *seqCodec) Start(r io.Reader) error {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading seq payload: %w", err)
	}
	raw, err := c.zstdDec.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("decompressing seq stream: %w", err)
	}

	br := bytes.NewReader(raw)
	nSidecar, err := byteio.ReadBytes(br)
	if err != nil {
		return fmt.Errorf("decoding seq N-position sidecar: %w", err)
	}
	nPosCounts, nPos, err := decodePositionSidecar(nSidecar)
	if err != nil {
		return err
	}
	lowerSidecar, err := byteio.ReadBytes(br)
	if err != nil {
		return fmt.Errorf("decoding seq lowercase-position sidecar: %w", err)
	}
	lowerCounts, lowerPos, err := decodePositionSidecar(lowerSidecar)
	if err != nil {
		return err
	}

	c.decPacked = raw[len(raw)-br.Len():]
	c.decPackedAt = 0
	c.decNPos = nPos
	c.decNPosIdx = 0
	c.nPosCount = nPosCounts
	c.decNPosRead = 0
	c.decLowerPos = lowerPos
	c.decLowerIdx = 0
	c.lowerCount = lowerCounts
	c.decLowerRead = 0
	return nil
}

func (c *seqCodec) Decode(length int) ([]byte, error) {
	packedLen := (length + 3) / 4
	if c.decPackedAt+packedLen > len(c.decPacked) {
		return nil, fmt.Errorf("truncated sequence payload")
	}
	packed := c.decPacked[c.decPackedAt : c.decPackedAt+packedLen]
	c.decPackedAt += packedLen

	if c.decNPosRead >= len(c.nPosCount) {
		return nil, fmt.Errorf("truncated sequence N-position sidecar")
	}
	n := int(c.nPosCount[c.decNPosRead])
	c.decNPosRead++
	if c.decNPosIdx+n > len(c.decNPos) {
		return nil, fmt.Errorf("truncated sequence N-position sidecar")
	}
	nPos := c.decNPos[c.decNPosIdx : c.decNPosIdx+n]
	c.decNPosIdx += n

	if c.decLowerRead >= len(c.lowerCount) {
		return nil, fmt.Errorf("truncated sequence lowercase-position sidecar")
	}
	nLower := int(c.lowerCount[c.decLowerRead])
	c.decLowerRead++
	if c.decLowerIdx+nLower > len(c.decLowerPos) {
		return nil, fmt.Errorf("truncated sequence lowercase-position sidecar")
	}
	lowerPos := c.decLowerPos[c.decLowerIdx : c.decLowerIdx+nLower]
	c.decLowerIdx += nLower

	return unpackBases(packed, nPos, lowerPos, length), nil
}

func encodePositionSidecar(counts, positions []uint32) ([]byte, error) {
	var buf bytes.Buffer
	if err := byteio.WriteUint32(&buf, uint32(len(counts))); err != nil { //nolint:gosec // bounded by chunk/block size
		return nil, err
	}
	for _, c := range counts {
		if err := byteio.WriteUint32(&buf, c); err != nil {
			return nil, err
		}
	}
	if err := byteio.WriteUint32(&buf, uint32(len(positions))); err != nil { //nolint:gosec // bounded
		return nil, err
	}
	for _, p := range positions {
		if err := byteio.WriteUint32(&buf, p); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodePositionSidecar(data []byte) (counts, positions []uint32, err error) {
	r := bytes.NewReader(data)
	nCounts, err := byteio.ReadUint32(r)
	if err != nil {
		return nil, nil, err
	}
	counts = make([]uint32, nCounts)
	for i := range counts {
		counts[i], err = byteio.ReadUint32(r)
		if err != nil {
			return nil, nil, err
		}
	}
	nPos, err := byteio.ReadUint32(r)
	if err != nil {
		return nil, nil, err
	}
	positions = make([]uint32, nPos)
	for i := range positions {
		positions[i], err = byteio.ReadUint32(r)
		if err != nil {
			return nil, nil, err
		}
	}
	return counts, positions, nil
}
