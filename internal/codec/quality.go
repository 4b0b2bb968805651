package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/PINGPengyao/quipcore/internal/byteio"
)

// qualCodec rebases each quality byte against the active scheme's base
// character, then delta-encodes the result before zstd compression.
// SetBaseQual moves the origin whenever the container crosses a
// quality-scheme boundary.
type qualCodec struct {
	base byte

	buf     bytes.Buffer
	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder

	compressed bytes.Buffer

	decodeBuf []byte
	decodeOff int
}

// NewQualEncoder returns a quality-field encoder. Its base character
// starts at '!' (ASCII 33), matching the container's initial
// qual_scheme state before the first scheme boundary is observed.
func NewQualEncoder() (QualEncoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating qual zstd encoder: %w", err)
	}
	return &qualCodec{zstdEnc: enc, base: '!'}, nil
}

// NewQualDecoder returns a quality-field decoder.
func NewQualDecoder() (QualDecoder, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating qual zstd decoder: %w", err)
	}
	return &qualCodec{zstdDec: dec, base: '!'}, nil
}

func (c *qualCodec) SetBaseQual(base byte) {
	c.base = base
}

func deltaEncode(vals []byte) {
	for i := len(vals) - 1; i > 0; i-- {
		vals[i] -= vals[i-1]
	}
}

func deltaDecode(vals []byte) {
	for i := 1; i < len(vals); i++ {
		vals[i] += vals[i-1]
	}
}

func (c *qualCodec) Encode(qual []byte) error {
	rebased := make([]byte, len(qual))
	for i, q := range qual {
		rebased[i] = q - c.base
	}
	deltaEncode(rebased)
	return byteio.WriteBytes(&c.buf, rebased)
}

func (c *qualCodec) Finish() (int, error) {
	c.compressed.Reset()
	compressed := c.zstdEnc.EncodeAll(c.buf.Bytes(), nil)
	c.buf.Reset()
	c.compressed.Write(compressed)
	return c.compressed.Len(), nil
}

func (c *qualCodec) Flush(w io.Writer) error {
	_, err := w.Write(c.compressed.Bytes())
	return err
}

func (c *qualCodec) Reset() {
	c.decodeBuf = nil
	c.decodeOff = 0
}

func (c *qualCodec) Start(r io.Reader) error {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading qual payload: %w", err)
	}
	raw, err := c.zstdDec.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("decompressing qual stream: %w", err)
	}
	c.decodeBuf = raw
	c.decodeOff = 0
	return nil
}

func (c *qualCodec) Decode(length int) ([]byte, error) {
	r := bytes.NewReader(c.decodeBuf[c.decodeOff:])
	rebased, err := byteio.ReadBytes(r)
	if err != nil {
		return nil, fmt.Errorf("decoding qual: %w", err)
	}
	c.decodeOff += len(c.decodeBuf[c.decodeOff:]) - r.Len()
	if len(rebased) != length {
		return nil, fmt.Errorf("qual length mismatch: got %d want %d", len(rebased), length)
	}

	deltaDecode(rebased)
	for i, v := range rebased {
		rebased[i] = v + c.base
	}
	return rebased, nil
}
