package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/PINGPengyao/quipcore/internal/byteio"
)

// idCodec concatenates length-framed id bytes across a block and lets a
// persistent zstd encoder/decoder do the entropy coding: each id is
// length-prefixed with internal/byteio's big-endian framing before
// being appended to the accumulation buffer, then the whole buffer is
// compressed in one shot at block flush.
type idCodec struct {
	buf     bytes.Buffer
	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder

	compressed bytes.Buffer

	decodeBuf []byte
	decodeOff int
}

// NewIDEncoder returns an id-field encoder. The underlying zstd encoder
// is reused across every block's Finish call rather than allocated
// fresh each time; each Finish still emits a self-contained zstd frame,
// since EncodeAll carries no state from one call to the next.
func NewIDEncoder() (IDEncoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating id zstd encoder: %w", err)
	}
	return &idCodec{zstdEnc: enc}, nil
}

// NewIDDecoder returns an id-field decoder.
func NewIDDecoder() (IDDecoder, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating id zstd decoder: %w", err)
	}
	return &idCodec{zstdDec: dec}, nil
}

func (c *idCodec) Encode(id []byte) error {
	return byteio.WriteBytes(&c.buf, id)
}

func (c *idCodec) Finish() (int, error) {
	c.compressed.Reset()
	compressed := c.zstdEnc.EncodeAll(c.buf.Bytes(), nil)
	c.buf.Reset()
	c.compressed.Write(compressed)
	return c.compressed.Len(), nil
}

func (c *idCodec) Flush(w io.Writer) error {
	_, err := w.Write(c.compressed.Bytes())
	return err
}

func (c *idCodec) Reset() {
	c.decodeBuf = nil
	c.decodeOff = 0
}

func (c *idCodec) Start(r io.Reader) error {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading id payload: %w", err)
	}
	raw, err := c.zstdDec.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("decompressing id stream: %w", err)
	}
	c.decodeBuf = raw
	c.decodeOff = 0
	return nil
}

func (c *idCodec) Decode() ([]byte, error) {
	r := bytes.NewReader(c.decodeBuf[c.decodeOff:])
	id, err := byteio.ReadBytes(r)
	if err != nil {
		return nil, fmt.Errorf("decoding id: %w", err)
	}
	c.decodeOff += len(c.decodeBuf[c.decodeOff:]) - r.Len()
	return id, nil
}
