package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/PINGPengyao/quipcore/internal/byteio"
)

// auxCodec frames each read's tag list as a uint32 tag count followed by,
// per tag, a 2-byte key, a 1-byte type, and a length-prefixed value,
// concatenated across a block and zstd-compressed as one frame.
type auxCodec struct {
	buf     bytes.Buffer
	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder

	compressed bytes.Buffer

	decodeBuf []byte
	decodeOff int
}

// NewAuxEncoder returns an aux-field encoder.
func NewAuxEncoder() (AuxEncoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating aux zstd encoder: %w", err)
	}
	return &auxCodec{zstdEnc: enc}, nil
}

// NewAuxDecoder returns an aux-field decoder.
func NewAuxDecoder() (AuxDecoder, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating aux zstd decoder: %w", err)
	}
	return &auxCodec{zstdDec: dec}, nil
}

func (c *auxCodec) Encode(tags []Tag) error {
	if err := byteio.WriteUint32(&c.buf, uint32(len(tags))); err != nil { //nolint:gosec // tag counts per read are tiny
		return err
	}
	for _, t := range tags {
		if _, err := c.buf.Write(t.Key[:]); err != nil {
			return err
		}
		if err := byteio.WriteUint8(&c.buf, uint8(t.Type)); err != nil {
			return err
		}
		if err := byteio.WriteBytes(&c.buf, t.Value); err != nil {
			return err
		}
	}
	return nil
}

func (c *auxCodec) Finish() (int, error) {
	c.compressed.Reset()
	compressed := c.zstdEnc.EncodeAll(c.buf.Bytes(), nil)
	c.buf.Reset()
	c.compressed.Write(compressed)
	return c.compressed.Len(), nil
}

func (c *auxCodec) Flush(w io.Writer) error {
	_, err := w.Write(c.compressed.Bytes())
	return err
}

func (c *auxCodec) Reset() {
	c.decodeBuf = nil
	c.decodeOff = 0
}

func (c *auxCodec) Start(r io.Reader) error {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading aux payload: %w", err)
	}
	raw, err := c.zstdDec.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("decompressing aux stream: %w", err)
	}
	c.decodeBuf = raw
	c.decodeOff = 0
	return nil
}

func (c *auxCodec) Decode() ([]Tag, error) {
	r := bytes.NewReader(c.decodeBuf[c.decodeOff:])
	n, err := byteio.ReadUint32(r)
	if err != nil {
		return nil, fmt.Errorf("decoding aux tag count: %w", err)
	}
	tags := make([]Tag, n)
	for i := range tags {
		var key [2]byte
		if _, err := io.ReadFull(r, key[:]); err != nil {
			return nil, fmt.Errorf("decoding aux key: %w", err)
		}
		typ, err := byteio.ReadUint8(r)
		if err != nil {
			return nil, fmt.Errorf("decoding aux type: %w", err)
		}
		value, err := byteio.ReadBytes(r)
		if err != nil {
			return nil, fmt.Errorf("decoding aux value: %w", err)
		}
		tags[i] = Tag{Key: key, Type: TagType(typ), Value: value}
	}
	c.decodeOff += len(c.decodeBuf[c.decodeOff:]) - r.Len()
	return tags, nil
}
