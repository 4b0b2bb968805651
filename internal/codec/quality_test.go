package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	vals := []byte{10, 12, 11, 11, 20, 5}
	want := append([]byte{}, vals...)

	deltaEncode(vals)
	deltaDecode(vals)
	assert.Equal(t, want, vals)
}

func TestQualCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	quals := [][]byte{
		[]byte("IIIIIIII"),
		[]byte("!!!!####"),
		[]byte("AAAABBBB"),
	}

	enc, err := NewQualEncoder()
	require.NoError(t, err)
	enc.SetBaseQual('!')
	for _, q := range quals {
		require.NoError(t, enc.Encode(q))
	}
	_, err = enc.Finish()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, enc.Flush(&buf))

	dec, err := NewQualDecoder()
	require.NoError(t, err)
	dec.Reset()
	dec.SetBaseQual('!')
	require.NoError(t, dec.Start(&buf))

	for _, want := range quals {
		got, err := dec.Decode(len(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestQualCodec_SchemeBoundaryChangesBase(t *testing.T) {
	t.Parallel()

	enc, err := NewQualEncoder()
	require.NoError(t, err)
	enc.SetBaseQual('!')
	require.NoError(t, enc.Encode([]byte("!!!!")))
	enc.SetBaseQual('@')
	require.NoError(t, enc.Encode([]byte("@@@@")))
	_, err = enc.Finish()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, enc.Flush(&buf))

	dec, err := NewQualDecoder()
	require.NoError(t, err)
	dec.Reset()
	dec.SetBaseQual('!')
	require.NoError(t, dec.Start(&buf))

	got1, err := dec.Decode(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("!!!!"), got1)

	dec.SetBaseQual('@')
	got2, err := dec.Decode(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("@@@@"), got2)
}
