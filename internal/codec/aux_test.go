package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PINGPengyao/quipcore/internal/read"
)

func TestAuxCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	enc, err := NewAuxEncoder()
	require.NoError(t, err)

	tagLists := [][]Tag{
		{
			{Key: [2]byte{'X', 'A'}, Type: read.TagTypeInt, Value: []byte{1, 0, 0, 0}},
			{Key: [2]byte{'X', 'B'}, Type: read.TagTypeString, Value: []byte("hello")},
		},
		nil,
		{{Key: [2]byte{'X', 'C'}, Type: read.TagTypeChar, Value: []byte{'Q'}}},
	}

	for _, tags := range tagLists {
		require.NoError(t, enc.Encode(tags))
	}
	_, err = enc.Finish()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, enc.Flush(&buf))

	dec, err := NewAuxDecoder()
	require.NoError(t, err)
	require.NoError(t, dec.Start(bytes.NewReader(buf.Bytes())))

	for _, want := range tagLists {
		got, err := dec.Decode()
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Key, got[i].Key)
			assert.Equal(t, want[i].Type, got[i].Type)
			assert.Equal(t, want[i].Value, got[i].Value)
		}
	}
}
