package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackBases_RoundTrip(t *testing.T) {
	t.Parallel()

	seq := []byte("ACGTACGTNNACGTA")
	packed, nPos, lowerPos := packBases(seq)
	got := unpackBases(packed, nPos, lowerPos, len(seq))
	assert.Equal(t, seq, got)
}

func TestPackUnpackBases_Empty(t *testing.T) {
	t.Parallel()

	packed, nPos, lowerPos := packBases(nil)
	assert.Nil(t, packed)
	assert.Nil(t, nPos)
	assert.Nil(t, lowerPos)
}

func TestPackUnpackBases_LowercaseRoundTrip(t *testing.T) {
	t.Parallel()

	seq := []byte("acgtACGTnNacgtNn")
	packed, nPos, lowerPos := packBases(seq)
	got := unpackBases(packed, nPos, lowerPos, len(seq))
	assert.Equal(t, seq, got)
}

func TestSeqCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	seqs := [][]byte{
		[]byte("ACGTACGT"),
		[]byte("NNNNACGT"),
		[]byte("A"),
		[]byte("GGGGGGGGGGGGG"),
		[]byte("acgtACGTn"),
		[]byte("gattacaNNccTTgg"),
	}

	enc, err := NewSeqEncoder()
	require.NoError(t, err)
	for _, s := range seqs {
		require.NoError(t, enc.Encode(s))
	}
	_, err = enc.Finish()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, enc.Flush(&buf))

	dec, err := NewSeqDecoder()
	require.NoError(t, err)
	dec.Reset()
	require.NoError(t, dec.Start(&buf))

	for _, want := range seqs {
		got, err := dec.Decode(len(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
