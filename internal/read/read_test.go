package read

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag_Bytes(t *testing.T) {
	t.Parallel()

	tag := Tag{Key: [2]byte{'N', 'M'}, Type: TagTypeInt, Value: []byte{1, 0, 0, 0}}
	assert.Equal(t, 7, tag.Bytes())
}

func TestAuxBytes_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, AuxBytes(nil))
}

func TestRead_CopyFrom_IsStructural(t *testing.T) {
	t.Parallel()

	src := &Read{
		ID:   []byte("r1"),
		Seq:  []byte("ACGT"),
		Qual: []byte("IIII"),
		Aux:  []Tag{{Key: [2]byte{'X', 'A'}, Type: TagTypeString, Value: []byte("hi")}},
	}

	var dst Read
	dst.CopyFrom(src)

	// Mutating src afterward must not affect dst.
	src.ID[0] = 'z'
	src.Aux[0].Value[0] = 'Z'

	assert.Equal(t, []byte("r1"), dst.ID)
	assert.Equal(t, []byte("hi"), dst.Aux[0].Value)
}

func TestChunk_AddAndReset(t *testing.T) {
	t.Parallel()

	var c Chunk
	require.False(t, c.Full())

	r := &Read{ID: []byte("a"), Seq: []byte("A"), Qual: []byte("I")}
	c.Add(r)
	assert.Equal(t, 1, c.Len)
	assert.Equal(t, []byte("a"), c.Slot(0).ID)

	c.Reset()
	assert.Equal(t, 0, c.Len)
}

func TestChunk_Full(t *testing.T) {
	t.Parallel()

	var c Chunk
	r := &Read{ID: []byte("a"), Seq: []byte("A"), Qual: []byte("I")}
	for i := 0; i < CHUNK_CAP; i++ {
		c.Add(r)
	}
	assert.True(t, c.Full())
}
