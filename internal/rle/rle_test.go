package rle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestList_Append_ExtendsRun(t *testing.T) {
	t.Parallel()

	var l List[uint32]
	for _, v := range []uint32{4, 4, 4, 4} {
		l.Append(v)
	}
	assert.Equal(t, []uint32{4}, l.Values)
	assert.Equal(t, []uint32{4}, l.Runs)
}

func TestList_Append_VariableLengths(t *testing.T) {
	t.Parallel()

	var l List[uint32]
	for _, v := range []uint32{50, 51, 50, 50} {
		l.Append(v)
	}
	assert.Equal(t, []uint32{50, 51, 50}, l.Values)
	assert.Equal(t, []uint32{1, 1, 2}, l.Runs)
	assert.Equal(t, uint64(4), l.Sum())
}

func TestCursor_AdvanceAcrossRuns(t *testing.T) {
	t.Parallel()

	var l List[uint32]
	l.AppendRun(4, 2)
	l.AppendRun(5, 3)

	c := NewCursor(&l)
	var seen []uint32
	for i := 0; i < 5; i++ {
		seen = append(seen, c.Value())
		c.Advance()
	}
	assert.Equal(t, []uint32{4, 4, 5, 5, 5}, seen)
}

func TestCursor_SkipZeroRuns(t *testing.T) {
	t.Parallel()

	var l List[byte]
	l.AppendRun('I', 0)
	l.AppendRun('@', 5)

	c := NewCursor(&l)
	c.SkipZeroRuns()
	assert.Equal(t, byte('@'), c.Value())
}

func TestList_Reset(t *testing.T) {
	t.Parallel()

	var l List[uint32]
	l.Append(1)
	l.Append(2)
	l.Reset()
	assert.Empty(t, l.Values)
	assert.Empty(t, l.Runs)
}
