package fastq

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PINGPengyao/quipcore/internal/read"
)

func TestReader_ParsesRecord(t *testing.T) {
	t.Parallel()

	input := "@SEQ_ID description\nACGTACGT\n+\nIIIIIIII\n"
	r := NewReader(strings.NewReader(input))

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte("SEQ_ID description"), rec.ID)
	assert.Equal(t, []byte("ACGTACGT"), rec.Seq)
	assert.Equal(t, []byte("IIIIIIII"), rec.Qual)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_ParsesMultipleRecords(t *testing.T) {
	t.Parallel()

	input := "@r1\nAAAA\n+\n!!!!\n@r2\nCCCC\n+\n####\n"
	r := NewReader(strings.NewReader(input))

	want := []struct{ id, seq, qual string }{
		{"r1", "AAAA", "!!!!"},
		{"r2", "CCCC", "####"},
	}
	for _, w := range want {
		rec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, []byte(w.id), rec.ID)
		assert.Equal(t, []byte(w.seq), rec.Seq)
		assert.Equal(t, []byte(w.qual), rec.Qual)
	}
}

func TestReader_RejectsMissingAt(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("not-a-header\nACGT\n+\nIIII\n"))
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReader_RejectsMissingPlus(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("@r1\nACGT\nnot-a-plus\nIIII\n"))
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReader_RejectsLengthMismatch(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("@r1\nACGT\n+\nIII\n"))
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReader_RejectsTruncatedRecord(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("@r1\nACGT\n+\n"))
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestWriter_RoundTripsThroughReader(t *testing.T) {
	t.Parallel()

	want := &read.Read{ID: []byte("r1 extra"), Seq: []byte("ACGTN"), Qual: []byte("IIIII")}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).Write(want))

	got, err := NewReader(&buf).Next()
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Seq, got.Seq)
	assert.Equal(t, want.Qual, got.Qual)
}
