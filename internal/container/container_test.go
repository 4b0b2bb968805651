package container

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PINGPengyao/quipcore/internal/read"
	"github.com/PINGPengyao/quipcore/internal/refset"
)

func TestContainer_RoundTrip_NoReference(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Options{Aux: Aux{Format: 7, Data: []byte("hello")}})
	require.NoError(t, err)

	want := []read.Read{
		{ID: []byte("r1"), Seq: []byte("ACGT"), Qual: []byte("IIII")},
		{ID: []byte("r2"), Seq: []byte("TTTT"), Qual: []byte("####")},
	}
	for i := range want {
		require.NoError(t, w.Add(&want[i]))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, uint64(2), w.TotalReads())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), Options{})
	require.NoError(t, err)
	assert.Equal(t, Aux{Format: 7, Data: []byte("hello")}, r.Aux)

	for i := range want {
		got, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, want[i].ID, got.ID)
		assert.Equal(t, want[i].Seq, got.Seq)
	}
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, r.BlockCount())
}

func TestContainer_EmptyInput_ProducesHeaderAndTerminator(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data := buf.Bytes()
	// magic(6) + version(1) + flags(1) + aux_fmt(1) + aux_len(8) + terminator(4)
	assert.Len(t, data, 6+1+1+1+8+4)
	assert.Equal(t, []byte{0xff, 'Q', 'U', 'I', 'P', 0x00}, data[:6])

	r, err := NewReader(bytes.NewReader(data), Options{})
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestContainer_BadMagic(t *testing.T) {
	t.Parallel()

	_, err := NewReader(bytes.NewReader([]byte("not a quip file!")), Options{})
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestContainer_VersionPolicy(t *testing.T) {
	t.Parallel()

	tooOld := append([]byte{0xff, 'Q', 'U', 'I', 'P', 0x00, 1, 0}, make([]byte, 9)...)
	_, err := NewReader(bytes.NewReader(tooOld), Options{})
	assert.ErrorIs(t, err, ErrVersionTooOld)

	tooNew := append([]byte{0xff, 'Q', 'U', 'I', 'P', 0x00, 9, 0}, make([]byte, 9)...)
	_, err = NewReader(bytes.NewReader(tooNew), Options{})
	assert.ErrorIs(t, err, ErrVersionTooNew)
}

func TestContainer_ReferenceBinding_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ref.fa")
	require.NoError(t, os.WriteFile(path, []byte(">chr1\nACGTACGT\n"), 0o600))

	ref := refset.New()
	require.NoError(t, ref.LoadFasta(path))

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Options{Reference: ref})
	require.NoError(t, err)
	read1 := read.Read{ID: []byte("r1"), Seq: []byte("ACGT"), Qual: []byte("IIII")}
	require.NoError(t, w.Add(&read1))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), Options{Reference: ref})
	require.NoError(t, err)
	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, read1.Seq, got.Seq)
}

func TestContainer_ReferenceRequired(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ref.fa")
	require.NoError(t, os.WriteFile(path, []byte(">chr1\nACGT\n"), 0o600))
	ref := refset.New()
	require.NoError(t, ref.LoadFasta(path))

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Options{Reference: ref})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = NewReader(bytes.NewReader(buf.Bytes()), Options{})
	assert.ErrorIs(t, err, ErrReferenceRequired)
}

func TestContainer_AssemblyParameterRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Options{Assembled: true, AssemblyN: 42})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), Options{})
	require.NoError(t, err)
	assert.True(t, r.Assembled)
	assert.Equal(t, uint64(42), r.AssemblyN)
}
