package refset

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFasta(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ref.fa")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadFasta_SortsAndIndexes(t *testing.T) {
	t.Parallel()

	path := writeFasta(t, ">chr2 some description\nACGT\n>chr1\nGGCC\nTTAA\n")

	s := New()
	require.NoError(t, s.LoadFasta(path))
	require.Equal(t, 2, s.Len())

	e, ok := s.Get("chr1")
	require.True(t, ok)
	assert.Equal(t, uint64(8), e.Length)

	_, ok = s.Get("chr2")
	assert.True(t, ok)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestLoadFasta_DuplicateNameIsFatal(t *testing.T) {
	t.Parallel()

	path := writeFasta(t, ">a\nACGT\n>a\nGGGG\n")
	require.ErrorIs(t, New().LoadFasta(path), ErrMalformedFasta)
}

func TestLoadFasta_InvalidCharacterIsFatal(t *testing.T) {
	t.Parallel()

	path := writeFasta(t, ">a\nACGX\n")
	require.ErrorIs(t, New().LoadFasta(path), ErrMalformedFasta)
}

func TestCRC64_InvariantToConstructionOrder(t *testing.T) {
	t.Parallel()

	p1 := writeFasta(t, ">a\nACGT\n>b\nGGCC\n")
	p2 := writeFasta(t, ">b\nGGCC\n>a\nACGT\n")

	s1, s2 := New(), New()
	require.NoError(t, s1.LoadFasta(p1))
	require.NoError(t, s2.LoadFasta(p2))

	assert.Equal(t, s1.CRC64(), s2.CRC64())
}

func TestBinding_RoundTrip(t *testing.T) {
	t.Parallel()

	path := writeFasta(t, ">a\nACGT\n>b\nGGCCTT\n")
	s := New()
	require.NoError(t, s.LoadFasta(path))

	var buf bytes.Buffer
	require.NoError(t, s.WriteBinding(&buf))
	require.NoError(t, s.VerifyBinding(&buf))
}

func TestBinding_MismatchIsFatal(t *testing.T) {
	t.Parallel()

	pathA := writeFasta(t, ">a\nACGT\n")
	pathB := writeFasta(t, ">a\nACGG\n")

	sa, sb := New(), New()
	require.NoError(t, sa.LoadFasta(pathA))
	require.NoError(t, sb.LoadFasta(pathB))

	var buf bytes.Buffer
	require.NoError(t, sa.WriteBinding(&buf))
	require.ErrorIs(t, sb.VerifyBinding(&buf), ErrRefMismatch)
}
