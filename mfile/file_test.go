package mfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSpectrum(t *testing.T, formatName string, vals []int64) (string, *File) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spect."+formatName)
	f, err := Create(path, formatName, Descriptor{Rank: 1, Rows: 1, Cols: len(vals), Type: Uint16})
	require.NoError(t, err)
	require.NoError(t, f.WriteAllInts(vals))
	t.Cleanup(func() { f.Close() })
	return path, f
}

func TestOpenMissingResource(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "gone.mat"))
	assert.True(t, errors.Is(err, ErrResourceUnavailable))
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mat")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path)
	assert.True(t, errors.Is(err, ErrUnrecognizedFormat))
}

func TestCreateOpenRoundTrip(t *testing.T) {
	vals := []int64{10, 20, 30, 40, 50}
	path, _ := createSpectrum(t, "lc1", vals)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "lc1", f.FormatName())
	assert.Equal(t, 1, f.Rank())
	assert.Equal(t, 5, f.Cols())
	assert.Equal(t, Uint16, f.ElemType())

	got, err := f.ReadAllInts()
	require.NoError(t, err)
	assert.Equal(t, vals, got)
}

func TestReadOnlyWriteRejected(t *testing.T) {
	path, w := createSpectrum(t, "lc1", []int64{1, 2, 3, 4})
	require.NoError(t, w.Close())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	f, err := Open(path) // default mode is read-only
	require.NoError(t, err)
	defer f.Close()

	err = f.WriteInts(0, []int64{9})
	assert.True(t, errors.Is(err, ErrReadOnly))

	// A rejected write leaves the handle usable and the resource intact.
	got, err := f.ReadAllInts()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, got)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWriteShapeMismatch(t *testing.T) {
	_, f := createSpectrum(t, "lc1", []int64{1, 2, 3, 4})

	err := f.WriteAllInts([]int64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	err = f.WriteInts(3, []int64{1, 2})
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestRegionRead(t *testing.T) {
	_, f := createSpectrum(t, "lc1", []int64{0, 1, 2, 3, 4, 5, 6, 7})

	got, err := f.ReadInts(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, got)

	_, err = f.ReadInts(6, 4)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestClosedHandle(t *testing.T) {
	_, f := createSpectrum(t, "lc1", []int64{1, 2})
	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "close is idempotent")

	_, err := f.ReadAllInts()
	assert.True(t, errors.Is(err, ErrClosed))
	err = f.WriteInts(0, []int64{1})
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestForcedFormat(t *testing.T) {
	path, w := createSpectrum(t, "lc1", []int64{5, 6, 7})
	require.NoError(t, w.Close())

	f, err := Open(path, WithFormat("lc1"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "lc1", f.FormatName())

	// Forcing the wrong backend fails on its header check, not silently.
	_, err = Open(path, WithFormat("gf2"))
	require.Error(t, err)
}

func TestCustomRegistrySubset(t *testing.T) {
	path, w := createSpectrum(t, "lc1", []int64{5, 6, 7})
	require.NoError(t, w.Close())

	reg, err := NewRegistry("lc2")
	require.NoError(t, err)
	_, err = Open(path, WithRegistry(reg))
	assert.True(t, errors.Is(err, ErrUnrecognizedFormat),
		"a registry without the lc1 backend must not recognize an lc1 file")
}

func TestMatrixRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.gf2")
	f, err := Create(path, "gf2", Descriptor{Rank: 2, Rows: 3, Cols: 4, Type: Int32})
	require.NoError(t, err)
	defer f.Close()

	vals := make([]int64, 12)
	for i := range vals {
		vals[i] = int64(i)
	}
	require.NoError(t, f.WriteAllInts(vals))

	row, err := f.ReadRowInts(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 6, 7}, row)

	_, err = f.ReadRowInts(3)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}
