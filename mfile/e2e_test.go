package mfile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSpectrumConversionEndToEnd creates a 4096-channel acquisition
// spectrum, converts it through the cache, and reopens the result through
// auto-detection: the channel contents must survive the change of layout
// and byte order exactly.
func TestSpectrumConversionEndToEnd(t *testing.T) {
	const channels = 4096
	vals := make([]int64, channels)
	for i := range vals {
		vals[i] = int64((i * 37) % 65536)
	}

	path := filepath.Join(t.TempDir(), "acq.mate")
	src, err := Create(path, "mate", Descriptor{Rank: 1, Rows: 1, Cols: channels, Type: Uint16})
	require.NoError(t, err)
	require.NoError(t, src.WriteAllInts(vals))
	require.NoError(t, src.Close())

	c := newTestCache(t)
	res, err := c.Resolve(Request{Source: path, Op: OpConvert, Target: "lc1"})
	require.NoError(t, err)

	assert.Equal(t, "lc1", res.FormatName())
	assert.Equal(t, binary.ByteOrder(binary.LittleEndian), res.ByteOrder())
	assert.Equal(t, channels, res.NumElements())

	got, err := res.ReadAllInts()
	require.NoError(t, err)
	assert.Equal(t, vals, got)

	// The result file must itself auto-detect as lc1.
	again, err := Open(res.Locator())
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, "lc1", again.FormatName())
	assert.Equal(t, binary.ByteOrder(binary.BigEndian), src.ByteOrder())
}

// TestMatrixProjectionEndToEnd projects a 256x256 matrix along both axes
// and checks the grand totals agree with the full element sum.
func TestMatrixProjectionEndToEnd(t *testing.T) {
	const side = 256
	vals := make([]int64, side*side)
	var total int64
	for i := range vals {
		vals[i] = int64((i*31 + 7) % 4096)
		total += vals[i]
	}

	path := filepath.Join(t.TempDir(), "coinc.gf2")
	src, err := Create(path, "gf2", Descriptor{Rank: 2, Rows: side, Cols: side, Type: Int32})
	require.NoError(t, err)
	require.NoError(t, src.WriteAllInts(vals))
	require.NoError(t, src.Close())

	c := newTestCache(t)
	for _, axis := range []Axis{AxisRows, AxisCols} {
		res, err := c.Resolve(Request{Source: path, Op: OpProject, Axis: axis, Target: "lc1"})
		require.NoError(t, err)
		require.Equal(t, side, res.NumElements())

		got, err := res.ReadAllInts()
		require.NoError(t, err)
		var sum int64
		for _, v := range got {
			sum += v
		}
		assert.Equal(t, total, sum)
	}
	assert.Equal(t, 2, c.Len())
}

// TestFormatChainRoundTrip pushes the same spectrum through a chain of
// layouts and checks the values survive every hop.
func TestFormatChainRoundTrip(t *testing.T) {
	vals := []int64{0, 1, 127, 255, 1024, 32767, 65535}

	path := filepath.Join(t.TempDir(), "chain.lc2")
	f, err := Create(path, "lc2", Descriptor{Rank: 1, Rows: 1, Cols: len(vals), Type: Uint16})
	require.NoError(t, err)
	require.NoError(t, f.WriteAllInts(vals))
	require.NoError(t, f.Close())

	c := newTestCache(t)
	cur := path
	for _, target := range []string{"mate", "txt", "lc1"} {
		res, err := c.Resolve(Request{Source: cur, Op: OpConvert, Target: target})
		require.NoError(t, err, "converting to %s", target)

		got, err := res.ReadAllInts()
		require.NoError(t, err)
		require.Equal(t, vals, got, "after conversion to %s", target)
		cur = res.Locator()
	}
}

func TestOpenZeroLengthFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}
