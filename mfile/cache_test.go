package mfile

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewCache("", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheHitReturnsSameHandle(t *testing.T) {
	path, _ := createSpectrum(t, "lc1", []int64{1, 2, 3, 4})
	c := newTestCache(t)

	req := Request{Source: path, Op: OpConvert, Target: "lc2"}
	first, err := c.Resolve(req)
	require.NoError(t, err)
	second, err := c.Resolve(req)
	require.NoError(t, err)

	assert.Same(t, first, second, "a valid entry is served without re-running the engine")
	assert.Equal(t, 1, c.Len())

	got, err := first.ReadAllInts()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, got)
}

func TestCacheDistinctRequestsDistinctEntries(t *testing.T) {
	path, _ := createSpectrum(t, "lc1", []int64{1, 2, 3, 4})
	c := newTestCache(t)

	a, err := c.Resolve(Request{Source: path, Op: OpConvert, Target: "lc2"})
	require.NoError(t, err)
	b, err := c.Resolve(Request{Source: path, Op: OpAdjust, Rebin: 2, Scale: 1, Target: "lc1"})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, c.Len())

	sums, err := b.ReadAllInts()
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, sums)
}

func TestCacheConcurrentResolveSingleFlight(t *testing.T) {
	path, _ := createSpectrum(t, "mate", []int64{5, 6, 7, 8})
	c := newTestCache(t)
	req := Request{Source: path, Op: OpConvert, Target: "lc2"}

	const callers = 16
	files := make([]*File, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := c.Resolve(req)
			assert.NoError(t, err)
			files[i] = f
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, files[0], files[i], "all concurrent callers share one result")
	}
	assert.Equal(t, 1, c.Len())
}

func TestCacheStaleEntryEvicted(t *testing.T) {
	path, src := createSpectrum(t, "lc1", []int64{1, 1, 1})
	c := newTestCache(t)
	req := Request{Source: path, Op: OpConvert, Target: "lc2"}

	first, err := c.Resolve(req)
	require.NoError(t, err)
	got, err := first.ReadAllInts()
	require.NoError(t, err)
	require.Equal(t, []int64{1, 1, 1}, got)

	// Disk tokens include the mtime; make sure the rewrite lands on a
	// distinct timestamp even on coarse filesystem clocks.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, src.WriteAllInts([]int64{9, 9, 9}))

	second, err := c.Resolve(req)
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	got, err = second.ReadAllInts()
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 9, 9}, got)
}

func TestCacheInvalidateAll(t *testing.T) {
	path, _ := createSpectrum(t, "lc1", []int64{4, 5})
	c := newTestCache(t)
	req := Request{Source: path, Op: OpConvert, Target: "txt"}

	first, err := c.Resolve(req)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())

	second, err := c.Resolve(req)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, c.Len())
}

func TestCacheFailedTransformCommitsNothing(t *testing.T) {
	// Projecting a spectrum is invalid; the failure must leave the cache
	// empty rather than committing a partial result.
	path, _ := createSpectrum(t, "lc1", []int64{1, 2})
	c := newTestCache(t)

	_, err := c.Resolve(Request{Source: path, Op: OpProject, Axis: AxisRows, Target: "lc1"})
	assert.True(t, errors.Is(err, ErrIncompatibleShape))
	assert.Equal(t, 0, c.Len())

	// The cache stays usable after the failure.
	f, err := c.Resolve(Request{Source: path, Op: OpConvert, Target: "lc2"})
	require.NoError(t, err)
	got, err := f.ReadAllInts()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got)
}

func TestCacheMissingSource(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Resolve(Request{Source: "/no/such/file", Op: OpConvert, Target: "lc1"})
	assert.True(t, errors.Is(err, ErrResourceUnavailable))
}
