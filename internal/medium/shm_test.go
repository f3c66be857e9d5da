//go:build linux || darwin

package medium

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSegment(t *testing.T, size int64) (*Segment, string) {
	t.Helper()
	locator := fmt.Sprintf("shm:%d", 0x6d660000|os.Getpid()&0xffff)
	seg, err := createSegment(locator, size)
	if err != nil {
		t.Skipf("SysV shared memory unavailable: %v", err)
	}
	t.Cleanup(func() { seg.Remove() })
	return seg, locator
}

func TestSegmentFixedSize(t *testing.T) {
	seg, _ := testSegment(t, 64)

	_, err := seg.WriteAt([]byte{1, 2, 3}, 0)
	require.NoError(t, err)

	got := make([]byte, 3)
	_, err = seg.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	// The segment cannot be extended past its creation size.
	_, err = seg.WriteAt([]byte{9}, 64)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = seg.ReadAt(make([]byte, 1), 64)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, int64(64), seg.Size())
}

func TestSegmentGenerationCounter(t *testing.T) {
	seg, _ := testSegment(t, 32)

	tok1, err := seg.Token()
	require.NoError(t, err)

	_, err = seg.WriteAt([]byte{7}, 0)
	require.NoError(t, err)

	tok2, err := seg.Token()
	require.NoError(t, err)
	assert.Greater(t, tok2.Gen, tok1.Gen)
	assert.Equal(t, tok1.Size, tok2.Size)
}

func TestSegmentReopenByLocator(t *testing.T) {
	seg, locator := testSegment(t, 32)
	_, err := seg.WriteAt([]byte{0xaa, 0xbb}, 4)
	require.NoError(t, err)

	ro, err := Open(locator, ReadOnly)
	require.NoError(t, err)
	defer ro.Close()

	got := make([]byte, 2)
	_, err = ro.ReadAt(got, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb}, got)

	_, err = ro.WriteAt([]byte{1}, 0)
	assert.True(t, errors.Is(err, ErrReadOnly))
}
