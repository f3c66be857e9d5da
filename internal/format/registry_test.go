package format

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryEmptyStream(t *testing.T) {
	_, err := Default().Identify(nil, 0)
	assert.True(t, errors.Is(err, ErrUnrecognizedFormat))
}

func TestRegistryUnrecognized(t *testing.T) {
	// Binary garbage with no magic and a non-square size.
	prefix := []byte{0x00, 0x01, 0x02, 0x03, 0xfe}
	_, err := Default().Identify(prefix, 5)
	assert.True(t, errors.Is(err, ErrUnrecognizedFormat))
}

func TestRegistryByName(t *testing.T) {
	reg := Default()
	for _, name := range []string{"lc1", "lc2", "gf2", "mate", "oldmat", "trixi", "txt"} {
		fb, err := reg.ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, fb.Name())
	}
	_, err := reg.ByName("nope")
	assert.True(t, errors.Is(err, ErrUnrecognizedFormat))
}

// TestRegistryOrderSensitive probes a crafted stream that two backends both
// claim: a plain-text listing padded to exactly the size of a square int32
// matrix. Resolution must follow registration order in both directions.
func TestRegistryOrderSensitive(t *testing.T) {
	// 4 * 64 * 64 bytes of printable digits: oldmat's size heuristic and
	// txt's printable-prefix probe both claim it.
	stream := bytes.Repeat([]byte("7 "), 8192)
	size := int64(len(stream))

	require.True(t, (&Oldmat{}).Probe(stream[:PeekLen], size))
	require.True(t, (&Txt{}).Probe(stream[:PeekLen], size))

	first, err := NewRegistry(&Oldmat{}, &Txt{}).Identify(stream[:PeekLen], size)
	require.NoError(t, err)
	assert.Equal(t, "oldmat", first.Name())

	second, err := NewRegistry(&Txt{}, &Oldmat{}).Identify(stream[:PeekLen], size)
	require.NoError(t, err)
	assert.Equal(t, "txt", second.Name())
}

// TestDefaultOrder pins the contract probe order: strict-magic formats
// first, the size-heuristic oldmat next, text last.
func TestDefaultOrder(t *testing.T) {
	var names []string
	for _, b := range Default().Backends() {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"mate", "gf2", "trixi", "lc1", "lc2", "oldmat", "txt"}, names)
}

func TestMagicFormatsNotShadowedByText(t *testing.T) {
	prefix := make([]byte, mateHeaderSize)
	copy(prefix, mateMagic)
	prefix[7] = 32 // channels = 32, big-endian

	fb, err := Default().Identify(prefix, mateHeaderSize+64)
	require.NoError(t, err)
	assert.Equal(t, "mate", fb.Name())
}
