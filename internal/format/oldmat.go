package format

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kspect/mfile/internal/medium"
)

// Oldmat is the headerless pre-revision matrix layout: a bare square
// little-endian int32 matrix whose side length is implied by the resource
// size. With no magic to check, its probe is a pure size heuristic, so it
// must be registered after every magic-carrying format.
type Oldmat struct{}

const (
	oldmatMinSide = 8
	oldmatMaxSide = 16384
)

func (f *Oldmat) Name() string { return "oldmat" }

// oldmatSide returns the implied side length, or 0 when the size does not
// describe a square int32 matrix.
func oldmatSide(size int64) int {
	if size <= 0 || size%4 != 0 {
		return 0
	}
	n := size / 4
	k := int64(math.Sqrt(float64(n)))
	for ; k*k < n; k++ {
	}
	if k*k != n || k < oldmatMinSide || k > oldmatMaxSide {
		return 0
	}
	return int(k)
}

func (f *Oldmat) Probe(_ []byte, size int64) bool {
	return oldmatSide(size) != 0
}

func (f *Oldmat) ReadDescriptor(b medium.Backend) (*Descriptor, error) {
	side := oldmatSide(b.Size())
	if side == 0 {
		return nil, fmt.Errorf("oldmat: size %d is not a square int32 matrix: %w",
			b.Size(), ErrMalformedHeader)
	}
	return &Descriptor{
		Format: f.Name(),
		Order:  binary.LittleEndian,
		Type:   Int32,
		Rank:   2,
		Rows:   side,
		Cols:   side,
	}, nil
}

func (f *Oldmat) Adapt(d Descriptor) (Descriptor, error) {
	if d.Rank != 2 || d.Rows != d.Cols {
		return Descriptor{}, fmt.Errorf("oldmat: %dx%d rank %d source: %w",
			d.Rows, d.Cols, d.Rank, ErrIncompatibleShape)
	}
	if d.Rows < oldmatMinSide || d.Rows > oldmatMaxSide {
		return Descriptor{}, fmt.Errorf("oldmat: side %d outside [%d,%d]: %w",
			d.Rows, oldmatMinSide, oldmatMaxSide, ErrIncompatibleShape)
	}
	d.Format = f.Name()
	d.Order = binary.LittleEndian
	d.Type = Int32
	d.Cal = nil
	return d, nil
}

// Format has no header to write; it only materializes the zeroed data
// region so the implied size is correct from the start.
func (f *Oldmat) Format(b medium.Backend, d *Descriptor) error {
	return zeroFill(b, 0, f.FileSize(d))
}

func (f *Oldmat) FileSize(d *Descriptor) int64 {
	return int64(d.NumElements() * d.Type.Size())
}

func (f *Oldmat) ReadElements(b medium.Backend, d *Descriptor, r Region, dst *Block) error {
	return readContiguous(b, d, r, dst, 0)
}

func (f *Oldmat) WriteElements(b medium.Backend, d *Descriptor, r Region, src *Block) error {
	return writeContiguous(b, d, r, src, 0)
}
