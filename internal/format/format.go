// Package format implements the legacy binary matrix/histogram file layouts
// and the registry that dispatches an opened byte stream to exactly one of
// them.
//
// Each backend recognizes its layout from a bounded stream prefix, reads and
// writes the format's header as a canonical Descriptor, and moves element
// data through a medium.Backend. The exact header field widths and orderings
// are binding: files written here must be readable by the long-lived
// instruments and tools that defined these layouts.
package format

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kspect/mfile/internal/medium"
)

// Sentinel errors matched by callers with errors.Is.
var (
	ErrUnrecognizedFormat = errors.New("format: no backend recognizes the stream")
	ErrMalformedHeader    = errors.New("format: header metadata is inconsistent")
	ErrIncompatibleShape  = errors.New("format: shape cannot be represented")
	ErrNumericOverflow    = errors.New("format: value outside representable range")
)

// PeekLen is the stream prefix length handed to Probe. Large enough for the
// biggest fixed header (trixi's 512-byte record).
const PeekLen = 512

// Calibration carries optional axis-calibration polynomial coefficients
// extracted from a header. Not all formats supply one.
type Calibration struct {
	Coeffs []float64
}

// Descriptor is the canonical metadata extracted from a format header.
// Rank 1 resources (spectra) have Rows == 1 and Cols holding the channel
// count; rank 2 resources are Rows x Cols, row-major.
type Descriptor struct {
	Format string
	Order  binary.ByteOrder
	Type   ElemType
	Rank   int
	Rows   int
	Cols   int
	Cal    *Calibration
}

// NumElements returns the total element count.
func (d *Descriptor) NumElements() int {
	return d.Rows * d.Cols
}

// Validate checks internal consistency of the descriptor fields.
func (d *Descriptor) Validate() error {
	if d.Rank != 1 && d.Rank != 2 {
		return fmt.Errorf("format: rank %d: %w", d.Rank, ErrMalformedHeader)
	}
	if d.Rows <= 0 || d.Cols <= 0 {
		return fmt.Errorf("format: extents %dx%d: %w", d.Rows, d.Cols, ErrMalformedHeader)
	}
	if d.Rank == 1 && d.Rows != 1 {
		return fmt.Errorf("format: rank 1 with %d rows: %w", d.Rows, ErrMalformedHeader)
	}
	if !d.Type.Valid() {
		return fmt.Errorf("format: element type tag %d: %w", d.Type, ErrMalformedHeader)
	}
	return nil
}

// Region is a flat, row-major element range [Start, Start+Count).
type Region struct {
	Start int
	Count int
}

func checkRegion(d *Descriptor, r Region) error {
	if r.Start < 0 || r.Count < 0 || r.Start+r.Count > d.NumElements() {
		return fmt.Errorf("format: region [%d,%d) of %d elements: %w",
			r.Start, r.Start+r.Count, d.NumElements(), medium.ErrOutOfRange)
	}
	return nil
}

// Backend encodes and decodes one legacy layout.
type Backend interface {
	// Name is the stable format identifier ("lc1", "gf2", ...).
	Name() string

	// Probe inspects a bounded stream prefix plus the total resource size
	// and reports whether this backend claims the stream. It must be
	// side-effect free and must never parse beyond the prefix.
	Probe(prefix []byte, size int64) bool

	// ReadDescriptor parses the header into the canonical descriptor,
	// failing with ErrMalformedHeader when the declared metadata is
	// internally inconsistent (e.g. a data region larger than the
	// resource).
	ReadDescriptor(b medium.Backend) (*Descriptor, error)

	// Adapt maps a source descriptor onto this format's constraints
	// (fixed element type, supported ranks, byte order), failing with
	// ErrIncompatibleShape when the rank or extents cannot be
	// represented.
	Adapt(d Descriptor) (Descriptor, error)

	// Format writes a fresh header for d and materializes a zeroed data
	// region, so the resource is immediately readable.
	Format(b medium.Backend, d *Descriptor) error

	// FileSize returns the total byte size of a resource holding d.
	FileSize(d *Descriptor) int64

	// ReadElements decodes the elements of region r into dst.
	ReadElements(b medium.Backend, d *Descriptor, r Region, dst *Block) error

	// WriteElements encodes the elements of region r from src.
	WriteElements(b medium.Backend, d *Descriptor, r Region, src *Block) error
}

// Registry resolves an opened stream to exactly one backend by probing in a
// fixed priority order: strict-magic formats first, the size-heuristic
// oldmat layout next, and the text format last, since it accepts the widest
// range of inputs. The order is part of the format contract.
type Registry struct {
	backends []Backend
}

// NewRegistry builds a registry probing in the given order.
func NewRegistry(backends ...Backend) *Registry {
	return &Registry{backends: backends}
}

// Default returns the standard registry with all seven layouts in contract
// order.
func Default() *Registry {
	return NewRegistry(
		&Mate{},
		&GF2{},
		&Trixi{},
		&LC{Revision: 1},
		&LC{Revision: 2},
		&Oldmat{},
		&Txt{},
	)
}

// Identify returns the first backend whose probe claims the stream.
func (r *Registry) Identify(prefix []byte, size int64) (Backend, error) {
	if size == 0 {
		return nil, fmt.Errorf("format: empty stream: %w", ErrUnrecognizedFormat)
	}
	for _, b := range r.backends {
		if b.Probe(prefix, size) {
			return b, nil
		}
	}
	return nil, ErrUnrecognizedFormat
}

// ByName returns the backend with the given format identifier.
func (r *Registry) ByName(name string) (Backend, error) {
	for _, b := range r.backends {
		if b.Name() == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("format: %q: %w", name, ErrUnrecognizedFormat)
}

// Backends returns the probe order.
func (r *Registry) Backends() []Backend {
	return r.backends
}

// readContiguous serves ReadElements for layouts whose data region is a
// dense element array at a fixed offset.
func readContiguous(b medium.Backend, d *Descriptor, r Region, dst *Block, dataOff int64) error {
	if err := checkRegion(d, r); err != nil {
		return err
	}
	if dst.Len() != r.Count {
		return fmt.Errorf("format: block of %d elements for region of %d: %w",
			dst.Len(), r.Count, ErrIncompatibleShape)
	}
	sz := d.Type.Size()
	raw := make([]byte, r.Count*sz)
	if _, err := b.ReadAt(raw, dataOff+int64(r.Start*sz)); err != nil {
		return err
	}
	return decodeElems(raw, d.Order, d.Type, dst, 0)
}

// writeContiguous serves WriteElements for dense layouts.
func writeContiguous(b medium.Backend, d *Descriptor, r Region, src *Block, dataOff int64) error {
	if err := checkRegion(d, r); err != nil {
		return err
	}
	if src.Len() != r.Count {
		return fmt.Errorf("format: block of %d elements for region of %d: %w",
			src.Len(), r.Count, ErrIncompatibleShape)
	}
	sz := d.Type.Size()
	raw, err := encodeElems(src, 0, r.Count, d.Order, d.Type)
	if err != nil {
		return err
	}
	_, err = b.WriteAt(raw, dataOff+int64(r.Start*sz))
	return err
}

// zeroFill writes n zero bytes at off in bounded chunks.
func zeroFill(b medium.Backend, off, n int64) error {
	const chunk = 64 << 10
	zeros := make([]byte, chunk)
	for n > 0 {
		c := n
		if c > chunk {
			c = chunk
		}
		if _, err := b.WriteAt(zeros[:c], off); err != nil {
			return err
		}
		off += c
		n -= c
	}
	return nil
}
