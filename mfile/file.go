// Package mfile provides unified access to the legacy binary matrix and
// histogram file formats used in nuclear-spectroscopy data acquisition.
//
// A File is the canonical, format-agnostic view of an opened resource:
// clients see dimensions, element type and byte order, and read or write
// element values without knowing the format-specific byte layout. Resources
// are addressed by locator: a filesystem path, or "shm:<key>" for a SysV
// shared-memory segment.
package mfile

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/kspect/mfile/internal/format"
	"github.com/kspect/mfile/internal/medium"
)

// File is an open matrix/histogram resource. Extents and element type are
// immutable for the lifetime of the handle. Reads on one handle may proceed
// concurrently; writes hold the handle exclusively for their duration.
type File struct {
	mu     sync.RWMutex
	med    medium.Backend
	fb     format.Backend
	desc   format.Descriptor
	closed bool
}

// Open opens the resource at locator, resolves its format through the
// registry, and reads its descriptor. Any failure during opening leaves no
// live handle behind.
func Open(locator string, opts ...OpenOption) (*File, error) {
	o := defaultOpenOptions()
	for _, opt := range opts {
		opt(o)
	}

	med, err := medium.Open(locator, o.mode)
	if err != nil {
		return nil, err
	}

	var fb format.Backend
	if o.forced != "" {
		fb, err = o.registry.ByName(o.forced)
	} else {
		size := med.Size()
		n := int64(format.PeekLen)
		if n > size {
			n = size
		}
		prefix := make([]byte, n)
		if n > 0 {
			if _, rerr := med.ReadAt(prefix, 0); rerr != nil {
				med.Close()
				return nil, fmt.Errorf("mfile: probing %q: %w", locator, rerr)
			}
		}
		fb, err = o.registry.Identify(prefix, size)
	}
	if err != nil {
		med.Close()
		return nil, fmt.Errorf("mfile: %q: %w", locator, err)
	}

	desc, err := fb.ReadDescriptor(med)
	if err != nil {
		med.Close()
		return nil, fmt.Errorf("mfile: %q: %w", locator, err)
	}

	return &File{med: med, fb: fb, desc: *desc}, nil
}

// Create creates a fresh resource at locator in the named format, adapting
// the descriptor to the format's constraints and writing its header plus a
// zeroed data region. The handle is open read-write.
func Create(locator, formatName string, d Descriptor, opts ...OpenOption) (*File, error) {
	o := defaultOpenOptions()
	for _, opt := range opts {
		opt(o)
	}

	fb, err := o.registry.ByName(formatName)
	if err != nil {
		return nil, fmt.Errorf("mfile: %w", err)
	}
	adapted, err := fb.Adapt(d)
	if err != nil {
		return nil, fmt.Errorf("mfile: creating %q: %w", locator, err)
	}
	if err := adapted.Validate(); err != nil {
		return nil, fmt.Errorf("mfile: creating %q: %w", locator, err)
	}

	med, err := medium.Create(locator, fb.FileSize(&adapted))
	if err != nil {
		return nil, err
	}
	if err := fb.Format(med, &adapted); err != nil {
		med.Close()
		return nil, fmt.Errorf("mfile: formatting %q as %s: %w", locator, formatName, err)
	}

	return &File{med: med, fb: fb, desc: adapted}, nil
}

// Rank returns 1 for a spectrum, 2 for a matrix.
func (f *File) Rank() int { return f.desc.Rank }

// Rows returns the row extent (1 for a spectrum).
func (f *File) Rows() int { return f.desc.Rows }

// Cols returns the column extent (the channel count for a spectrum).
func (f *File) Cols() int { return f.desc.Cols }

// NumElements returns the total element count.
func (f *File) NumElements() int { return f.desc.NumElements() }

// ElemType returns the on-disk element type.
func (f *File) ElemType() ElemType { return f.desc.Type }

// ByteOrder returns the format's byte order.
func (f *File) ByteOrder() binary.ByteOrder { return f.desc.Order }

// FormatName returns the identifier of the backend that produced the handle.
func (f *File) FormatName() string { return f.fb.Name() }

// Calibration returns the axis-calibration hint, or nil if the format
// supplies none.
func (f *File) Calibration() *Calibration { return f.desc.Cal }

// Descriptor returns a copy of the canonical descriptor.
func (f *File) Descriptor() Descriptor { return f.desc }

// Mode returns the access mode.
func (f *File) Mode() Mode { return f.med.Mode() }

// Locator returns the locator the handle was opened with.
func (f *File) Locator() string { return f.med.Locator() }

// readBlock reads count elements starting at start into a block of the
// file's native kind.
func (f *File) readBlock(start, count int) (*format.Block, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrClosed
	}
	if !f.med.Mode().CanRead() {
		return nil, ErrWriteOnly
	}
	blk := format.NewBlock(f.desc.Type, count)
	if err := f.fb.ReadElements(f.med, &f.desc, format.Region{Start: start, Count: count}, blk); err != nil {
		return nil, err
	}
	return blk, nil
}

// writeBlock writes blk starting at element start.
func (f *File) writeBlock(start int, blk *format.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if !f.med.Mode().CanWrite() {
		return ErrReadOnly
	}
	return f.fb.WriteElements(f.med, &f.desc, format.Region{Start: start, Count: blk.Len()}, blk)
}

// ReadInts reads count elements starting at the flat row-major index start,
// converting float-valued formats by rounding to nearest.
func (f *File) ReadInts(start, count int) ([]int64, error) {
	blk, err := f.readBlock(start, count)
	if err != nil {
		return nil, err
	}
	out := make([]int64, count)
	for i := range out {
		out[i] = blk.Int(i)
	}
	return out, nil
}

// ReadFloats reads count elements starting at the flat row-major index
// start as float64 values.
func (f *File) ReadFloats(start, count int) ([]float64, error) {
	blk, err := f.readBlock(start, count)
	if err != nil {
		return nil, err
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = blk.Float(i)
	}
	return out, nil
}

// ReadAllInts reads every element.
func (f *File) ReadAllInts() ([]int64, error) {
	return f.ReadInts(0, f.desc.NumElements())
}

// ReadAllFloats reads every element.
func (f *File) ReadAllFloats() ([]float64, error) {
	return f.ReadFloats(0, f.desc.NumElements())
}

// ReadRowInts reads one row of a matrix.
func (f *File) ReadRowInts(row int) ([]int64, error) {
	if row < 0 || row >= f.desc.Rows {
		return nil, fmt.Errorf("mfile: row %d of %d: %w", row, f.desc.Rows, ErrOutOfRange)
	}
	return f.ReadInts(row*f.desc.Cols, f.desc.Cols)
}

// WriteInts writes vals starting at the flat row-major index start.
func (f *File) WriteInts(start int, vals []int64) error {
	return f.writeBlock(start, format.IntBlock(vals))
}

// WriteFloats writes vals starting at the flat row-major index start.
func (f *File) WriteFloats(start int, vals []float64) error {
	return f.writeBlock(start, format.FloatBlock(vals))
}

// WriteAllInts replaces every element. The buffer length must equal the
// declared element count.
func (f *File) WriteAllInts(vals []int64) error {
	if len(vals) != f.desc.NumElements() {
		return fmt.Errorf("mfile: %d values for %d elements: %w",
			len(vals), f.desc.NumElements(), ErrShapeMismatch)
	}
	return f.WriteInts(0, vals)
}

// WriteAllFloats replaces every element. The buffer length must equal the
// declared element count.
func (f *File) WriteAllFloats(vals []float64) error {
	if len(vals) != f.desc.NumElements() {
		return fmt.Errorf("mfile: %d values for %d elements: %w",
			len(vals), f.desc.NumElements(), ErrShapeMismatch)
	}
	return f.WriteFloats(0, vals)
}

// Close releases the underlying resource. Idempotent; a closed handle is
// never reused.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.med.Close()
}
