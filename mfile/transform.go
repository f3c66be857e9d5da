package mfile

import (
	"fmt"
	"math"

	"github.com/kspect/mfile/internal/format"
)

// Op selects a transform operation. The set is extensible; additional
// operators get new values without changing the Request shape.
type Op int

const (
	// OpConvert re-encodes the source into the target format, preserving
	// dimensions and element count exactly.
	OpConvert Op = iota

	// OpProject collapses a 2D source along one axis into a 1D result by
	// summation.
	OpProject

	// OpAdjust applies an integer rebin factor and/or a multiplicative
	// scale factor to a 1D source.
	OpAdjust
)

func (op Op) String() string {
	switch op {
	case OpConvert:
		return "convert"
	case OpProject:
		return "project"
	case OpAdjust:
		return "adjust"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Axis selects the summed axis of a projection.
type Axis int

const (
	// AxisRows sums over rows: the result has one element per column.
	AxisRows Axis = iota

	// AxisCols sums over columns: the result has one element per row.
	AxisCols
)

// Request describes a derived matrix: source identity, operation and target
// format. Immutable once constructed; it doubles as the conversion-cache
// key.
type Request struct {
	Source string
	Op     Op
	Axis   Axis
	Rebin  int
	Scale  float64
	Target string
}

// Key returns the cache key string for the request.
func (r Request) Key() string {
	return fmt.Sprintf("%s|%d|%d|%d|%g|%s", r.Source, r.Op, r.Axis, r.Rebin, r.Scale, r.Target)
}

// ResultDescriptor computes the descriptor of the resource that running req
// against src would produce, adapted to the target format's constraints.
func ResultDescriptor(src *File, req Request, reg *Registry) (Descriptor, error) {
	d := src.Descriptor()
	switch req.Op {
	case OpConvert:
		// Shape and count carried over unchanged.
	case OpProject:
		if d.Rank != 2 {
			return Descriptor{}, fmt.Errorf("mfile: projecting rank %d source: %w",
				d.Rank, ErrIncompatibleShape)
		}
		n := d.Cols
		if req.Axis == AxisCols {
			n = d.Rows
		}
		d.Rank, d.Rows, d.Cols = 1, 1, n
		if d.Type.IsFloat() {
			d.Type = Float64
		} else {
			d.Type = Int32
		}
	case OpAdjust:
		if d.Rank != 1 {
			return Descriptor{}, fmt.Errorf("mfile: adjusting rank %d source: %w",
				d.Rank, ErrIncompatibleShape)
		}
		if req.Rebin < 1 {
			return Descriptor{}, fmt.Errorf("mfile: rebin factor %d: %w",
				req.Rebin, ErrIncompatibleShape)
		}
		d.Cols = (d.Cols + req.Rebin - 1) / req.Rebin
		if d.Type.IsFloat() || (req.Scale != 1 && req.Scale != 0) {
			d.Type = Float64
		} else {
			d.Type = Int32
		}
	default:
		return Descriptor{}, fmt.Errorf("mfile: unsupported operation %s: %w",
			req.Op, ErrIncompatibleShape)
	}

	fb, err := reg.ByName(req.Target)
	if err != nil {
		return Descriptor{}, fmt.Errorf("mfile: %w", err)
	}
	return fb.Adapt(d)
}

// Run executes the requested transform from src into dst. The destination
// handle must have been created with the shape from ResultDescriptor.
func Run(dst, src *File, req Request) error {
	switch req.Op {
	case OpConvert:
		return Convert(dst, src)
	case OpProject:
		return Project(dst, src, req.Axis)
	case OpAdjust:
		return Adjust(dst, src, req.Rebin, req.Scale)
	}
	return fmt.Errorf("mfile: unsupported operation %s: %w", req.Op, ErrIncompatibleShape)
}

// Convert copies every element of src into dst, converting element type and
// byte order through the destination format. Dimensions and element count
// are preserved exactly.
func Convert(dst, src *File) error {
	if dst.NumElements() != src.NumElements() {
		return fmt.Errorf("mfile: converting %d elements into %d: %w",
			src.NumElements(), dst.NumElements(), ErrIncompatibleShape)
	}
	blk, err := src.readBlock(0, src.NumElements())
	if err != nil {
		return err
	}
	return dst.writeBlock(0, blk)
}

// addChecked adds b to a, failing with ErrNumericOverflow when the int64
// accumulator itself overflows.
func addChecked(a, b int64) (int64, error) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, fmt.Errorf("mfile: accumulator overflow at %d + %d: %w", a, b, ErrNumericOverflow)
	}
	return s, nil
}

// Project collapses the 2D source along the given axis into the 1D
// destination by summation. Integer sources accumulate in int64; overflow
// beyond that range fails rather than wrapping.
func Project(dst, src *File, axis Axis) error {
	d := src.Descriptor()
	if d.Rank != 2 {
		return fmt.Errorf("mfile: projecting rank %d source: %w", d.Rank, ErrIncompatibleShape)
	}
	outLen := d.Cols
	if axis == AxisCols {
		outLen = d.Rows
	}
	if dst.NumElements() != outLen {
		return fmt.Errorf("mfile: projection of %d elements into %d: %w",
			outLen, dst.NumElements(), ErrIncompatibleShape)
	}

	blk, err := src.readBlock(0, d.NumElements())
	if err != nil {
		return err
	}

	out := format.NewBlock(d.Type, outLen)
	for row := 0; row < d.Rows; row++ {
		for col := 0; col < d.Cols; col++ {
			i := row*d.Cols + col
			o := col
			if axis == AxisCols {
				o = row
			}
			if out.Kind == format.KindFloat {
				s := out.Float(o) + blk.Float(i)
				if math.IsInf(s, 0) {
					return fmt.Errorf("mfile: float accumulator overflow: %w", ErrNumericOverflow)
				}
				out.SetFloat(o, s)
			} else {
				s, err := addChecked(out.Int(o), blk.Int(i))
				if err != nil {
					return err
				}
				out.SetInt(o, s)
			}
		}
	}
	return dst.writeBlock(0, out)
}

// Adjust rebins and/or scales the 1D source into the destination. A rebin
// factor k groups k adjacent elements by summation; when k does not evenly
// divide the extent the final group holds the remainder rather than being
// discarded. The scale factor multiplies every (rebinned) value.
func Adjust(dst, src *File, rebin int, scale float64) error {
	d := src.Descriptor()
	if d.Rank != 1 {
		return fmt.Errorf("mfile: adjusting rank %d source: %w", d.Rank, ErrIncompatibleShape)
	}
	if rebin < 1 {
		return fmt.Errorf("mfile: rebin factor %d: %w", rebin, ErrIncompatibleShape)
	}
	if scale == 0 {
		scale = 1
	}
	n := d.NumElements()
	outLen := (n + rebin - 1) / rebin
	if dst.NumElements() != outLen {
		return fmt.Errorf("mfile: adjustment of %d elements into %d: %w",
			outLen, dst.NumElements(), ErrIncompatibleShape)
	}

	blk, err := src.readBlock(0, n)
	if err != nil {
		return err
	}

	useFloat := blk.Kind == format.KindFloat || scale != 1
	var out *format.Block
	if useFloat {
		out = format.FloatBlock(make([]float64, outLen))
	} else {
		out = format.IntBlock(make([]int64, outLen))
	}

	for g := 0; g < outLen; g++ {
		lo := g * rebin
		hi := lo + rebin
		if hi > n {
			hi = n
		}
		if useFloat {
			var s float64
			for i := lo; i < hi; i++ {
				s += blk.Float(i)
			}
			s *= scale
			if math.IsInf(s, 0) {
				return fmt.Errorf("mfile: float accumulator overflow: %w", ErrNumericOverflow)
			}
			out.SetFloat(g, s)
		} else {
			var s int64
			for i := lo; i < hi; i++ {
				if s, err = addChecked(s, blk.Int(i)); err != nil {
					return err
				}
			}
			out.SetInt(g, s)
		}
	}
	return dst.writeBlock(0, out)
}
