package format

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kspect/mfile/internal/codec"
)

// ElemType identifies the on-disk element type of a matrix file. The
// numeric values double as the element-type tags stored in lc headers, so
// they must not be reordered.
type ElemType uint8

const (
	Int8 ElemType = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

// Size returns the element width in bytes.
func (t ElemType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// Signed reports whether the type is a signed integer type.
func (t ElemType) Signed() bool {
	return t == Int8 || t == Int16 || t == Int32
}

// IsFloat reports whether the type is a floating-point type.
func (t ElemType) IsFloat() bool {
	return t == Float32 || t == Float64
}

// Valid reports whether t is one of the defined element types.
func (t ElemType) Valid() bool {
	return t <= Float64
}

func (t ElemType) String() string {
	switch t {
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("ElemType(%d)", uint8(t))
}

// ParseElemType maps a type name to its ElemType.
func ParseElemType(s string) (ElemType, error) {
	for t := Int8; t <= Float64; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("format: unknown element type %q", s)
}

// intRange returns the representable value range of an integer element type.
func intRange(t ElemType) (lo, hi int64) {
	switch t {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Uint8:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Uint16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Uint32:
		return 0, math.MaxUint32
	}
	return 0, 0
}

// decodeElems decodes n raw elements into dst starting at index at.
// Integer types sign- or zero-extend into the block's wide representation;
// float types reinterpret the stored bit pattern.
func decodeElems(raw []byte, order binary.ByteOrder, t ElemType, dst *Block, at int) error {
	sz := t.Size()
	if sz == 0 || len(raw)%sz != 0 {
		return fmt.Errorf("format: raw length %d not a multiple of element size %d", len(raw), sz)
	}
	n := len(raw) / sz
	for i := 0; i < n; i++ {
		b := raw[i*sz : (i+1)*sz]
		switch t {
		case Float32:
			dst.SetFloat(at+i, float64(codec.Float32(order, b)))
		case Float64:
			dst.SetFloat(at+i, codec.Float64(order, b))
		default:
			u := codec.Uint(order, b, sz)
			if t.Signed() {
				// Sign-extend from the declared width.
				shift := uint(64 - 8*sz)
				dst.SetInt(at+i, int64(u<<shift)>>shift)
			} else {
				dst.SetInt(at+i, int64(u))
			}
		}
	}
	return nil
}

// encodeElems encodes count elements of src starting at index from into a
// fresh byte slice. Integer targets reject values outside their
// representable range with ErrNumericOverflow; float-to-integer conversion
// rounds to nearest.
func encodeElems(src *Block, from, count int, order binary.ByteOrder, t ElemType) ([]byte, error) {
	sz := t.Size()
	raw := make([]byte, count*sz)
	for i := 0; i < count; i++ {
		b := raw[i*sz : (i+1)*sz]
		switch t {
		case Float32:
			codec.PutFloat32(order, b, float32(src.Float(from+i)))
		case Float64:
			codec.PutFloat64(order, b, src.Float(from+i))
		default:
			v := src.Int(from + i)
			lo, hi := intRange(t)
			if v < lo || v > hi {
				return nil, fmt.Errorf("format: value %d outside %s range [%d,%d]: %w",
					v, t, lo, hi, ErrNumericOverflow)
			}
			codec.PutUint(order, b, uint64(v), sz)
		}
	}
	return raw, nil
}
