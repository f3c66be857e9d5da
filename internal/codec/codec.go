// Package codec provides low-level binary encode/decode primitives for the
// legacy matrix file formats.
//
// Every format backend is built on two layers from this package: pure
// fixed-width integer/float codecs parameterized by byte order, and
// positioned Reader/Writer types for header parsing over an io.ReaderAt or
// io.WriterAt.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrWidth is returned when an unsupported field width is requested.
var ErrWidth = errors.New("codec: width must be 1, 2, 4, or 8")

// Uint decodes an unsigned integer of the given width from buf.
func Uint(order binary.ByteOrder, buf []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	panic(ErrWidth)
}

// PutUint encodes an unsigned integer of the given width into buf.
func PutUint(order binary.ByteOrder, buf []byte, v uint64, width int) {
	switch width {
	case 1:
		buf[0] = uint8(v)
	case 2:
		order.PutUint16(buf, uint16(v))
	case 4:
		order.PutUint32(buf, uint32(v))
	case 8:
		order.PutUint64(buf, v)
	default:
		panic(ErrWidth)
	}
}

// Float32 reinterprets 4 bytes as an IEEE-754 single-precision value.
func Float32(order binary.ByteOrder, buf []byte) float32 {
	return math.Float32frombits(order.Uint32(buf))
}

// PutFloat32 stores the bit pattern of an IEEE-754 single-precision value.
func PutFloat32(order binary.ByteOrder, buf []byte, v float32) {
	order.PutUint32(buf, math.Float32bits(v))
}

// Float64 reinterprets 8 bytes as an IEEE-754 double-precision value.
func Float64(order binary.ByteOrder, buf []byte) float64 {
	return math.Float64frombits(order.Uint64(buf))
}

// PutFloat64 stores the bit pattern of an IEEE-754 double-precision value.
func PutFloat64(order binary.ByteOrder, buf []byte, v float64) {
	order.PutUint64(buf, math.Float64bits(v))
}
