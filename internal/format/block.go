package format

import "math"

// Kind is the in-memory representation class of a Block.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
)

// KindOf maps an element type to its wide in-memory kind.
func KindOf(t ElemType) Kind {
	if t.IsFloat() {
		return KindFloat
	}
	return KindInt
}

// Block is a buffer of decoded element values in wide form: integer element
// types are carried as int64, float element types as float64. Accessors
// convert across kinds so a block of either kind can be handed to any
// format backend for encoding.
type Block struct {
	Kind   Kind
	Ints   []int64
	Floats []float64
}

// NewBlock allocates a block of n elements whose kind matches t.
func NewBlock(t ElemType, n int) *Block {
	if KindOf(t) == KindFloat {
		return &Block{Kind: KindFloat, Floats: make([]float64, n)}
	}
	return &Block{Kind: KindInt, Ints: make([]int64, n)}
}

// IntBlock wraps an int64 slice as a block without copying.
func IntBlock(v []int64) *Block {
	return &Block{Kind: KindInt, Ints: v}
}

// FloatBlock wraps a float64 slice as a block without copying.
func FloatBlock(v []float64) *Block {
	return &Block{Kind: KindFloat, Floats: v}
}

// Len returns the number of elements.
func (b *Block) Len() int {
	if b.Kind == KindFloat {
		return len(b.Floats)
	}
	return len(b.Ints)
}

// Int returns element i as an integer, rounding to nearest for float blocks.
func (b *Block) Int(i int) int64 {
	if b.Kind == KindFloat {
		return int64(math.Round(b.Floats[i]))
	}
	return b.Ints[i]
}

// Float returns element i as a float.
func (b *Block) Float(i int) float64 {
	if b.Kind == KindFloat {
		return b.Floats[i]
	}
	return float64(b.Ints[i])
}

// SetInt stores an integer value at index i.
func (b *Block) SetInt(i int, v int64) {
	if b.Kind == KindFloat {
		b.Floats[i] = float64(v)
		return
	}
	b.Ints[i] = v
}

// SetFloat stores a float value at index i.
func (b *Block) SetFloat(i int, v float64) {
	if b.Kind == KindFloat {
		b.Floats[i] = v
		return
	}
	b.Ints[i] = int64(math.Round(v))
}
