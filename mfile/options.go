package mfile

import (
	"github.com/kspect/mfile/internal/format"
	"github.com/kspect/mfile/internal/medium"
)

// Mode is the access mode a handle is opened with.
type Mode = medium.Mode

const (
	ReadOnly  Mode = medium.ReadOnly
	WriteOnly Mode = medium.WriteOnly
	ReadWrite Mode = medium.ReadWrite
)

// ElemType identifies the element type of a matrix file.
type ElemType = format.ElemType

const (
	Int8    ElemType = format.Int8
	Uint8   ElemType = format.Uint8
	Int16   ElemType = format.Int16
	Uint16  ElemType = format.Uint16
	Int32   ElemType = format.Int32
	Uint32  ElemType = format.Uint32
	Float32 ElemType = format.Float32
	Float64 ElemType = format.Float64
)

// ParseElemType maps a type name ("int32", "float64", ...) to its ElemType.
func ParseElemType(s string) (ElemType, error) {
	return format.ParseElemType(s)
}

// Descriptor is the canonical metadata of a matrix file.
type Descriptor = format.Descriptor

// Calibration carries optional axis-calibration coefficients.
type Calibration = format.Calibration

// Registry is an ordered set of format backends.
type Registry = format.Registry

// DefaultRegistry returns the standard registry with all seven legacy
// layouts in contract probe order.
func DefaultRegistry() *Registry {
	return format.Default()
}

// NewRegistry builds a registry probing only the named backends, in the
// given order. Useful for tests needing a controlled subset.
func NewRegistry(names ...string) (*Registry, error) {
	std := format.Default()
	backends := make([]format.Backend, 0, len(names))
	for _, name := range names {
		fb, err := std.ByName(name)
		if err != nil {
			return nil, err
		}
		backends = append(backends, fb)
	}
	return format.NewRegistry(backends...), nil
}

// OpenOption configures Open and Create.
type OpenOption func(*openOptions)

type openOptions struct {
	mode     Mode
	registry *Registry
	forced   string
}

func defaultOpenOptions() *openOptions {
	return &openOptions{
		mode:     ReadOnly,
		registry: format.Default(),
	}
}

// WithMode sets the access mode. Open defaults to ReadOnly.
func WithMode(m Mode) OpenOption {
	return func(o *openOptions) {
		o.mode = m
	}
}

// WithRegistry substitutes the format registry, e.g. one constructed
// per-test with a controlled backend subset.
func WithRegistry(r *Registry) OpenOption {
	return func(o *openOptions) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithFormat skips probing and forces the named backend.
func WithFormat(name string) OpenOption {
	return func(o *openOptions) {
		o.forced = name
	}
}
