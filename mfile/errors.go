package mfile

import (
	"errors"

	"github.com/kspect/mfile/internal/format"
	"github.com/kspect/mfile/internal/medium"
)

// Errors surfaced by the engine. The medium- and format-level sentinels are
// re-exported so callers only ever match against this package.
var (
	// ErrResourceUnavailable means the underlying medium could not be
	// opened or attached in the requested mode.
	ErrResourceUnavailable = medium.ErrResourceUnavailable

	// ErrUnrecognizedFormat means no registered backend claimed the stream.
	ErrUnrecognizedFormat = format.ErrUnrecognizedFormat

	// ErrMalformedHeader means a backend claimed the stream but its
	// declared metadata is internally inconsistent.
	ErrMalformedHeader = format.ErrMalformedHeader

	// ErrOutOfRange means an access beyond the resource's bounds.
	ErrOutOfRange = medium.ErrOutOfRange

	// ErrIncompatibleShape means a conversion or projection target cannot
	// represent the source's rank or extents.
	ErrIncompatibleShape = format.ErrIncompatibleShape

	// ErrNumericOverflow means an accumulation or encode exceeded the
	// representable range.
	ErrNumericOverflow = format.ErrNumericOverflow

	// ErrReadOnly means a write was attempted through a read-only handle.
	ErrReadOnly = medium.ErrReadOnly

	// ErrWriteOnly means a read was attempted through a write-only handle.
	ErrWriteOnly = medium.ErrWriteOnly

	// ErrClosed means the handle has been closed; a closed handle is
	// never reused.
	ErrClosed = errors.New("mfile: handle is closed")

	// ErrShapeMismatch means a caller-supplied buffer disagrees with the
	// handle's declared extents or requested region.
	ErrShapeMismatch = errors.New("mfile: buffer shape disagrees with declared extents")
)
