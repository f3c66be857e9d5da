// Package medium provides uniform byte-range access to the physical media a
// matrix file can live on: ordinary disk files and SysV shared-memory
// segments.
//
// A locator selects the medium by shape alone: anything starting with "shm:"
// addresses a shared-memory segment by numeric key, everything else is a
// filesystem path. The layers above never inspect the medium.
package medium

import (
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors. Callers match with errors.Is; context is added with
// fmt.Errorf("...: %w", err) at the point of failure.
var (
	ErrResourceUnavailable = errors.New("medium: resource unavailable")
	ErrOutOfRange          = errors.New("medium: access out of range")
	ErrReadOnly            = errors.New("medium: write on read-only resource")
	ErrWriteOnly           = errors.New("medium: read on write-only resource")
	ErrClosed              = errors.New("medium: resource closed")
)

// Mode is the access mode a backend is opened with.
type Mode int

const (
	ReadOnly Mode = iota
	WriteOnly
	ReadWrite
)

// CanRead reports whether the mode permits reads.
func (m Mode) CanRead() bool { return m != WriteOnly }

// CanWrite reports whether the mode permits writes.
func (m Mode) CanWrite() bool { return m != ReadOnly }

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "ro"
	case WriteOnly:
		return "wo"
	case ReadWrite:
		return "rw"
	}
	return "invalid"
}

// Token identifies the modification state of a resource. Disk files carry
// size plus last-write time; shared-memory segments carry size plus an
// in-process generation counter bumped on every successful write.
type Token struct {
	Size    int64
	ModTime int64
	Gen     uint64
}

// Backend is the uniform byte-range interface over one physical resource.
// A backend owns its resource exclusively for its lifetime.
//
// ReadAt and WriteAt follow io.ReaderAt/io.WriterAt signatures. Reads past
// the current extent fail with ErrOutOfRange. Writes past the end extend the
// resource where the medium permits it (disk files); fixed-size media
// (shared-memory segments) fail with ErrOutOfRange instead.
type Backend interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Size() int64
	Token() (Token, error)
	Locator() string
	Mode() Mode
	Close() error
}

const shmPrefix = "shm:"

// IsShm reports whether the locator addresses a shared-memory segment.
func IsShm(locator string) bool {
	return strings.HasPrefix(locator, shmPrefix)
}

func shmKey(locator string) (int, error) {
	key, err := strconv.Atoi(strings.TrimPrefix(locator, shmPrefix))
	if err != nil {
		return 0, err
	}
	return key, nil
}

// Open opens an existing resource in the given mode.
func Open(locator string, mode Mode) (Backend, error) {
	if IsShm(locator) {
		return openSegment(locator, mode)
	}
	return openDisk(locator, mode)
}

// Create creates a fresh resource and opens it read-write. An existing
// resource at the same locator is replaced. The size is binding for
// shared-memory segments, whose extent is fixed at creation; disk files are
// created empty and grow as they are written.
func Create(locator string, size int64) (Backend, error) {
	if IsShm(locator) {
		return createSegment(locator, size)
	}
	return createDisk(locator)
}
