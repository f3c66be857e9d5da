//go:build linux || darwin

package medium

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Segment is the backend over a SysV shared-memory segment. The segment's
// size is fixed at creation; writes past the end fail with ErrOutOfRange
// rather than extending.
type Segment struct {
	locator string
	key     int
	id      int
	data    []byte
	mode    Mode
	gen     *atomic.Uint64
	closed  bool
}

// Segment mtimes do not exist, so modification tracking uses per-key
// generation counters local to this process (single-process usage model).
var segmentGens sync.Map // int key -> *atomic.Uint64

func genFor(key int) *atomic.Uint64 {
	g, _ := segmentGens.LoadOrStore(key, new(atomic.Uint64))
	return g.(*atomic.Uint64)
}

func openSegment(locator string, mode Mode) (*Segment, error) {
	key, err := shmKey(locator)
	if err != nil {
		return nil, fmt.Errorf("medium: bad shm key %q: %w", locator, ErrResourceUnavailable)
	}
	id, err := unix.SysvShmGet(key, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("medium: shmget key %d: %v: %w", key, err, ErrResourceUnavailable)
	}
	var flag int
	if !mode.CanWrite() {
		flag = unix.SHM_RDONLY
	}
	data, err := unix.SysvShmAttach(id, 0, flag)
	if err != nil {
		return nil, fmt.Errorf("medium: shmat key %d: %v: %w", key, err, ErrResourceUnavailable)
	}
	return &Segment{locator: locator, key: key, id: id, data: data, mode: mode, gen: genFor(key)}, nil
}

func createSegment(locator string, size int64) (*Segment, error) {
	key, err := shmKey(locator)
	if err != nil {
		return nil, fmt.Errorf("medium: bad shm key %q: %w", locator, ErrResourceUnavailable)
	}
	if size <= 0 {
		return nil, fmt.Errorf("medium: shm segment size %d: %w", size, ErrResourceUnavailable)
	}
	id, err := unix.SysvShmGet(key, int(size), unix.IPC_CREAT|0o600)
	if err != nil {
		return nil, fmt.Errorf("medium: shmget key %d: %v: %w", key, err, ErrResourceUnavailable)
	}
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("medium: shmat key %d: %v: %w", key, err, ErrResourceUnavailable)
	}
	return &Segment{locator: locator, key: key, id: id, data: data, mode: ReadWrite, gen: genFor(key)}, nil
}

// ReadAt reads len(p) bytes at off within the segment.
func (s *Segment) ReadAt(p []byte, off int64) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if !s.mode.CanRead() {
		return 0, ErrWriteOnly
	}
	if off < 0 || off+int64(len(p)) > int64(len(s.data)) {
		return 0, fmt.Errorf("medium: read [%d,%d) of %q (size %d): %w",
			off, off+int64(len(p)), s.locator, len(s.data), ErrOutOfRange)
	}
	return copy(p, s.data[off:]), nil
}

// WriteAt writes p at off. The segment cannot be extended.
func (s *Segment) WriteAt(p []byte, off int64) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if !s.mode.CanWrite() {
		return 0, ErrReadOnly
	}
	if off < 0 || off+int64(len(p)) > int64(len(s.data)) {
		return 0, fmt.Errorf("medium: write [%d,%d) of %q (size %d): %w",
			off, off+int64(len(p)), s.locator, len(s.data), ErrOutOfRange)
	}
	n := copy(s.data[off:], p)
	s.gen.Add(1)
	return n, nil
}

// Truncate is rejected unless the size already matches: a segment's extent
// is fixed at creation.
func (s *Segment) Truncate(size int64) error {
	if s.closed {
		return ErrClosed
	}
	if size != int64(len(s.data)) {
		return fmt.Errorf("medium: resize segment %q from %d to %d: %w",
			s.locator, len(s.data), size, ErrOutOfRange)
	}
	return nil
}

// Size returns the fixed segment size.
func (s *Segment) Size() int64 {
	if s.closed {
		return 0
	}
	return int64(len(s.data))
}

// Token derives the validity token from the segment size and the in-process
// generation counter.
func (s *Segment) Token() (Token, error) {
	if s.closed {
		return Token{}, ErrClosed
	}
	return Token{Size: int64(len(s.data)), Gen: s.gen.Load()}, nil
}

// Locator returns the shm:<key> locator.
func (s *Segment) Locator() string { return s.locator }

// Mode returns the access mode the segment was attached with.
func (s *Segment) Mode() Mode { return s.mode }

// Close detaches the segment. Idempotent. The segment itself persists until
// removed with IPC_RMID by its owner.
func (s *Segment) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.SysvShmDetach(s.data)
}

// Remove detaches and destroys the segment.
func (s *Segment) Remove() error {
	if err := s.Close(); err != nil {
		return err
	}
	_, err := unix.SysvShmCtl(s.id, unix.IPC_RMID, nil)
	return err
}
