package medium

import (
	"fmt"
	"io"
	"os"
)

// DiskFile is the byte-offset addressed backend over an ordinary file.
type DiskFile struct {
	path   string
	f      *os.File
	mode   Mode
	closed bool
}

func openFlags(mode Mode) int {
	switch mode {
	case WriteOnly:
		return os.O_WRONLY
	case ReadWrite:
		return os.O_RDWR
	}
	return os.O_RDONLY
}

func openDisk(path string, mode Mode) (*DiskFile, error) {
	f, err := os.OpenFile(path, openFlags(mode), 0)
	if err != nil {
		return nil, fmt.Errorf("medium: open %q: %v: %w", path, err, ErrResourceUnavailable)
	}
	return &DiskFile{path: path, f: f, mode: mode}, nil
}

func createDisk(path string) (*DiskFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("medium: create %q: %v: %w", path, err, ErrResourceUnavailable)
	}
	return &DiskFile{path: path, f: f, mode: ReadWrite}, nil
}

// ReadAt reads len(p) bytes at off. A read that would cross the current end
// of the file fails with ErrOutOfRange.
func (d *DiskFile) ReadAt(p []byte, off int64) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}
	if !d.mode.CanRead() {
		return 0, ErrWriteOnly
	}
	n, err := d.f.ReadAt(p, off)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, fmt.Errorf("medium: read [%d,%d) of %q: %w", off, off+int64(len(p)), d.path, ErrOutOfRange)
	}
	return n, err
}

// WriteAt writes p at off, extending the file when writing past its end.
func (d *DiskFile) WriteAt(p []byte, off int64) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}
	if !d.mode.CanWrite() {
		return 0, ErrReadOnly
	}
	return d.f.WriteAt(p, off)
}

// Truncate changes the file size.
func (d *DiskFile) Truncate(size int64) error {
	if d.closed {
		return ErrClosed
	}
	if !d.mode.CanWrite() {
		return ErrReadOnly
	}
	return d.f.Truncate(size)
}

// Size returns the current file size, or 0 if it cannot be determined.
func (d *DiskFile) Size() int64 {
	if d.closed {
		return 0
	}
	st, err := d.f.Stat()
	if err != nil {
		return 0
	}
	return st.Size()
}

// Token derives the validity token from the file's size and mtime.
func (d *DiskFile) Token() (Token, error) {
	if d.closed {
		return Token{}, ErrClosed
	}
	st, err := d.f.Stat()
	if err != nil {
		return Token{}, fmt.Errorf("medium: stat %q: %v: %w", d.path, err, ErrResourceUnavailable)
	}
	return Token{Size: st.Size(), ModTime: st.ModTime().UnixNano()}, nil
}

// Locator returns the filesystem path.
func (d *DiskFile) Locator() string { return d.path }

// Mode returns the access mode the file was opened with.
func (d *DiskFile) Mode() Mode { return d.mode }

// Close releases the file descriptor. Idempotent.
func (d *DiskFile) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.f.Close()
}
