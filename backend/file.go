package backend

import (
	"fmt"
	"io"
	"os"
)

// fileStore is a BackingStore backed by a single host file, opened for
// exclusive read/write access for the lifetime of one mounted filesystem.
type fileStore struct {
	f *os.File
}

// Open opens an existing image file at path for read/write use as a
// BackingStore. The file must already exist; use Create to make a new one.
func Open(path string) (BackingStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", path, err)
	}
	return &fileStore{f: f}, nil
}

// Create creates (overwriting if necessary) a new image file at path sized
// to exactly n bytes, ready to be formatted by nanofs.Init.
func Create(path string, n int64) (BackingStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("backend: create %s: %w", path, err)
	}
	if err := f.Truncate(n); err != nil {
		f.Close()
		return nil, fmt.Errorf("backend: size %s to %d bytes: %w", path, n, err)
	}
	return &fileStore{f: f}, nil
}

func (s *fileStore) ReadAt(off int64, length int) ([]byte, error) {
	if s.f == nil {
		return nil, ErrClosed
	}
	if off < 0 || length < 0 {
		return nil, ErrOutOfRange
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(io.NewSectionReader(s.f, off, int64(length)), buf); err != nil {
		return nil, fmt.Errorf("backend: read %d bytes at %d: %w", length, off, err)
	}
	return buf, nil
}

func (s *fileStore) WriteAt(off int64, data []byte) error {
	if s.f == nil {
		return ErrClosed
	}
	if off < 0 {
		return ErrOutOfRange
	}
	if _, err := s.f.WriteAt(data, off); err != nil {
		return fmt.Errorf("backend: write %d bytes at %d: %w", len(data), off, err)
	}
	return nil
}

func (s *fileStore) Truncate(n int64) error {
	if s.f == nil {
		return ErrClosed
	}
	if err := s.f.Truncate(n); err != nil {
		return fmt.Errorf("backend: truncate to %d: %w", n, err)
	}
	return nil
}

func (s *fileStore) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
