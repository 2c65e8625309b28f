// Package storage keeps deliverable uploads in a single directory on disk.
package storage

import (
	"fmt"
	"io/fs"
	"os"
)

type Storage struct {
	validator *PathValidator
}

func New(root string) (*Storage, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &Storage{validator: validator}, nil
}

func (s *Storage) RootAbs() string {
	return s.validator.RootAbs()
}

func (s *Storage) Resolve(name string) (string, error) {
	return s.validator.ResolvePath(name)
}

func (s *Storage) Stat(name string) (fs.FileInfo, error) {
	resolved, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	return os.Stat(resolved)
}

func (s *Storage) RemoveAll(name string) error {
	resolved, err := s.Resolve(name)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(resolved); err != nil {
		return fmt.Errorf("remove %q: %w", name, err)
	}

	return nil
}

func (s *Storage) OpenForRead(name string) (*os.File, error) {
	resolved, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	return os.Open(resolved)
}

// OpenForWrite creates the file exclusively. Upload names embed a millisecond
// timestamp, so an existing file means a collision and is never overwritten.
func (s *Storage) OpenForWrite(name string) (*os.File, error) {
	resolved, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(resolved, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}

	return file, nil
}
