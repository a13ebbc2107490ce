package punch

import (
	"fmt"
	"os"
)

// File is a Backing over a regular file opened for appending
type File struct {
	*os.File
}

// OpenFile creates (or truncates) path for writing
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &File{File: f}, nil
}

// PunchHole deallocates the given range, keeping the file size
func (f *File) PunchHole(offset, length int64) error {
	return punchHole(f.File, offset, length)
}
