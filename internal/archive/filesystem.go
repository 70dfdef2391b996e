package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chatpulse/internal/pulse"
)

// FileSystemArchive writes reports as files under a root directory, one file
// per report name.
type FileSystemArchive struct {
	root string
}

// NewFileSystemArchive creates a filesystem archive rooted at the given
// path, creating the directory if needed.
func NewFileSystemArchive(root string) (*FileSystemArchive, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &FileSystemArchive{root: root}, nil
}

// PutReport writes the report to <root>/<name>, overwriting any previous
// report with the same name.
func (f *FileSystemArchive) PutReport(_ context.Context, name string, body io.Reader, size int64) error {
	path := filepath.Join(f.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, body)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, wrote %d", size, written)
	}
	return nil
}

// Compile-time check that FileSystemArchive implements pulse.Archive
var _ pulse.Archive = (*FileSystemArchive)(nil)
