package archive

import (
	"context"
	"fmt"
	"io"
	"sync"

	"chatpulse/internal/pulse"
)

// MemoryArchive stores reports in memory. Useful for testing and dry runs.
// Safe for concurrent use.
type MemoryArchive struct {
	mu      sync.RWMutex
	reports map[string][]byte
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{reports: make(map[string][]byte)}
}

// PutReport stores a report under name. Storing the same name twice
// overwrites the previous report.
func (m *MemoryArchive) PutReport(_ context.Context, name string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[name] = data
	return nil
}

// Report returns a stored report and whether it exists.
func (m *MemoryArchive) Report(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.reports[name]
	return data, ok
}

// Compile-time check that MemoryArchive implements pulse.Archive
var _ pulse.Archive = (*MemoryArchive)(nil)
