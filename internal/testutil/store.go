package testutil

import (
	"testing"

	"chatpulse/internal/pulse"
	"chatpulse/internal/store"
)

// NewTestStore creates a new in-memory SQLite store with migrations applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) pulse.Store {
	t.Helper()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		st.Close()
	})

	return st
}
