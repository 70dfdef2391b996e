package pulse

import (
	"context"
	"io"
)

// Archive persists rendered daily reports outside the store.
type Archive interface {
	// PutReport stores a report under a slash-separated name.
	PutReport(ctx context.Context, name string, body io.Reader, size int64) error
}
