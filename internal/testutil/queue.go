package testutil

import (
	"os"
	"testing"

	"courier-go/internal/courier"
)

// NewTestQueue creates a queue rooted in a fresh temp directory with all
// four queue directories in place.
func NewTestQueue(t *testing.T) *courier.Queue {
	t.Helper()

	q := courier.NewQueue(t.TempDir())
	if err := q.Setup(); err != nil {
		t.Fatalf("setting up queue: %v", err)
	}
	return q
}

// WriteQueueFile places a file with the given content into one of the queue
// directories and returns its path.
func WriteQueueFile(t *testing.T, q *courier.Queue, dir courier.QueueDir, name string, content []byte) string {
	t.Helper()

	p := q.FilePath(dir, name)
	if err := os.WriteFile(p, content, 0644); err != nil {
		t.Fatalf("writing queue file %s: %v", p, err)
	}
	return p
}
