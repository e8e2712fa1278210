package testutil

import (
	"courier-go/internal/remote"
)

// NewTestRemote creates an in-memory remote store for testing.
func NewTestRemote() *remote.MemoryStore {
	return remote.NewMemoryStore()
}
