package remote

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"courier-go/internal/courier"
)

// MemoryStore is an in-memory implementation of the remote store, useful for
// testing and for dry runs without a real endpoint. It is safe for
// concurrent use.
type MemoryStore struct {
	files  map[string][]byte // clean remote path -> content
	mtimes map[string]time.Time
	mu     sync.RWMutex
}

var _ courier.RemoteStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory remote store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:  make(map[string][]byte),
		mtimes: make(map[string]time.Time),
	}
}

// Put seeds a remote file. Intended for tests.
func (m *MemoryStore) Put(remotePath string, content []byte, mtime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := path.Clean(remotePath)
	m.files[p] = append([]byte(nil), content...)
	m.mtimes[p] = mtime
}

// Get returns a remote file's content, if present. Intended for tests.
func (m *MemoryStore) Get(remotePath string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path.Clean(remotePath)]
	return data, ok
}

func (m *MemoryStore) Connect(ctx context.Context) (courier.RemoteConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryConn{store: m}, nil
}

type memoryConn struct {
	store *MemoryStore
}

var _ courier.RemoteConn = (*memoryConn)(nil)

func (c *memoryConn) List(ctx context.Context, dir string) ([]string, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	clean := path.Clean(dir)
	var names []string
	for p := range c.store.files {
		if path.Dir(p) == clean {
			names = append(names, path.Base(p))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *memoryConn) Upload(ctx context.Context, localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", localPath, err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	p := path.Clean(remotePath)
	c.store.files[p] = data
	c.store.mtimes[p] = time.Now()
	return nil
}

func (c *memoryConn) Download(ctx context.Context, remotePath, localPath string, preserveMtime bool) error {
	c.store.mu.RLock()
	data, ok := c.store.files[path.Clean(remotePath)]
	mtime := c.store.mtimes[path.Clean(remotePath)]
	c.store.mu.RUnlock()

	if !ok {
		return fmt.Errorf("remote file not found: %s", remotePath)
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", localPath, err)
	}
	if preserveMtime && !mtime.IsZero() {
		if err := os.Chtimes(localPath, mtime, mtime); err != nil {
			return fmt.Errorf("preserving mtime of %s: %w", localPath, err)
		}
	}
	return nil
}

func (c *memoryConn) Remove(ctx context.Context, remotePath string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	p := path.Clean(remotePath)
	if _, ok := c.store.files[p]; !ok {
		return fmt.Errorf("remote file not found: %s", remotePath)
	}
	delete(c.store.files, p)
	delete(c.store.mtimes, p)
	return nil
}

func (c *memoryConn) Close() error { return nil }
