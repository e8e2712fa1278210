package courier

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// QueueDir names one of the four queue directories.
type QueueDir string

const (
	DirInbox    QueueDir = "Inbox"
	DirOutbox   QueueDir = "Outbox"
	DirSent     QueueDir = "Sent"
	DirAwaiting QueueDir = "Awaiting"
)

// QueueDirs lists every directory a queue root must contain.
var QueueDirs = []QueueDir{DirInbox, DirOutbox, DirSent, DirAwaiting}

// Queue is the set of four flat directories under a root. The directories
// themselves are the only state: there is no index file, and a directory
// listing is the single source of truth for what is queued where.
//
// The queue provides no locking. Callers running Send/Receive against the
// same root must serialize those calls themselves.
type Queue struct {
	root string
}

// NewQueue creates a Queue rooted at the given directory. The root is not
// validated here; call Verify before transferring.
func NewQueue(root string) *Queue {
	return &Queue{root: root}
}

// Root returns the queue root directory.
func (q *Queue) Root() string { return q.root }

// Path returns the absolute path of one of the queue directories.
func (q *Queue) Path(dir QueueDir) string {
	return filepath.Join(q.root, string(dir))
}

// FilePath returns the path a file with the given name would have inside dir.
func (q *Queue) FilePath(dir QueueDir, name string) string {
	return filepath.Join(q.Path(dir), name)
}

// Verify checks that all four queue directories exist under the root.
// If any are missing it returns a SetupError naming them; remediation
// (Setup, or a CLI prompt) is the caller's decision.
func (q *Queue) Verify() error {
	var missing []string
	for _, dir := range QueueDirs {
		info, err := os.Stat(q.Path(dir))
		if err != nil || !info.IsDir() {
			missing = append(missing, string(dir))
		}
	}
	if len(missing) > 0 {
		return &SetupError{Root: q.root, Missing: missing}
	}
	return nil
}

// Setup creates any queue directories missing under the root. Directories
// that already exist are left untouched.
func (q *Queue) Setup() error {
	for _, dir := range QueueDirs {
		if err := os.MkdirAll(q.Path(dir), 0755); err != nil {
			return fmt.Errorf("creating queue directory %s: %w", dir, err)
		}
	}
	return nil
}

// List returns the names of the regular files in a queue directory, sorted.
// Subdirectories and other non-file entries are skipped.
func (q *Queue) List(dir QueueDir) ([]string, error) {
	entries, err := os.ReadDir(q.Path(dir))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// NonConflictingPath returns a path inside dir for the given file name that
// does not collide with an existing entry. On conflict, _N (smallest positive
// N not in use) is inserted before the last extension segment:
// report.csv -> report_1.csv, archive.tar.gz -> archive.tar_1.gz.
//
// Derivation is side-effect-free: nothing reserves the name, so a window
// exists between choosing it and creating the file. This is a known
// limitation; callers must serialize access to the queue root.
func (q *Queue) NonConflictingPath(dir QueueDir, name string) string {
	base := q.Path(dir)
	candidate := filepath.Join(base, name)
	for n := 1; exists(candidate); n++ {
		candidate = filepath.Join(base, numberedName(name, n))
	}
	return candidate
}

// numberedName inserts _n before the last .-delimited extension segment.
func numberedName(name string, n int) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
