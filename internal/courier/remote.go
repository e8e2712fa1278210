package courier

import "context"

// RemoteStore opens connections to a remote file endpoint. Implementations
// own dialing, authentication, and timeouts; the service only asks for a
// connection per operation and releases it when the operation ends.
type RemoteStore interface {
	Connect(ctx context.Context) (RemoteConn, error)
}

// RemoteConn is a live connection to the remote endpoint. One connection is
// held for the duration of a single Send/Receive/Test call and must be
// closed on every exit path. Remote paths use forward slashes.
type RemoteConn interface {
	// List returns the file names directly under dir, sorted.
	List(ctx context.Context, dir string) ([]string, error)

	// Upload copies the local file's content to remotePath.
	Upload(ctx context.Context, localPath, remotePath string) error

	// Download copies the remote file to localPath. The local file must be
	// durably written (synced and closed) before Download returns, so the
	// caller may remove the remote copy afterwards. When preserveMtime is
	// set, the local file carries the remote modification time.
	Download(ctx context.Context, remotePath, localPath string, preserveMtime bool) error

	// Remove deletes the remote file.
	Remove(ctx context.Context, remotePath string) error

	Close() error
}
