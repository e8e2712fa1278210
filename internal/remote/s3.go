package remote

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"courier-go/internal/config"
	"courier-go/internal/courier"
)

// S3Store serves transfers from a bucket on any S3-compatible endpoint.
// Remote directory paths map to object key prefixes.
type S3Store struct {
	cfg config.RemoteConfig
}

var _ courier.RemoteStore = (*S3Store)(nil)

// NewS3Store validates the connection parameters and creates the store.
func NewS3Store(cfg config.RemoteConfig) (*S3Store, error) {
	switch {
	case cfg.Endpoint == "":
		return nil, &courier.ConfigurationError{Reason: "s3 remote requires an endpoint"}
	case cfg.Bucket == "":
		return nil, &courier.ConfigurationError{Reason: "s3 remote requires a bucket"}
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return nil, &courier.ConfigurationError{Reason: "s3 remote requires access_key and secret_key"}
	}
	return &S3Store{cfg: cfg}, nil
}

// Connect creates a client and verifies the bucket is reachable. The client
// itself is connectionless; the bucket check is what makes TestConnection
// meaningful for this backend.
func (s *S3Store) Connect(ctx context.Context) (courier.RemoteConn, error) {
	client, err := minio.New(s.cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.cfg.AccessKey, s.cfg.SecretKey, ""),
		Secure: s.cfg.UseSSL,
		Region: s.cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client for %s: %w", s.cfg.Endpoint, err)
	}

	ok, err := client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "AccessDenied" || resp.Code == "InvalidAccessKeyId" || resp.Code == "SignatureDoesNotMatch" {
			return nil, &courier.AuthenticationError{Host: s.cfg.Endpoint, Err: err}
		}
		return nil, fmt.Errorf("checking bucket %s: %w", s.cfg.Bucket, err)
	}
	if !ok {
		return nil, fmt.Errorf("bucket does not exist: %s", s.cfg.Bucket)
	}

	return &s3Conn{client: client, bucket: s.cfg.Bucket}, nil
}

type s3Conn struct {
	client *minio.Client
	bucket string
}

var _ courier.RemoteConn = (*s3Conn)(nil)

// objectKey normalizes a remote path into an object key.
func objectKey(remotePath string) string {
	return strings.TrimPrefix(path.Clean(remotePath), "/")
}

func (c *s3Conn) List(ctx context.Context, dir string) ([]string, error) {
	prefix := objectKey(dir)
	if prefix != "" && prefix != "." {
		prefix += "/"
	} else {
		prefix = ""
	}

	var names []string
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing bucket %s: %w", c.bucket, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		// Non-recursive listing still reports common prefixes; skip them.
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *s3Conn) Upload(ctx context.Context, localPath, remotePath string) error {
	_, err := c.client.FPutObject(ctx, c.bucket, objectKey(remotePath), localPath, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", remotePath, err)
	}
	return nil
}

func (c *s3Conn) Download(ctx context.Context, remotePath, localPath string, preserveMtime bool) error {
	key := objectKey(remotePath)
	if err := c.client.FGetObject(ctx, c.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("downloading %s: %w", remotePath, err)
	}
	if preserveMtime {
		if stat, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{}); err == nil {
			if err := os.Chtimes(localPath, stat.LastModified, stat.LastModified); err != nil {
				return fmt.Errorf("preserving mtime of %s: %w", localPath, err)
			}
		}
	}
	return nil
}

func (c *s3Conn) Remove(ctx context.Context, remotePath string) error {
	if err := c.client.RemoveObject(ctx, c.bucket, objectKey(remotePath), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing %s: %w", remotePath, err)
	}
	return nil
}

func (c *s3Conn) Close() error { return nil }
