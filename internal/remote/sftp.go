package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"courier-go/internal/config"
	"courier-go/internal/courier"
)

const defaultSFTPPort = 22

// SFTPStore dials an SSH server and opens one SFTP session per Connect call.
// Authentication uses a private key, a password, or both, in that order.
type SFTPStore struct {
	cfg    config.RemoteConfig
	logger courier.Logger
}

var _ courier.RemoteStore = (*SFTPStore)(nil)

// NewSFTPStore validates the connection parameters and creates the store.
// Host is the only obligatory parameter.
func NewSFTPStore(cfg config.RemoteConfig, logger courier.Logger) (*SFTPStore, error) {
	if cfg.Host == "" {
		return nil, &courier.ConfigurationError{Reason: "sftp remote requires a host"}
	}
	return &SFTPStore{cfg: cfg, logger: logger}, nil
}

// Connect dials the server and opens an SFTP session. Authentication
// failures are reported as courier.AuthenticationError.
func (s *SFTPStore) Connect(ctx context.Context) (courier.RemoteConn, error) {
	sshCfg, err := s.clientConfig()
	if err != nil {
		return nil, err
	}

	port := s.cfg.Port
	if port == 0 {
		port = defaultSFTPPort
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))

	client, err := dialSSH(ctx, addr, sshCfg)
	if err != nil {
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, &courier.AuthenticationError{Host: s.cfg.Host, Err: err}
		}
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("opening sftp session on %s: %w", addr, err)
	}

	return &sftpConn{ssh: client, sftp: sftpClient}, nil
}

// clientConfig assembles the ssh.ClientConfig from the connection properties.
func (s *SFTPStore) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if s.cfg.PrivateKeyPath != "" {
		key, err := os.ReadFile(s.cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading private key: %w", err)
		}
		var signer ssh.Signer
		if s.cfg.PrivateKeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(s.cfg.PrivateKeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if s.cfg.Password != "" {
		auth = append(auth, ssh.Password(s.cfg.Password))
	}
	if len(auth) == 0 {
		return nil, &courier.ConfigurationError{Reason: "sftp remote requires a password or a private key"}
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if s.cfg.KnownHostsPath != "" {
		cb, err := knownhosts.New(s.cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts from %s: %w", s.cfg.KnownHostsPath, err)
		}
		hostKeyCallback = cb
	} else {
		s.logger.Warn("no known_hosts configured, host key will not be verified", "host", s.cfg.Host)
	}

	timeout := 30 * time.Second
	if s.cfg.DialTimeoutSeconds > 0 {
		timeout = time.Duration(s.cfg.DialTimeoutSeconds) * time.Second
	}

	return &ssh.ClientConfig{
		User:            s.cfg.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// dialSSH dials with the context honored during TCP connect. The SSH
// handshake itself is bounded by cfg.Timeout.
func dialSSH(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: cfg.Timeout}
	netConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	conn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return nil, err
	}
	return ssh.NewClient(conn, chans, reqs), nil
}

// sftpConn is one live SFTP session. pkg/sftp operations do not take a
// context, so cancellation is checked at operation boundaries only.
type sftpConn struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

var _ courier.RemoteConn = (*sftpConn)(nil)

func (c *sftpConn) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := c.sftp.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading remote directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Mode().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *sftpConn) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := c.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("creating remote file %s: %w", remotePath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("writing remote file %s: %w", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("closing remote file %s: %w", remotePath, err)
	}
	return nil
}

func (c *sftpConn) Download(ctx context.Context, remotePath, localPath string, preserveMtime bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := c.sftp.Open(remotePath)
	if err != nil {
		return fmt.Errorf("opening remote file %s: %w", remotePath, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("writing %s: %w", localPath, err)
	}
	// The caller removes the remote copy once we return; the local file
	// must be on disk, not in the page cache, before that happens.
	if err := dst.Sync(); err != nil {
		dst.Close()
		return fmt.Errorf("syncing %s: %w", localPath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", localPath, err)
	}

	if preserveMtime {
		if info, err := src.Stat(); err == nil {
			if err := os.Chtimes(localPath, info.ModTime(), info.ModTime()); err != nil {
				return fmt.Errorf("preserving mtime of %s: %w", localPath, err)
			}
		}
	}
	return nil
}

func (c *sftpConn) Remove(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.sftp.Remove(remotePath); err != nil {
		return fmt.Errorf("removing remote file %s: %w", remotePath, err)
	}
	return nil
}

func (c *sftpConn) Close() error {
	sftpErr := c.sftp.Close()
	sshErr := c.ssh.Close()
	if sftpErr != nil {
		return sftpErr
	}
	return sshErr
}
