package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for courier.
type Config struct {
	QueueRoot  string           `toml:"queue_root"`
	LogDir     string           `toml:"log_dir"`
	Remote     RemoteConfig     `toml:"remote"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Alert      *AlertConfig     `toml:"alert,omitempty"`
}

// RemoteConfig configures the remote file store backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "sftp", "s3", or "memory"

	// SFTP-specific fields (only used when Type == "sftp")
	Host                 string `toml:"host,omitempty"`
	Port                 int    `toml:"port,omitempty"` // default 22
	Username             string `toml:"username,omitempty"`
	Password             string `toml:"password,omitempty"`
	PrivateKeyPath       string `toml:"private_key_path,omitempty"`
	PrivateKeyPassphrase string `toml:"private_key_passphrase,omitempty"`
	KnownHostsPath       string `toml:"known_hosts_path,omitempty"`
	DialTimeoutSeconds   int    `toml:"dial_timeout_seconds,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	Endpoint  string `toml:"endpoint,omitempty"`
	AccessKey string `toml:"access_key,omitempty"`
	SecretKey string `toml:"secret_key,omitempty"`
	Bucket    string `toml:"bucket,omitempty"`
	Region    string `toml:"region,omitempty"`
	UseSSL    bool   `toml:"use_ssl,omitempty"`
}

// EncryptionConfig configures the cryptographic transform.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type EncryptionConfig struct {
	Type string `toml:"type"` // "none", "pgp", or "test"

	// PGP-specific fields (only used when Type == "pgp")
	PublicKeyringPath    string `toml:"public_keyring_path,omitempty"`
	PrivateKeyringPath   string `toml:"private_keyring_path,omitempty"`
	RecipientFingerprint string `toml:"recipient_fingerprint,omitempty"`
	SigningFingerprint   string `toml:"signing_fingerprint,omitempty"`
	Passphrase           string `toml:"passphrase,omitempty"`
	Comment              string `toml:"comment,omitempty"` // armor Comment header
}

// DatabaseConfig configures the transfer history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// AlertConfig configures the SMTP failure alerter. The section is optional;
// when absent, failures are logged but nobody is mailed.
type AlertConfig struct {
	Host       string   `toml:"host"`
	Port       int      `toml:"port"` // default 587
	Username   string   `toml:"username"`
	Password   string   `toml:"password"`
	From       string   `toml:"from"`
	Recipients []string `toml:"recipients"` // first is To, the rest Cc
}

// NewConfig creates a Config with the provided queue root and default paths
// under baseDir.
func NewConfig(queueRoot, baseDir string) *Config {
	return &Config{
		QueueRoot: queueRoot,
		LogDir:    filepath.Join(baseDir, "log"),
		Remote: RemoteConfig{
			Type: "sftp",
			Port: 22,
		},
		Encryption: EncryptionConfig{
			Type:               "none",
			PublicKeyringPath:  filepath.Join(baseDir, "keys", "pubring.asc"),
			PrivateKeyringPath: filepath.Join(baseDir, "keys", "secring.asc"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
