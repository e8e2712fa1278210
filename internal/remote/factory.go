package remote

import (
	"fmt"

	"courier-go/internal/config"
	"courier-go/internal/courier"
)

// NewStoreFromConfig creates a RemoteStore implementation based on the remote config type.
func NewStoreFromConfig(cfg config.RemoteConfig, logger courier.Logger) (courier.RemoteStore, error) {
	switch cfg.Type {
	case "sftp", "":
		return NewSFTPStore(cfg, logger)
	case "s3":
		return NewS3Store(cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown remote type: %q", cfg.Type)
	}
}
