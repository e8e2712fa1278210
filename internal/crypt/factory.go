package crypt

import (
	"fmt"

	"courier-go/internal/config"
	"courier-go/internal/courier"
)

// NewCrypterFromConfig creates a Crypter implementation based on the
// encryption config type. Type "none" (or empty) yields a nil Crypter;
// callers get a ConfigurationError from the service if they then request
// encrypted transfers.
func NewCrypterFromConfig(cfg config.EncryptionConfig) (courier.Crypter, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "pgp":
		return NewPGPCrypter(cfg)
	case "test":
		return NewTestCrypter(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
