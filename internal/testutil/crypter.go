package testutil

import (
	"courier-go/internal/courier"
	"courier-go/internal/crypt"
)

// NewTestCrypter creates the marker-based crypter for testing transfer
// pipelines without real keys.
func NewTestCrypter() courier.Crypter {
	return crypt.NewTestCrypter()
}
