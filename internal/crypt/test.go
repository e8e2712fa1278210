package crypt

import (
	"bytes"
	"fmt"
	"os"

	"courier-go/internal/courier"
)

var testHeader = []byte("COURIER-TEST-CRYPT\n")

// TestCrypter is a toy Crypter for exercising the transfer pipeline without
// real keys. It prepends a marker header on encrypt and strips it on
// decrypt. Never use it to protect anything.
type TestCrypter struct{}

var _ courier.Crypter = (*TestCrypter)(nil)

func NewTestCrypter() *TestCrypter {
	return &TestCrypter{}
}

func (c *TestCrypter) Encrypt(paths []string) ([][]byte, error) {
	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		out = append(out, append(append([]byte(nil), testHeader...), data...))
	}
	return out, nil
}

func (c *TestCrypter) Decrypt(paths []string) ([][]byte, error) {
	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		out = append(out, bytes.TrimPrefix(data, testHeader))
	}
	return out, nil
}
