package courier

import "fmt"

// Mode selects the cryptographic transform applied during a transfer.
// It is a closed enumeration: sends encrypt under ModePGP, receives decrypt.
type Mode int

const (
	ModeNone Mode = iota
	ModePGP
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModePGP:
		return "pgp"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Crypter transforms files for transfer. Inputs are file paths; outputs are
// the transformed contents, one per input path, in order.
//
// A Service with no Crypter is valid as long as every transfer uses
// ModeNone; requesting ModePGP without a crypter is a ConfigurationError.
type Crypter interface {
	Encrypt(paths []string) ([][]byte, error)
	Decrypt(paths []string) ([][]byte, error)
}
