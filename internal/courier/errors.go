package courier

import (
	"fmt"
	"strings"
)

// SetupError reports that the queue root is missing required directories.
// It is fatal to the call that detected it; create the directories with
// Queue.Setup (CLI: `courier setup`) and retry.
type SetupError struct {
	Root    string
	Missing []string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("queue root %s is missing required directories: %s",
		e.Root, strings.Join(e.Missing, ", "))
}

// ConfigurationError reports a missing or invalid configuration value, such
// as an absent remote host or a PGP transfer without a configured crypter.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// AuthenticationError reports a failed login against a remote endpoint.
type AuthenticationError struct {
	Host string
	Err  error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication against %s failed: %v", e.Host, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Operation names for TransferError.Op.
const (
	OpQueue    = "queue"
	OpEncrypt  = "encrypt"
	OpDecrypt  = "decrypt"
	OpUpload   = "upload"
	OpDownload = "download"
	OpRemove   = "remove"
	OpDeliver  = "deliver"
)

// TransferError reports the failure of a single file's transfer attempt.
// It always carries the file's name and the underlying cause; a failed file
// never aborts the rest of the batch.
type TransferError struct {
	File string // queued file name
	Op   string // which step failed, one of the Op constants
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s failed during %s: %v", e.File, e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
