package courier

import "time"

// Transfer directions and terminal statuses as recorded in history.
const (
	DirectionSend    = "send"
	DirectionReceive = "receive"

	StatusSent     = "sent"
	StatusReceived = "received"
	StatusFailed   = "failed"
)

// TransferRecord is one row of transfer history.
type TransferRecord struct {
	ID         string
	Direction  string // "send" or "receive"
	FileName   string
	RemotePath string
	Status     string // "sent", "received", or "failed"
	Error      string // empty unless Status is "failed"
	CreatedAt  time.Time
}

// Database persists transfer history. Recording is best-effort from the
// service's point of view: a history write failure is logged, never allowed
// to fail the transfer itself.
type Database interface {
	RecordTransfer(rec *TransferRecord) error

	// ListTransfers returns up to limit records, newest first.
	ListTransfers(limit int) ([]*TransferRecord, error)

	Close() error
}
