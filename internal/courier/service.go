package courier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Service is the transfer queue manager. It owns the lifecycle of files in
// the four queue directories and mediates their movement as transfers to and
// from the remote store succeed or fail.
//
// All operations are synchronous and single-threaded. The service does not
// lock the queue directories; callers must not run two operations against
// the same queue root concurrently.
type Service struct {
	queue    *Queue
	remote   RemoteStore
	crypter  Crypter // nil when no transform is configured
	database Database
	notifier Notifier
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewService creates a Service with the provided collaborators.
// crypter and database may be nil; notifier and logger must not be
// (use NopNotifier / NopLogger).
func NewService(queue *Queue, remote RemoteStore, crypter Crypter, database Database, notifier Notifier, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		queue:    queue,
		remote:   remote,
		crypter:  crypter,
		database: database,
		notifier: notifier,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// Queue returns the queue the service operates on.
func (s *Service) Queue() *Queue { return s.queue }

// SendReport summarizes one SendTo call.
type SendReport struct {
	Sent   []string // final paths in Sent
	Failed []*TransferError
}

// SendTo uploads every file currently in the Outbox to remoteDst.
//
// The Outbox listing is snapshotted once at call start; files added during
// the run are not picked up. Each file moves Outbox -> Awaiting -> Sent on
// success, or rolls back Awaiting -> Outbox on failure. One file's failure
// does not stop the rest of the batch; per-file errors are collected in the
// report and joined into the returned error.
func (s *Service) SendTo(ctx context.Context, remoteDst string, mode Mode) (*SendReport, error) {
	if err := s.preflight(mode); err != nil {
		return nil, err
	}

	conn, err := s.remote.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	names, err := s.queue.List(DirOutbox)
	if err != nil {
		return nil, err
	}

	report := &SendReport{}
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		remotePath := path.Join(remoteDst, name)
		sentPath, terr := s.sendOne(ctx, conn, name, remotePath, mode)
		if terr != nil {
			report.Failed = append(report.Failed, terr)
			errs = append(errs, terr)
			s.reportFailure(DirectionSend, name, remotePath, terr)
			continue
		}
		report.Sent = append(report.Sent, sentPath)
		s.record(&TransferRecord{
			Direction:  DirectionSend,
			FileName:   name,
			RemotePath: remotePath,
			Status:     StatusSent,
		})
		s.logger.Info("file sent", "file", name, "remote", remotePath, "mode", mode.String())
	}
	return report, errors.Join(errs...)
}

// sendOne moves a single Outbox file through Awaiting and uploads it.
// On success the file ends up in Sent and its final path is returned.
func (s *Service) sendOne(ctx context.Context, conn RemoteConn, name, remotePath string, mode Mode) (string, *TransferError) {
	outboxPath := s.queue.FilePath(DirOutbox, name)
	awaitingPath := s.queue.NonConflictingPath(DirAwaiting, name)

	// Commit point: once the file is out of the Outbox its name is no
	// longer visible there, so a second caller cannot re-send it.
	if err := os.Rename(outboxPath, awaitingPath); err != nil {
		return "", &TransferError{File: name, Op: OpQueue, Err: err}
	}

	uploadPath := awaitingPath
	var artifact string
	if mode == ModePGP {
		p, err := s.encryptAwaiting(awaitingPath)
		if err != nil {
			s.rollback(awaitingPath, name)
			return "", &TransferError{File: name, Op: OpEncrypt, Err: err}
		}
		artifact = p
		uploadPath = p
	}

	err := conn.Upload(ctx, uploadPath, remotePath)
	if artifact != "" {
		// The ciphertext is transient either way; never leave it behind.
		if rmErr := os.Remove(artifact); rmErr != nil {
			s.logger.Warn("could not remove encrypted artifact", "path", artifact, "error", rmErr)
		}
	}
	if err != nil {
		s.rollback(awaitingPath, name)
		return "", &TransferError{File: name, Op: OpUpload, Err: err}
	}

	sentPath := s.queue.NonConflictingPath(DirSent, name)
	if err := os.Rename(awaitingPath, sentPath); err != nil {
		return "", &TransferError{File: name, Op: OpQueue, Err: err}
	}
	return sentPath, nil
}

// encryptAwaiting runs the crypter over one Awaiting file and writes the
// ciphertext next to it as a transient artifact. The artifact path is
// returned; the caller removes it when the attempt concludes.
func (s *Service) encryptAwaiting(awaitingPath string) (string, error) {
	contents, err := s.crypter.Encrypt([]string{awaitingPath})
	if err != nil {
		return "", err
	}
	if len(contents) != 1 {
		return "", fmt.Errorf("crypter returned %d outputs for one input", len(contents))
	}
	artifact := s.queue.NonConflictingPath(DirAwaiting, filepath.Base(awaitingPath)+".pgp")
	if err := os.WriteFile(artifact, contents[0], 0600); err != nil {
		return "", fmt.Errorf("writing encrypted artifact: %w", err)
	}
	return artifact, nil
}

// rollback returns a file from Awaiting to the Outbox under its original
// name so it stays retryable. If the original name has been taken since the
// commit point, a conflict-resolved name is used instead.
func (s *Service) rollback(awaitingPath, name string) {
	target := s.queue.FilePath(DirOutbox, name)
	if exists(target) {
		target = s.queue.NonConflictingPath(DirOutbox, name)
	}
	if err := os.Rename(awaitingPath, target); err != nil {
		s.logger.Error("rollback failed, file stranded in Awaiting",
			"file", name, "awaiting", awaitingPath, "error", err)
	}
}

// ReceiveFrom downloads every file under remoteSrc into the queue and
// returns the final Inbox paths.
//
// The remote listing is taken once. Each file is downloaded into Awaiting
// under a non-conflicting name; the remote copy is removed only after the
// local copy is durably written. When all downloads have been attempted, the
// decrypt (ModePGP) or copy (ModeNone) transform delivers the fetched batch
// from Awaiting into the Inbox and the Awaiting originals are deleted.
//
// A failed download leaves nothing partial on disk and does not stop the
// remaining files; a failed transform leaves the fetched files in Awaiting,
// where nothing is lost and nothing is retried automatically.
func (s *Service) ReceiveFrom(ctx context.Context, remoteSrc string, mode Mode) ([]string, error) {
	if err := s.preflight(mode); err != nil {
		return nil, err
	}

	conn, err := s.remote.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	names, err := conn.List(ctx, remoteSrc)
	if err != nil {
		return nil, fmt.Errorf("listing remote %s: %w", remoteSrc, err)
	}

	var fetched []string
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		remotePath := path.Join(remoteSrc, name)
		localPath := s.queue.NonConflictingPath(DirAwaiting, name)
		if err := conn.Download(ctx, remotePath, localPath, true); err != nil {
			// Never keep a partial download.
			os.Remove(localPath)
			terr := &TransferError{File: name, Op: OpDownload, Err: err}
			errs = append(errs, terr)
			s.reportFailure(DirectionReceive, name, remotePath, terr)
			continue
		}
		fetched = append(fetched, localPath)

		// The local copy is durable; only now may the remote copy go.
		if err := conn.Remove(ctx, remotePath); err != nil {
			// The file is safe locally and still delivered. The remote
			// copy may be re-fetched later; conflict naming makes that
			// harmless.
			terr := &TransferError{File: name, Op: OpRemove, Err: err}
			errs = append(errs, terr)
			s.reportFailure(DirectionReceive, name, remotePath, terr)
		}
	}

	delivered, derrs := s.deliver(fetched, mode)
	errs = append(errs, derrs...)
	for _, p := range delivered {
		name := filepath.Base(p)
		s.record(&TransferRecord{
			Direction:  DirectionReceive,
			FileName:   name,
			RemotePath: remoteSrc,
			Status:     StatusReceived,
		})
		s.logger.Info("file received", "file", name, "remote", remoteSrc, "mode", mode.String())
	}
	return delivered, errors.Join(errs...)
}

// deliver applies the transform to the fetched batch, writes the results
// into the Inbox, and deletes the Awaiting originals. A transform failure
// keeps every Awaiting original in place.
func (s *Service) deliver(fetched []string, mode Mode) ([]string, []error) {
	if len(fetched) == 0 {
		return nil, nil
	}

	var contents [][]byte
	var err error
	switch mode {
	case ModePGP:
		contents, err = s.crypter.Decrypt(fetched)
	default:
		contents, err = readFiles(fetched)
	}
	if err != nil {
		return nil, []error{&TransferError{File: joinNames(fetched), Op: OpDecrypt, Err: err}}
	}
	if len(contents) != len(fetched) {
		err := fmt.Errorf("crypter returned %d outputs for %d inputs", len(contents), len(fetched))
		return nil, []error{&TransferError{File: joinNames(fetched), Op: OpDecrypt, Err: err}}
	}

	var delivered []string
	var errs []error
	for i, src := range fetched {
		name := filepath.Base(src)
		dst := s.queue.NonConflictingPath(DirInbox, name)
		if err := os.WriteFile(dst, contents[i], 0644); err != nil {
			errs = append(errs, &TransferError{File: name, Op: OpDeliver, Err: err})
			continue
		}
		if err := os.Remove(src); err != nil {
			s.logger.Warn("could not remove Awaiting original", "file", name, "error", err)
		}
		delivered = append(delivered, dst)
	}
	return delivered, errs
}

// ConnectionResult reports the outcome of a connection test.
type ConnectionResult struct {
	OK  bool
	Err error
}

// TestConnection opens and immediately closes a remote connection.
func (s *Service) TestConnection(ctx context.Context) ConnectionResult {
	conn, err := s.remote.Connect(ctx)
	if err != nil {
		return ConnectionResult{Err: err}
	}
	if err := conn.Close(); err != nil {
		return ConnectionResult{Err: err}
	}
	return ConnectionResult{OK: true}
}

// History returns the most recent transfer records, newest first.
func (s *Service) History(limit int) ([]*TransferRecord, error) {
	if s.database == nil {
		return nil, nil
	}
	recs, err := s.database.ListTransfers(limit)
	if err != nil {
		return nil, fmt.Errorf("listing transfer history: %w", err)
	}
	return recs, nil
}

// preflight runs the checks shared by SendTo and ReceiveFrom.
func (s *Service) preflight(mode Mode) error {
	if err := s.queue.Verify(); err != nil {
		return err
	}
	if mode == ModePGP && s.crypter == nil {
		return &ConfigurationError{Reason: "transfer mode is pgp but no crypter is configured"}
	}
	return nil
}

// record persists a history row, best-effort.
func (s *Service) record(rec *TransferRecord) {
	if s.database == nil {
		return
	}
	rec.ID = s.idgen.New()
	rec.CreatedAt = s.clock.Now()
	if err := s.database.RecordTransfer(rec); err != nil {
		s.logger.Warn("could not record transfer history", "file", rec.FileName, "error", err)
	}
}

// reportFailure logs, records, and alerts one failed transfer attempt.
func (s *Service) reportFailure(direction, name, remotePath string, terr *TransferError) {
	s.logger.Error("transfer failed",
		"direction", direction, "file", name, "remote", remotePath, "op", terr.Op, "error", terr.Err)
	s.record(&TransferRecord{
		Direction:  direction,
		FileName:   name,
		RemotePath: remotePath,
		Status:     StatusFailed,
		Error:      terr.Error(),
	})
	subject := fmt.Sprintf("courier: %s of %s failed", direction, name)
	if err := s.notifier.Notify(nil, subject, terr.Error()); err != nil {
		s.logger.Warn("could not deliver failure alert", "file", name, "error", err)
	}
}

func readFiles(paths []string) ([][]byte, error) {
	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func joinNames(paths []string) string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return strings.Join(names, ", ")
}
