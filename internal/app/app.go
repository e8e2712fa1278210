// Package app is the application layer between the CLI and the transfer
// service. It constructs all collaborators from config and manages their
// lifecycle on Close.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"courier-go/internal/alert"
	"courier-go/internal/config"
	"courier-go/internal/courier"
	"courier-go/internal/crypt"
	"courier-go/internal/database"
	"courier-go/internal/remote"
)

// App wires a Service from config and exposes the operations the CLI runs.
// The caller must call Close when done.
type App struct {
	cfg     *config.Config
	db      courier.Database
	crypter courier.Crypter
	mailer  *alert.Mailer // nil when no alert is configured
	service *courier.Service
	logger  courier.Logger
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "send", "receive") and tags
// every log line of this invocation.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	opID := fmt.Sprintf("%s-%s", operation, time.Now().UTC().Format("20060102T150405Z"))
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store, err := remote.NewStoreFromConfig(cfg.Remote, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating remote store: %w", err)
	}

	crypter, err := crypt.NewCrypterFromConfig(cfg.Encryption)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating crypter: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	var notifier courier.Notifier = courier.NopNotifier{}
	var mailer *alert.Mailer
	if cfg.Alert != nil {
		mailer, err = alert.NewMailer(*cfg.Alert, logger)
		if err != nil {
			db.Close()
			logFile.Close()
			return nil, fmt.Errorf("creating alert mailer: %w", err)
		}
		notifier = mailer
	}

	queue := courier.NewQueue(cfg.QueueRoot)
	svc := courier.NewService(queue, store, crypter, db, notifier, logger,
		courier.RealClock{}, courier.UUIDGenerator{})

	return &App{
		cfg:     cfg,
		db:      db,
		crypter: crypter,
		mailer:  mailer,
		service: svc,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Send uploads the Outbox to remoteDir, encrypting each file when encrypt
// is set.
func (a *App) Send(ctx context.Context, remoteDir string, encrypt bool) (*courier.SendReport, error) {
	return a.service.SendTo(ctx, remoteDir, mode(encrypt))
}

// Receive downloads remoteDir into the Inbox, decrypting each file when
// decrypt is set.
func (a *App) Receive(ctx context.Context, remoteDir string, decrypt bool) ([]string, error) {
	return a.service.ReceiveFrom(ctx, remoteDir, mode(decrypt))
}

// TestConnection checks the remote store and, when alerting is configured,
// the SMTP login as well.
func (a *App) TestConnection(ctx context.Context) courier.ConnectionResult {
	res := a.service.TestConnection(ctx)
	if !res.OK {
		return res
	}
	if a.mailer != nil {
		if err := a.mailer.LoginTest(); err != nil {
			return courier.ConnectionResult{Err: fmt.Errorf("smtp login: %w", err)}
		}
	}
	return res
}

// History returns the most recent transfer records, newest first.
func (a *App) History(limit int) ([]*courier.TransferRecord, error) {
	return a.service.History(limit)
}

// Setup creates the queue directories and the data and log directories.
func (a *App) Setup() error {
	if err := a.service.Queue().Setup(); err != nil {
		return err
	}
	if a.cfg.Database.DataDir != "" {
		if err := os.MkdirAll(a.cfg.Database.DataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	return nil
}

// VerifyQueue checks that all queue directories exist.
func (a *App) VerifyQueue() error {
	return a.service.Queue().Verify()
}

// ImportKeys adds the armored key files to the PGP keyrings and returns the
// imported fingerprints. Only available when encryption type is pgp.
func (a *App) ImportKeys(paths []string) ([]string, error) {
	pgp, ok := a.crypter.(*crypt.PGPCrypter)
	if !ok {
		return nil, &courier.ConfigurationError{Reason: "key import requires encryption type pgp"}
	}
	return pgp.ImportKeys(paths)
}

// Close releases the database and the log file.
func (a *App) Close() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

func mode(transform bool) courier.Mode {
	if transform {
		return courier.ModePGP
	}
	return courier.ModeNone
}
