// Package database persists transfer history in SQLite.
package database

import (
	"database/sql"
	"fmt"

	"courier-go/internal/courier"
	"courier-go/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

var _ courier.Database = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens (creating if necessary) a SQLite database and
// migrates it to the latest schema. path can be a file path or ":memory:".
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the schema relies on. Exported for tools and tests.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return db, nil
}

func (s *SQLiteDatabase) RecordTransfer(rec *courier.TransferRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO transfers (id, direction, file_name, remote_path, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Direction, rec.FileName, rec.RemotePath, rec.Status, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording transfer: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListTransfers(limit int) ([]*courier.TransferRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, direction, file_name, remote_path, status, error, created_at
		FROM transfers
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var records []*courier.TransferRecord
	for rows.Next() {
		rec := &courier.TransferRecord{}
		err := rows.Scan(&rec.ID, &rec.Direction, &rec.FileName, &rec.RemotePath,
			&rec.Status, &rec.Error, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	return records, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
