package database

import (
	"path/filepath"
	"testing"
	"time"

	"courier-go/internal/courier"
)

func newTestDatabase(t *testing.T) *SQLiteDatabase {
	t.Helper()
	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndListTransfers(t *testing.T) {
	db := newTestDatabase(t)

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	records := []*courier.TransferRecord{
		{ID: "t-1", Direction: courier.DirectionSend, FileName: "a.txt", RemotePath: "out/a.txt", Status: courier.StatusSent, CreatedAt: base},
		{ID: "t-2", Direction: courier.DirectionSend, FileName: "b.txt", RemotePath: "out/b.txt", Status: courier.StatusFailed, Error: "upload failed", CreatedAt: base.Add(time.Minute)},
		{ID: "t-3", Direction: courier.DirectionReceive, FileName: "c.txt", RemotePath: "in/c.txt", Status: courier.StatusReceived, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, rec := range records {
		if err := db.RecordTransfer(rec); err != nil {
			t.Fatalf("RecordTransfer(%s): %v", rec.ID, err)
		}
	}

	got, err := db.ListTransfers(10)
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	// Newest first.
	if got[0].ID != "t-3" || got[1].ID != "t-2" || got[2].ID != "t-1" {
		t.Errorf("order = [%s %s %s], want [t-3 t-2 t-1]", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[1].Error != "upload failed" {
		t.Errorf("error = %q, want %q", got[1].Error, "upload failed")
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("created_at = %v, want %v", got[0].CreatedAt, base.Add(2*time.Minute))
	}
}

func TestListTransfersHonorsLimit(t *testing.T) {
	db := newTestDatabase(t)

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := &courier.TransferRecord{
			ID:         string(rune('a' + i)),
			Direction:  courier.DirectionSend,
			FileName:   "f.txt",
			RemotePath: "out/f.txt",
			Status:     courier.StatusSent,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := db.RecordTransfer(rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ListTransfers(2)
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
}

func TestRecordTransferRejectsBadDirection(t *testing.T) {
	db := newTestDatabase(t)

	err := db.RecordTransfer(&courier.TransferRecord{
		ID: "t-1", Direction: "sideways", FileName: "a", RemotePath: "b",
		Status: courier.StatusSent, CreatedAt: time.Now(),
	})
	if err == nil {
		t.Fatal("expected constraint error for bad direction")
	}
}

func TestCheckMigrations(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations after open: %v", err)
	}
}

func TestFileBackedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courier.db")
	db, err := NewSQLiteDatabase(path)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	rec := &courier.TransferRecord{
		ID: "t-1", Direction: courier.DirectionReceive, FileName: "a.csv",
		RemotePath: "in/a.csv", Status: courier.StatusReceived, CreatedAt: time.Now().UTC(),
	}
	if err := db.RecordTransfer(rec); err != nil {
		t.Fatalf("RecordTransfer: %v", err)
	}
}
