package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	mtime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.Put("in/report.csv", []byte("data"), mtime)

	conn, err := store.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	names, err := conn.List(context.Background(), "in")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 || names[0] != "report.csv" {
		t.Fatalf("names = %v, want [report.csv]", names)
	}

	local := filepath.Join(t.TempDir(), "report.csv")
	if err := conn.Download(context.Background(), "in/report.csv", local, true); err != nil {
		t.Fatalf("download: %v", err)
	}
	data, err := os.ReadFile(local)
	if err != nil || string(data) != "data" {
		t.Fatalf("local content = %q, %v", data, err)
	}
	info, err := os.Stat(local)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), mtime)
	}

	if err := conn.Remove(context.Background(), "in/report.csv"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := store.Get("in/report.csv"); ok {
		t.Error("file still present after remove")
	}
	if err := conn.Remove(context.Background(), "in/report.csv"); err == nil {
		t.Error("removing a missing file should fail")
	}
}

func TestMemoryStoreUpload(t *testing.T) {
	store := NewMemoryStore()
	conn, err := store.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	local := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(local, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := conn.Upload(context.Background(), local, "dst/out.txt"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	data, ok := store.Get("dst/out.txt")
	if !ok || string(data) != "payload" {
		t.Fatalf("remote content = %q, ok=%v", data, ok)
	}

	// Listing another directory does not see it.
	names, err := conn.List(context.Background(), "other")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v, want empty", names)
	}
}

func TestNewSFTPStoreRequiresHost(t *testing.T) {
	_, err := NewSFTPStore(cfgWithType("sftp"), nopLogger{})
	if err == nil {
		t.Fatal("expected error for missing host")
	}
}

func TestNewS3StoreValidation(t *testing.T) {
	_, err := NewS3Store(cfgWithType("s3"))
	if err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
