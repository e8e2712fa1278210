package database

import (
	"os"
	"path/filepath"
	"testing"

	"courier-go/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()
	})

	t.Run("sqlite database", func(t *testing.T) {
		dir := t.TempDir()
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dir})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, err := os.Stat(filepath.Join(dir, "courier.db")); err != nil {
			t.Errorf("database file not created: %v", err)
		}
	})

	t.Run("sqlite requires data_dir", func(t *testing.T) {
		if _, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite"}); err == nil {
			t.Error("expected error for missing data_dir")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "postgres"}); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}
