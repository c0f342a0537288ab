package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		path func(dir string) string
	}{
		{"flat path", func(dir string) string { return filepath.Join(dir, "test.db") }},
		{"nested path", func(dir string) string { return filepath.Join(dir, "nested", "dir", "test.db") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := tt.path(t.TempDir())

			s, err := New(dbPath)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer s.Close()

			if _, err := os.Stat(dbPath); err != nil {
				t.Errorf("database file should exist: %v", err)
			}
		})
	}
}

func TestStore_Schema(t *testing.T) {
	s := newTestStore(t)

	objects := []struct {
		kind, name string
	}{
		{"table", "jobs"},
		{"table", "job_tokens"},
		{"index", "idx_job_tokens_job_id"},
		{"index", "idx_jobs_created_at"},
	}
	for _, o := range objects {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type=? AND name=?",
			o.kind, o.name,
		).Scan(&name)
		if err != nil {
			t.Errorf("%s %q should exist after migrations: %v", o.kind, o.name, err)
		}
	}
}

func TestStore_MigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 2; i++ {
		s, err := New(dbPath)
		if err != nil {
			t.Fatalf("New() #%d error = %v", i, err)
		}
		s.Close()
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}
