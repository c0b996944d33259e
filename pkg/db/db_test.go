package db

import (
	"path/filepath"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Init(path)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer d.Close()

	// Migration should have created the lookups table
	if _, err := d.Exec("INSERT INTO lookups (fingerprint, payload) VALUES (?, ?)", "u4pruy", "[]"); err != nil {
		t.Errorf("insert into lookups failed: %v", err)
	}

	var count int
	if err := d.QueryRow("SELECT COUNT(*) FROM lookups").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestInitIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Init(path)
	if err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	d.Close()

	// Reopening must not fail on existing schema
	d, err = Init(path)
	if err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	d.Close()
}

func TestPruneLookups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Init(path)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer d.Close()

	old := time.Now().Add(-48 * time.Hour).UTC().Format("2006-01-02 15:04:05")
	if _, err := d.Exec("INSERT INTO lookups (fingerprint, payload, created_at) VALUES (?, ?, ?)", "old", "[]", old); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := d.Exec("INSERT INTO lookups (fingerprint, payload) VALUES (?, ?)", "fresh", "[]"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := d.PruneLookups(24 * time.Hour); err != nil {
		t.Fatalf("PruneLookups failed: %v", err)
	}

	var count int
	if err := d.QueryRow("SELECT COUNT(*) FROM lookups").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after prune, got %d", count)
	}
}
