package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenAndMigrate(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "permits.db"))
	if err != nil {
		t.Fatalf("expected open to succeed, got %v", err)
	}
	defer conn.Close()

	if err := RunMigrations(conn); err != nil {
		t.Fatalf("expected migrations to apply, got %v", err)
	}
	// Re-running is a no-op
	if err := RunMigrations(conn); err != nil {
		t.Fatalf("expected second migration run to succeed, got %v", err)
	}

	for _, table := range []string{"permits", "clusters"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Fatalf("expected table %s, got %v", table, err)
		}
	}
}

func TestTransactionRollsBack(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "permits.db"))
	if err != nil {
		t.Fatalf("expected open to succeed, got %v", err)
	}
	defer conn.Close()
	if err := RunMigrations(conn); err != nil {
		t.Fatalf("expected migrations to apply, got %v", err)
	}

	boom := errors.New("boom")
	err = Transaction(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO clusters (id, name) VALUES (1, 'North')"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM clusters").Scan(&n); err != nil {
		t.Fatalf("failed to count clusters: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rollback to leave 0 clusters, got %d", n)
	}
}
