package storage

import (
	"context"
	"errors"
	"testing"
)

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := Open(context.Background(), Config{Driver: "sqlite3", DSN: "file:storage_open?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var one int
	if err := db.NewSelect().ColumnExpr("1").Scan(context.Background(), &one); err != nil {
		t.Fatalf("select: %v", err)
	}
	if one != 1 {
		t.Fatalf("expected 1, got %d", one)
	}
}

func TestOpenRejectsMemoryDriverAndBlankDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "memory", DSN: "x"}); !errors.Is(err, ErrDriverUnsupported) {
		t.Fatalf("expected ErrDriverUnsupported, got %v", err)
	}
	if _, err := Open(context.Background(), Config{Driver: "sqlite"}); !errors.Is(err, ErrDSNRequired) {
		t.Fatalf("expected ErrDSNRequired, got %v", err)
	}
}

func TestIsSQL(t *testing.T) {
	cases := map[string]bool{"": false, "memory": false, "sqlite": true, "PG": true, "postgres": true, "mongo": false}
	for driver, want := range cases {
		if got := IsSQL(driver); got != want {
			t.Fatalf("IsSQL(%q) = %v, want %v", driver, got, want)
		}
	}
}
