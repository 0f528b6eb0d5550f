package sqlite

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
)

func TestMigrations_Embedded(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(migrations))
	}
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %s has version %d, want %d", m.Filename, m.Version, i+1)
		}
		if len(m.Checksum) != 64 {
			t.Errorf("migration %s has checksum %q", m.Filename, m.Checksum)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if err := Migrate(ctx, db, zerolog.Nop()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	pending, err := Pending(ctx, db)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending migrations, got %d", len(pending))
	}
}

func TestMigrate_DetectsModifiedMigration(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	migrations[0].Checksum = strings.Repeat("0", 64)

	_, err = applyMigrations(ctx, db, migrations, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "modified") {
		t.Errorf("expected modified-migration error, got %v", err)
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_second.sql": {Data: []byte("SELECT 2;")},
		"m/0001_first.sql":  {Data: []byte("SELECT 1;")},
		"m/README.md":       {Data: []byte("ignored")},
	}

	migrations, err := readMigrations(fsys, "m")
	if err != nil {
		t.Fatalf("readMigrations: %v", err)
	}
	if len(migrations) != 2 || migrations[0].Name != "first" || migrations[1].Name != "second" {
		t.Errorf("unexpected migrations: %+v", migrations)
	}

	fsys["m/0001_dupe.sql"] = &fstest.MapFile{Data: []byte("SELECT 3;")}
	if _, err := readMigrations(fsys, "m"); err == nil {
		t.Error("expected duplicate version error")
	}
}
