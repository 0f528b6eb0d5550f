package sqlite

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is a single versioned schema change.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int       `gorm:"column:version;primaryKey;autoIncrement:false"`
	Name      string    `gorm:"column:name"`
	AppliedAt time.Time `gorm:"column:applied_at"`
	Checksum  string    `gorm:"column:checksum"`
}

func (AppliedMigration) TableName() string { return "schema_migrations" }

const createSchemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at DATETIME NOT NULL,
    checksum   TEXT NOT NULL
)`

var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migrations returns the embedded migrations sorted by version.
func Migrations() ([]Migration, error) {
	return readMigrations(migrationFiles, "migrations")
}

func readMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("readMigrations: reading %s: %w", dir, err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("readMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("readMigrations: reading %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrate applies every pending embedded migration, each in its own
// transaction. An applied migration whose file changed is an error.
func Migrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}
	_, err = applyMigrations(ctx, db, migrations, log)
	return err
}

func applyMigrations(ctx context.Context, db *gorm.DB, migrations []Migration, log zerolog.Logger) (int, error) {
	db = db.WithContext(ctx)
	if err := db.Exec(createSchemaMigrations).Error; err != nil {
		return 0, fmt.Errorf("Migrate: creating schema_migrations: %w", err)
	}

	var applied []AppliedMigration
	if err := db.Order("version ASC").Find(&applied).Error; err != nil {
		return 0, fmt.Errorf("Migrate: reading applied migrations: %w", err)
	}
	checksums := make(map[int]string, len(applied))
	for _, am := range applied {
		checksums[am.Version] = am.Checksum
	}

	count := 0
	for _, m := range migrations {
		if sum, ok := checksums[m.Version]; ok {
			if sum != m.Checksum {
				return count, fmt.Errorf("Migrate: %s was modified after being applied", m.Filename)
			}
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.SQL).Error; err != nil {
				return fmt.Errorf("executing: %w", err)
			}
			return tx.Create(&AppliedMigration{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: time.Now().UTC(),
				Checksum:  m.Checksum,
			}).Error
		})
		if err != nil {
			return count, fmt.Errorf("Migrate: %s: %w", m.Filename, err)
		}

		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applied migration")
		count++
	}
	return count, nil
}

// Pending reports which embedded migrations have not been applied yet.
func Pending(ctx context.Context, db *gorm.DB) ([]Migration, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	db = db.WithContext(ctx)
	if err := db.Exec(createSchemaMigrations).Error; err != nil {
		return nil, fmt.Errorf("Pending: creating schema_migrations: %w", err)
	}

	var versions []int
	if err := db.Model(&AppliedMigration{}).Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("Pending: reading applied migrations: %w", err)
	}
	done := make(map[int]bool, len(versions))
	for _, v := range versions {
		done[v] = true
	}

	var pending []Migration
	for _, m := range migrations {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}
