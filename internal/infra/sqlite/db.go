// Package sqlite is the embedded relational store behind the template
// registry, the transaction store and the net-worth ledger. Every query is
// scoped by user id; repositories expose no method without one.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultPragmas = "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"

// DSN builds the driver connection string for a database file.
func DSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?" + defaultPragmas
}

// Open opens the database file at path and applies pending migrations.
func Open(ctx context.Context, path string, log zerolog.Logger) (*gorm.DB, error) {
	db, err := OpenDSN(ctx, DSN(path), log)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db, log); err != nil {
		Close(db)
		return nil, fmt.Errorf("Open: migrating %s: %w", path, err)
	}
	return db, nil
}

// OpenDSN opens a connection without migrating. The pool is limited to a
// single connection: the store serves one local process.
func OpenDSN(ctx context.Context, dsn string, log zerolog.Logger) (*gorm.DB, error) {
	gl := log.With().Str("component", "gorm").Logger()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
		Logger: gormlogger.New(&gl, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenDSN: opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("OpenDSN: getting connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("OpenDSN: ping: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
