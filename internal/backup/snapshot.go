// Package backup takes consistent copies of the database file and ships
// them to Cloud Storage.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"
)

const filePrefix = "finance_tracker"

// FileName is the snapshot file name for a point in time.
func FileName(at time.Time) string {
	return fmt.Sprintf("%s-%s.db", filePrefix, at.UTC().Format("20060102-150405"))
}

// Snapshot writes a consistent copy of db into dir and returns its path.
// The copy is taken with VACUUM INTO, so it is compacted and safe to take
// while the database is in use.
func Snapshot(ctx context.Context, db *gorm.DB, dir string, at time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("Snapshot: creating %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName(at))
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("Snapshot: %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("Snapshot: checking %s: %w", path, err)
	}

	if err := db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		return "", fmt.Errorf("Snapshot: vacuum into %s: %w", path, err)
	}
	return path, nil
}
