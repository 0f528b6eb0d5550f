package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// isTransient reports a lock or busy condition worth one more attempt.
func isTransient(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// inTx runs fn inside one transaction on db, retrying once when SQLite
// reports the database busy or locked. fn must only use the tx it is given.
func inTx(ctx context.Context, db *gorm.DB, op string, fn func(tx *gorm.DB) error) error {
	err := db.WithContext(ctx).Transaction(fn)
	if err != nil && isTransient(err) {
		select {
		case <-ctx.Done():
			return &domain.StorageError{Op: op, Err: ctx.Err()}
		case <-time.After(50 * time.Millisecond):
		}
		err = db.WithContext(ctx).Transaction(fn)
	}
	return classify(op, err)
}

// classify passes domain errors through and wraps everything else as a
// storage error.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDuplicateTemplate),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrStorage),
		domain.IsRecoverable(err):
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}

// outcome maps an operation result to an audit outcome.
func outcome(err error) string {
	switch {
	case err == nil:
		return domain.OutcomeSuccess
	case errors.Is(err, domain.ErrStorage):
		return domain.OutcomeFailed
	}
	return domain.OutcomeRejected
}
