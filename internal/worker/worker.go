// Package worker binds job kinds to the code that runs them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dvloznov/personal-finance/internal/backup"
	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/jobs"
	"github.com/dvloznov/personal-finance/internal/logger"
	"github.com/dvloznov/personal-finance/internal/notionsync"
	"gorm.io/gorm"
)

// Exporter copies transactions to the analytics warehouse.
type Exporter interface {
	Export(ctx context.Context, userID string, txs []*domain.Transaction) (int, error)
}

// Deps are the collaborators of the job handlers. A nil optional
// collaborator makes its job kind fail permanently.
type Deps struct {
	Transactions notionsync.TransactionSource

	Exporter Exporter // optional

	Notion     notionsync.NotionService // optional
	NotionDBID string

	DB           *gorm.DB
	BackupDir    string
	BackupBucket string
	Uploader     backup.ObjectUploader // optional
}

// NewRouter returns the handler table for every job kind.
func NewRouter(d Deps) jobs.Router {
	return jobs.Router{
		jobs.KindExportBigQuery: d.exportBigQuery,
		jobs.KindSyncNotion:     d.syncNotion,
		jobs.KindBackupGCS:      d.backupGCS,
	}
}

// FilterFromParams reads the optional from/to job parameters.
func FilterFromParams(params map[string]string) (domain.TransactionFilter, error) {
	var f domain.TransactionFilter
	var err error
	if s := params["from"]; s != "" {
		if f.From, err = domain.ParseDate(s); err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
	}
	if s := params["to"]; s != "" {
		if f.To, err = domain.ParseDate(s); err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
	}
	return f, nil
}

func (d Deps) exportBigQuery(ctx context.Context, job *jobs.Job) (string, error) {
	if d.Exporter == nil {
		return "", jobs.Permanent(errors.New("bigquery export is not configured"))
	}
	f, err := FilterFromParams(job.Params)
	if err != nil {
		return "", jobs.Permanent(err)
	}

	txs, err := d.Transactions.List(ctx, job.UserID, f)
	if err != nil {
		return "", fmt.Errorf("exportBigQuery: listing transactions: %w", err)
	}
	n, err := d.Exporter.Export(ctx, job.UserID, txs)
	if err != nil {
		return "", fmt.Errorf("exportBigQuery: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("user_id", job.UserID).Int("rows", n).Msg("Transactions exported")
	return fmt.Sprintf("exported %d transactions", n), nil
}

func (d Deps) syncNotion(ctx context.Context, job *jobs.Job) (string, error) {
	if d.Notion == nil || d.NotionDBID == "" {
		return "", jobs.Permanent(errors.New("notion sync is not configured"))
	}
	f, err := FilterFromParams(job.Params)
	if err != nil {
		return "", jobs.Permanent(err)
	}
	dryRun := false
	if s := job.Params["dry_run"]; s != "" {
		if dryRun, err = strconv.ParseBool(s); err != nil {
			return "", jobs.Permanent(fmt.Errorf("dry_run: %w", err))
		}
	}

	stats, err := notionsync.SyncTransactions(ctx, d.Transactions, d.Notion, d.NotionDBID, job.UserID, f, dryRun)
	if err != nil {
		return "", fmt.Errorf("syncNotion: %w", err)
	}
	return stats.String(), nil
}

// backupGCS snapshots the whole database file. The copy goes to the
// operator's bucket, never back to the requesting user.
func (d Deps) backupGCS(ctx context.Context, job *jobs.Job) (string, error) {
	if d.DB == nil {
		return "", jobs.Permanent(errors.New("database backup is not configured"))
	}
	res, err := backup.Run(ctx, d.DB, d.BackupDir, d.BackupBucket, d.Uploader, logger.FromContext(ctx))
	if err != nil {
		return "", fmt.Errorf("backupGCS: %w", err)
	}
	return res.String(), nil
}
