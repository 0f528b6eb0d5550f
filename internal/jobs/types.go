package jobs

import (
	"context"
	"errors"
	"time"
)

// Kind identifies what a job does.
type Kind string

const (
	// KindExportBigQuery copies a user's transactions into BigQuery.
	KindExportBigQuery Kind = "export_bigquery"
	// KindSyncNotion mirrors a user's transactions into a Notion database.
	KindSyncNotion Kind = "sync_notion"
	// KindBackupGCS snapshots the database file to Cloud Storage.
	KindBackupGCS Kind = "backup_gcs"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindExportBigQuery, KindSyncNotion, KindBackupGCS:
		return true
	}
	return false
}

// Status represents the current status of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

// Job is one unit of background work requested by a user.
type Job struct {
	ID     string            `json:"id"`
	UserID string            `json:"user_id"`
	Kind   Kind              `json:"kind"`
	Params map[string]string `json:"params,omitempty"`

	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result is a short human-readable outcome, such as "exported 42 rows".
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Clone returns a deep copy.
func (j *Job) Clone() *Job {
	c := *j
	if j.Params != nil {
		c.Params = make(map[string]string, len(j.Params))
		for k, v := range j.Params {
			c.Params[k] = v
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Handler executes a job and returns a short result description. An error
// wrapped with Permanent is not retried.
type Handler func(ctx context.Context, job *Job) (string, error)

// Publisher enqueues jobs.
type Publisher interface {
	Publish(ctx context.Context, job *Job) error
	Close() error
}

// Consumer runs a handler for every enqueued job.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// Store keeps job state. Reads are scoped to the owning user.
type Store interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, userID, jobID string) (*Job, error)
	ListJobs(ctx context.Context, userID string, filter Filter) ([]*Job, error)
}

// Filter narrows ListJobs.
type Filter struct {
	Kind   Kind
	Status Status
	Limit  int
	Offset int
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Router dispatches jobs to the handler registered for their kind.
type Router map[Kind]Handler

// Handle implements Handler.
func (r Router) Handle(ctx context.Context, job *Job) (string, error) {
	h, ok := r[job.Kind]
	if !ok {
		return "", Permanent(errors.New("no handler for job kind " + string(job.Kind)))
	}
	return h(ctx, job)
}
