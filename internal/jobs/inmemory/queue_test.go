package inmemory

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/jobs"
	"github.com/dvloznov/personal-finance/internal/logger"
)

func waitForStatus(t *testing.T, store *Store, userID, jobID string, want jobs.Status) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), userID, jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), userID, jobID)
	t.Fatalf("job %s never reached %s, last state %+v", jobID, want, job)
	return nil
}

func startQueue(t *testing.T, store *Store, handler jobs.Handler) *Queue {
	t.Helper()
	q := NewQueue(10, store, WithWorkers(2), WithBackoff(time.Millisecond))
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { q.Stop(context.Background()) })
	return q
}

func TestQueue_CompletesJob(t *testing.T) {
	store := NewStore()
	q := startQueue(t, store, func(ctx context.Context, job *jobs.Job) (string, error) {
		return "exported 3 rows for " + job.UserID, nil
	})

	job := &jobs.Job{UserID: "u1", Kind: jobs.KindExportBigQuery}
	if err := q.Publish(context.Background(), job); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if job.ID == "" || job.MaxRetries != defaultMaxRetries {
		t.Errorf("defaults not assigned: %+v", job)
	}

	done := waitForStatus(t, store, "u1", job.ID, jobs.StatusCompleted)
	if done.Result != "exported 3 rows for u1" || done.StartedAt == nil || done.CompletedAt == nil {
		t.Errorf("unexpected completed job: %+v", done)
	}
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	store := NewStore()
	var calls atomic.Int32
	q := startQueue(t, store, func(ctx context.Context, job *jobs.Job) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("bucket unavailable")
		}
		return "ok", nil
	})

	job := &jobs.Job{UserID: "u1", Kind: jobs.KindBackupGCS}
	if err := q.Publish(context.Background(), job); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	done := waitForStatus(t, store, "u1", job.ID, jobs.StatusCompleted)
	if done.RetryCount != 2 || done.Error != "" {
		t.Errorf("RetryCount = %d, Error = %q; want 2, empty", done.RetryCount, done.Error)
	}
}

func TestQueue_PermanentFailure(t *testing.T) {
	store := NewStore()
	var calls atomic.Int32
	q := startQueue(t, store, func(ctx context.Context, job *jobs.Job) (string, error) {
		calls.Add(1)
		return "", jobs.Permanent(errors.New("notion token missing"))
	})

	job := &jobs.Job{UserID: "u1", Kind: jobs.KindSyncNotion}
	if err := q.Publish(context.Background(), job); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	failed := waitForStatus(t, store, "u1", job.ID, jobs.StatusFailed)
	if failed.Error != "notion token missing" || calls.Load() != 1 {
		t.Errorf("Error = %q after %d calls", failed.Error, calls.Load())
	}
}

func TestQueue_PanicFailsJob(t *testing.T) {
	store := NewStore()
	q := startQueue(t, store, func(ctx context.Context, job *jobs.Job) (string, error) {
		panic("boom")
	})

	job := &jobs.Job{UserID: "u1", Kind: jobs.KindSyncNotion}
	if err := q.Publish(context.Background(), job); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	waitForStatus(t, store, "u1", job.ID, jobs.StatusFailed)
}

func TestQueue_PublishValidation(t *testing.T) {
	q := NewQueue(1, NewStore())

	if err := q.Publish(context.Background(), &jobs.Job{Kind: jobs.KindBackupGCS}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("missing user: expected ErrUnauthorized, got %v", err)
	}
	if err := q.Publish(context.Background(), &jobs.Job{UserID: "u1", Kind: "reindex"}); err == nil {
		t.Error("expected error for unknown kind")
	}

	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := q.Publish(context.Background(), &jobs.Job{UserID: "u1", Kind: jobs.KindBackupGCS}); !errors.Is(err, ErrClosed) {
		t.Errorf("after stop: expected ErrClosed, got %v", err)
	}
}

func TestStore_UserScoped(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.Job{
		{ID: "a", UserID: "u1", Kind: jobs.KindBackupGCS, Status: jobs.StatusCompleted, CreatedAt: base},
		{ID: "b", UserID: "u1", Kind: jobs.KindSyncNotion, Status: jobs.StatusFailed, CreatedAt: base.Add(time.Hour)},
		{ID: "c", UserID: "u2", Kind: jobs.KindBackupGCS, Status: jobs.StatusCompleted, CreatedAt: base},
	} {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob #%d: %v", i, err)
		}
	}

	if _, err := store.GetJob(ctx, "u2", "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign job: expected ErrNotFound, got %v", err)
	}

	list, err := store.ListJobs(ctx, "u1", jobs.Filter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Errorf("unexpected list: %+v", list)
	}

	list, _ = store.ListJobs(ctx, "u1", jobs.Filter{Kind: jobs.KindBackupGCS})
	if len(list) != 1 || list[0].ID != "a" {
		t.Errorf("kind filter: %+v", list)
	}
	list, _ = store.ListJobs(ctx, "u1", jobs.Filter{Offset: 5})
	if len(list) != 0 {
		t.Errorf("offset past end: %+v", list)
	}

	if err := store.SaveJob(ctx, &jobs.Job{ID: "d"}); err == nil {
		t.Error("expected error saving a job without user")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestQueue_HandlerLoggerCarriesJobFields(t *testing.T) {
	out := &syncBuffer{}
	store := NewStore()
	q := NewQueue(10, store, WithWorkers(1), WithLogger(logger.NewWithWriter(out)))
	if err := q.Start(context.Background(), func(ctx context.Context, job *jobs.Job) (string, error) {
		log := logger.FromContext(ctx)
		log.Info().Msg("handler running")
		return "ok", nil
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { q.Stop(context.Background()) })

	job := &jobs.Job{UserID: "u1", Kind: jobs.KindSyncNotion, Params: map[string]string{"from": "2024-01-01"}}
	if err := q.Publish(context.Background(), job); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	waitForStatus(t, store, "u1", job.ID, jobs.StatusCompleted)

	var line string
	for _, l := range strings.Split(out.String(), "\n") {
		if strings.Contains(l, "handler running") {
			line = l
		}
	}
	if line == "" {
		t.Fatalf("handler log line missing:\n%s", out.String())
	}
	for _, want := range []string{`"job_id":"` + job.ID + `"`, `"user_id":"u1"`, `"kind":"sync_notion"`, `"param_from":"2024-01-01"`} {
		if !strings.Contains(line, want) {
			t.Errorf("handler log line missing %s: %s", want, line)
		}
	}
}
