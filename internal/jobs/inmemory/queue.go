package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/jobs"
	"github.com/dvloznov/personal-finance/internal/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrClosed is returned when publishing to a stopped queue.
var ErrClosed = errors.New("queue is closed")

const (
	defaultWorkers    = 5
	defaultMaxRetries = 3
)

// Queue is a channel-backed job queue for a single process. Failed jobs are
// retried with linear backoff up to their MaxRetries.
type Queue struct {
	jobChan   chan *jobs.Job
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool

	store   jobs.Store
	workers int
	backoff time.Duration
	log     zerolog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithBackoff sets the base retry delay; retry n waits n times this.
func WithBackoff(d time.Duration) Option {
	return func(q *Queue) { q.backoff = d }
}

// WithLogger sets the logger used for job lifecycle events.
func WithLogger(log zerolog.Logger) Option {
	return func(q *Queue) { q.log = log }
}

// NewQueue creates a queue holding up to bufferSize waiting jobs.
func NewQueue(bufferSize int, store jobs.Store, opts ...Option) *Queue {
	q := &Queue{
		jobChan:   make(chan *jobs.Job, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   defaultWorkers,
		backoff:   time.Second,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Publish validates and enqueues a job, assigning its id and defaults.
func (q *Queue) Publish(ctx context.Context, job *jobs.Job) error {
	if err := domain.RequireUser(job.UserID); err != nil {
		return err
	}
	if !job.Kind.Valid() {
		return fmt.Errorf("Publish: unknown job kind %q", job.Kind)
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = jobs.StatusPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = defaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("Publish: saving job: %w", err)
		}
	}
	return q.enqueue(ctx, job.Clone())
}

func (q *Queue) enqueue(ctx context.Context, job *jobs.Job) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return ErrClosed
	}
}

// Start launches the workers. It returns immediately.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			q.process(ctx, job, handler)
		}
	}
}

func (q *Queue) save(ctx context.Context, job *jobs.Job) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		q.log.Error().Err(err).Str("job_id", job.ID).Msg("saving job state")
	}
}

func (q *Queue) process(ctx context.Context, job *jobs.Job, handler jobs.Handler) {
	fields := map[string]interface{}{
		"job_id":  job.ID,
		"user_id": job.UserID,
		"kind":    string(job.Kind),
	}
	for k, v := range job.Params {
		fields["param_"+k] = v
	}
	log := logger.WithFields(q.log, fields)
	// Handlers log through the context and inherit the job fields.
	ctx = logger.WithContext(ctx, log)

	started := time.Now().UTC()
	job.Status = jobs.StatusRunning
	job.StartedAt = &started
	job.CompletedAt = nil
	q.save(ctx, job)

	result, err := runHandler(ctx, handler, job)

	completed := time.Now().UTC()
	job.CompletedAt = &completed

	if err == nil {
		job.Status = jobs.StatusCompleted
		job.Result = result
		job.Error = ""
		q.save(ctx, job)
		log.Info().Dur("duration", completed.Sub(started)).Str("result", result).Msg("job completed")
		return
	}

	job.Error = err.Error()
	if jobs.IsPermanent(err) || job.RetryCount >= job.MaxRetries {
		job.Status = jobs.StatusFailed
		q.save(ctx, job)
		log.Error().Err(err).Int("retries", job.RetryCount).Msg("job failed")
		return
	}

	job.RetryCount++
	job.Status = jobs.StatusRetrying
	q.save(ctx, job)
	log.Warn().Err(err).Int("retry", job.RetryCount).Msg("job failed, retrying")

	retry := job.Clone()
	time.AfterFunc(time.Duration(retry.RetryCount)*q.backoff, func() {
		retry.Status = jobs.StatusPending
		retry.StartedAt = nil
		retry.CompletedAt = nil
		if err := q.enqueue(ctx, retry); err != nil {
			log.Warn().Err(err).Msg("dropping retry")
		}
	})
}

// runHandler turns a handler panic into a job failure.
func runHandler(ctx context.Context, handler jobs.Handler, job *jobs.Job) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = jobs.Permanent(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return handler(ctx, job)
}

// Stop closes the queue and waits for in-flight jobs, or for ctx to end.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements jobs.Publisher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
