package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"queuectl/internal/lifecycle"
	"queuectl/internal/model"
	"queuectl/internal/store"
)

// DefaultPollInterval is the sleep between claim attempts when the queue
// is empty.
const DefaultPollInterval = 500 * time.Millisecond

// Loop is a single worker: it claims one job at a time, executes it, and
// finalizes its state. Cancellation is checked at the top of each cycle and
// again after an in-flight execution finishes; a claimed job is always
// finalized before the loop exits.
type Loop struct {
	id       string
	store    *store.Store
	executor *Executor
	backoff  lifecycle.Strategy
	poll     time.Duration
	logger   *slog.Logger
}

func NewLoop(id string, st *store.Store, executor *Executor, backoff lifecycle.Strategy, poll time.Duration, logger *slog.Logger) *Loop {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Loop{
		id:       id,
		store:    st,
		executor: executor,
		backoff:  backoff,
		poll:     poll,
		logger:   logger.With(slog.String("worker_id", id)),
	}
}

// Run drives the claim/execute/finalize cycle until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("worker stopped")
			return
		default:
		}

		job, err := l.store.ClaimNext(l.id)
		if err != nil {
			if errors.Is(err, model.ErrStoreContention) {
				l.logger.Warn("store busy, backing off", slog.Any("error", err))
			} else {
				l.logger.Error("failed to claim job", slog.Any("error", err))
			}
			l.sleep(ctx)
			continue
		}
		if job == nil {
			l.sleep(ctx)
			continue
		}

		l.process(job)
	}
}

// process runs one claimed job to a terminal decision. Errors here are
// local to the job and never abort the loop.
func (l *Loop) process(job *model.Job) {
	l.logger.Info("processing job",
		slog.String("job_id", job.ID),
		slog.String("command", job.Command),
		slog.Int("attempt", job.Attempts))

	started := l.store.Now()
	res := l.executor.Run(job.Command)
	completed := l.store.Now()

	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	if err := l.store.RecordExecution(store.Execution{
		JobID:       job.ID,
		StartedAt:   started,
		CompletedAt: completed,
		DurationMs:  completed.Sub(started).Milliseconds(),
		Success:     res.Err == nil,
		Timeout:     res.TimedOut,
		Error:       errMsg,
		Output:      res.Output,
	}); err != nil {
		l.logger.Error("failed to record execution", slog.String("job_id", job.ID), slog.Any("error", err))
	}
	l.countMetrics(res)

	if res.Err == nil {
		if err := l.store.MarkCompleted(job.ID); err != nil {
			l.logger.Error("failed to mark job completed", slog.String("job_id", job.ID), slog.Any("error", err))
			return
		}
		l.logger.Info("job completed", slog.String("job_id", job.ID))
		return
	}

	updated, err := l.store.MarkFailed(job.ID, l.backoff)
	if err != nil {
		l.logger.Error("failed to mark job failed", slog.String("job_id", job.ID), slog.Any("error", err))
		return
	}
	switch updated.State {
	case model.StateDead:
		l.logger.Warn("job moved to DLQ",
			slog.String("job_id", job.ID),
			slog.Int("attempts", updated.Attempts),
			slog.String("error", errMsg))
	default:
		l.logger.Info("job will retry",
			slog.String("job_id", job.ID),
			slog.Int("attempts", updated.Attempts),
			slog.Time("retry_at", *updated.RetryAt),
			slog.String("error", errMsg))
	}
}

func (l *Loop) countMetrics(res Result) {
	keys := []string{store.MetricProcessed}
	switch {
	case res.Err == nil:
		keys = append(keys, store.MetricSucceeded)
	case res.TimedOut:
		keys = append(keys, store.MetricFailed, store.MetricTimeout)
	default:
		keys = append(keys, store.MetricFailed)
	}
	for _, key := range keys {
		if err := l.store.IncrementMetric(key); err != nil {
			l.logger.Error("failed to increment metric", slog.String("metric", key), slog.Any("error", err))
		}
	}
}

// sleep waits one poll interval, returning early on cancellation.
func (l *Loop) sleep(ctx context.Context) {
	timer := time.NewTimer(l.poll)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
