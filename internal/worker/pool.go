package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"queuectl/internal/lifecycle"
	"queuectl/internal/store"
)

// Pool supervises a set of worker Loops. Workers share nothing in memory;
// all coordination between them goes through the store. One worker's
// failure never affects the others.
type Pool struct {
	store   *store.Store
	count   int
	backoff lifecycle.Strategy
	poll    time.Duration
	timeout time.Duration
	pidFile string
	logger  *slog.Logger

	id     string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPollInterval sets the idle sleep between claim attempts.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.poll = d }
}

// WithExecTimeout bounds each command execution.
func WithExecTimeout(d time.Duration) PoolOption {
	return func(p *Pool) { p.timeout = d }
}

// WithPIDFile sets the file recording the supervising process, used by
// `worker stop` and `status` from other processes. Empty disables it.
func WithPIDFile(path string) PoolOption {
	return func(p *Pool) { p.pidFile = path }
}

// NewPool creates a supervisor for count workers. backoff is resolved once
// here; config changes after startup do not affect a running pool.
func NewPool(st *store.Store, count int, backoff lifecycle.Strategy, logger *slog.Logger, opts ...PoolOption) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		store:   st,
		count:   count,
		backoff: backoff,
		poll:    DefaultPollInterval,
		timeout: DefaultExecTimeout,
		logger:  logger,
		id:      uuid.NewString()[:8],
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker loops and returns immediately.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("workers are already running")
	}
	if p.pidFile != "" {
		if err := writePIDFile(p.pidFile, p.count); err != nil {
			return err
		}
	}
	p.running = true

	executor := NewExecutor(p.timeout)
	for i := 0; i < p.count; i++ {
		workerID := fmt.Sprintf("worker-%s-%d", p.id, i+1)
		loop := NewLoop(workerID, p.store, executor, p.backoff, p.poll, p.logger)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			loop.Run(p.ctx)
		}()
	}

	p.logger.Info("workers started",
		slog.String("pool_id", p.id),
		slog.Int("count", p.count))
	return nil
}

// Stop signals every worker to cancel, then waits for each to finish its
// current cycle and exit. Safe to call once.
func (p *Pool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return fmt.Errorf("no workers are running")
	}
	p.logger.Info("stopping workers")
	p.cancel()
	p.wg.Wait()
	p.running = false

	if p.pidFile != "" {
		removePIDFile(p.pidFile, p.logger)
	}
	p.logger.Info("all workers stopped")
	return nil
}

// IsRunning reports whether the pool's workers are active.
func (p *Pool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// WorkerCount returns the configured worker count.
func (p *Pool) WorkerCount() int {
	return p.count
}
