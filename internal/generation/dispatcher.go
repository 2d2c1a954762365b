package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bananaart/internal/domain"
	"bananaart/internal/infra"
)

// ErrDispatcherStopped is returned by Enqueue after Shutdown.
var ErrDispatcherStopped = errors.New("generation dispatcher stopped")

// Runner executes a single job.
type Runner interface {
	Run(ctx context.Context, job Job)
}

// DispatcherOptions sizes the worker pool.
type DispatcherOptions struct {
	Workers   int
	QueueSize int
}

// Dispatcher feeds queued jobs to a fixed pool of workers. Runs use the
// dispatcher's own context, never the context of the request that enqueued them.
type Dispatcher struct {
	runner      Runner
	generations domain.GenerationRepository
	jobs        chan Job
	workers     int
	logger      infra.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	group   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewDispatcher builds a stopped dispatcher; call Start to launch the workers.
func NewDispatcher(runner Runner, generations domain.GenerationRepository, opts DispatcherOptions, logger infra.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		runner:      runner,
		generations: generations,
		jobs:        make(chan Job, opts.QueueSize),
		workers:     opts.Workers,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the workers. It is a no-op when already started.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	d.group, _ = errgroup.WithContext(d.ctx)
	for i := 0; i < d.workers; i++ {
		worker := i
		d.group.Go(func() error {
			d.work(worker)
			return nil
		})
	}
	d.logger.Info().Int("workers", d.workers).Int("queue", cap(d.jobs)).Msg("generation dispatcher started")
}

func (d *Dispatcher) work(worker int) {
	for job := range d.jobs {
		d.logger.Debug().Int("worker", worker).Str("generation_id", job.GenerationID).Msg("generation dequeued")
		d.runner.Run(d.ctx, job)
	}
}

// Enqueue hands job to the pool without blocking. When the queue is full or
// the dispatcher is stopped the generation is failed right away.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	d.mu.RLock()
	var err error
	if d.closed {
		err = ErrDispatcherStopped
	} else {
		select {
		case d.jobs <- job:
		default:
			err = domain.ErrQueueFull
		}
	}
	d.mu.RUnlock()
	if err == nil {
		return nil
	}

	d.logger.Error().Err(err).Str("generation_id", job.GenerationID).Msg("generation not queued")
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if cerr := d.generations.Complete(writeCtx, job.GenerationID, domain.OutputFailed); cerr != nil {
		d.logger.Error().Err(cerr).Str("generation_id", job.GenerationID).Msg("record unqueued generation failure")
	}
	return err
}

// Shutdown stops accepting jobs and waits for queued jobs to drain. When ctx
// expires first, in-flight runs are cancelled and record the failure sentinel.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	group := d.group
	d.mu.Unlock()

	if group == nil {
		d.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return fmt.Errorf("drain generation queue: %w", ctx.Err())
	}
}

// RecoverPending fails generations left without output by a previous process.
func RecoverPending(ctx context.Context, generations domain.GenerationRepository, logger infra.Logger) error {
	n, err := generations.FailPending(ctx)
	if err != nil {
		return fmt.Errorf("recover pending generations: %w", err)
	}
	if n > 0 {
		logger.Warn().Int64("count", n).Msg("marked orphaned pending generations as failed")
	}
	return nil
}
