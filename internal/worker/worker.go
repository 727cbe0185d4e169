package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mnemo/internal/jobqueue"
	"mnemo/internal/logging"
)

// Processor performs the domain work for a claimed job. Returning an error
// wrapped by Transient requests a retry; any other error is terminal.
type Processor interface {
	Process(ctx context.Context, jobID string, payload jobqueue.Payload) error
}

// Config tunes the consumer loop.
type Config struct {
	// PollInterval is how long the loop sleeps when the queue is empty.
	PollInterval time.Duration
	// StaleTimeout is the claim lease; processing jobs older than this are
	// reclaimed on the next recovery sweep.
	StaleTimeout time.Duration
	// MaxRetries bounds automatic requeues; a transient failure beyond the
	// budget fails the job instead.
	MaxRetries int
	// RecoverEvery is the number of polls between stale-recovery sweeps.
	RecoverEvery int
	// FailedMaxAge and FailedMaxFiles bound the failed directory; CleanupEvery
	// is the number of polls between sweeps. CleanupEvery 0 disables cleanup.
	FailedMaxAge   time.Duration
	FailedMaxFiles int
	CleanupEvery   int
}

// Worker consumes jobs from the queue until stopped.
type Worker struct {
	queue  *jobqueue.Store
	proc   Processor
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a worker. Zero config fields fall back to safe values.
func New(queue *jobqueue.Store, proc Processor, cfg Config, logger *slog.Logger) (*Worker, error) {
	if queue == nil || proc == nil {
		return nil, errors.New("worker requires a queue and a processor")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 10 * time.Minute
	}
	if cfg.RecoverEvery <= 0 {
		cfg.RecoverEvery = 12
	}
	return &Worker{
		queue:  queue,
		proc:   proc,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "worker"),
	}, nil
}

// Start begins background processing.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("worker already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	go w.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		polls++
		w.runMaintenance(ctx, polls)

		jobID, payload, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "worker_dequeue_failed"),
				logging.String(logging.FieldErrorHint, "check queue directory access"))
			w.sleep(ctx)
			continue
		}
		if jobID == "" {
			w.sleep(ctx)
			continue
		}

		w.handle(ctx, jobID, payload)
	}
}

// RunOnce claims and processes at most one job; used by tests and by the CLI
// drain path. It reports whether a job was handled.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	jobID, payload, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if jobID == "" {
		return false, nil
	}
	w.handle(ctx, jobID, payload)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, jobID string, payload jobqueue.Payload) {
	err := w.proc.Process(ctx, jobID, payload)

	// Once processing has finished, the outcome must be recorded even if the
	// worker is shutting down.
	finishCtx := context.WithoutCancel(ctx)
	if err == nil {
		if err := w.queue.Complete(finishCtx, jobID); err != nil {
			w.logger.Error("failed to complete job",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "worker_complete_failed"))
		}
		return
	}
	if errors.Is(err, context.Canceled) {
		// Leave the job in processing; stale recovery will reclaim it.
		return
	}

	retries := jobqueue.RetryCount(payload)
	if IsTransient(err) && retries < w.cfg.MaxRetries {
		if requeueErr := w.queue.Requeue(finishCtx, jobID, err.Error()); requeueErr != nil {
			if errors.Is(requeueErr, jobqueue.ErrJobNotFound) {
				return
			}
			w.logger.Error("failed to requeue job",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(requeueErr),
				logging.String(logging.FieldEventType, "worker_requeue_failed"))
		}
		return
	}

	reason := err.Error()
	if IsTransient(err) {
		w.logger.Warn("retry budget exhausted",
			logging.String(logging.FieldJobID, jobID),
			logging.Int("retry_count", retries),
			logging.Int("max_retries", w.cfg.MaxRetries),
			logging.String(logging.FieldEventType, "worker_retries_exhausted"))
	}
	if failErr := w.queue.Fail(finishCtx, jobID, reason); failErr != nil && !errors.Is(failErr, jobqueue.ErrJobNotFound) {
		w.logger.Error("failed to fail job",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(failErr),
			logging.String(logging.FieldEventType, "worker_fail_failed"))
	}
}

func (w *Worker) runMaintenance(ctx context.Context, polls int) {
	if polls%w.cfg.RecoverEvery == 0 {
		if _, err := w.queue.RecoverStale(ctx, w.cfg.StaleTimeout); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("stale recovery sweep failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "worker_recover_failed"))
		}
	}
	if w.cfg.CleanupEvery > 0 && polls%w.cfg.CleanupEvery == 0 {
		if _, err := w.queue.CleanupFailed(ctx, w.cfg.FailedMaxAge, w.cfg.FailedMaxFiles); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("failed-directory cleanup failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "worker_cleanup_failed"))
		}
	}
}

func (w *Worker) sleep(ctx context.Context) {
	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
