package workers

import (
	"context"
	"sync"
	"time"

	"mosaic/pkg/errors"
	"mosaic/pkg/logger"
)

// shutdownTimeout bounds how long Stop waits for in-flight batch iterations
const shutdownTimeout = 30 * time.Second

// Scheduler runs registered workers on their intervals
type Scheduler struct {
	workers []Worker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	log     *logger.Logger
	started bool
}

// NewScheduler creates a new worker scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		log: logger.Get().With("component", "scheduler"),
	}
}

// RegisterWorker adds a worker to the scheduler
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnf("Cannot register worker %s after start", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Infof("Worker %s registered (interval %s)", w.Name(), w.Interval())
}

// Start begins running all enabled workers
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	for _, worker := range s.workers {
		if !worker.Enabled() {
			s.log.Infof("Worker %s disabled, skipping", worker.Name())
			continue
		}
		s.wg.Add(1)
		go s.runWorker(ctx, worker)
	}

	s.log.Infof("Scheduler started with %d workers", len(s.workers))
	return nil
}

// Stop gracefully shuts down all workers
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		s.log.Info("All workers stopped")
	case <-time.After(shutdownTimeout):
		err = errors.Wrapf(errors.ErrTimeout, "worker shutdown after %s", shutdownTimeout)
		s.log.Warnf("Worker shutdown timed out after %s", shutdownTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	return err
}

// IsRunning reports whether the scheduler has been started
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// runWorker executes one worker on its interval until the context ends.
// The first iteration runs immediately.
func (s *Scheduler) runWorker(ctx context.Context, worker Worker) {
	defer s.wg.Done()

	s.iterate(ctx, worker)

	ticker := time.NewTicker(worker.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.iterate(ctx, worker)
		}
	}
}

func (s *Scheduler) iterate(ctx context.Context, worker Worker) {
	start := time.Now()
	if err := worker.Run(ctx); err != nil {
		if b, ok := worker.(interface{ RecordError(error) }); ok {
			b.RecordError(err)
		}
		s.log.Errorf("Worker %s failed after %s: %v", worker.Name(), time.Since(start).Round(time.Millisecond), err)
		return
	}
	if b, ok := worker.(interface{ RecordRun() }); ok {
		b.RecordRun()
	}
}
