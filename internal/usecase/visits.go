package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultVisitWorkers   = 4
	defaultVisitQueueSize = 1024
)

type visitRepository interface {
	IncrementVisits(ctx context.Context, shortCode string) error
}

// VisitRecorder counts visits outside the redirect path.
//
// While Run is active, Record enqueues the short code for a pool of workers.
// When the queue is full or Run is not active, Record increments synchronously,
// so a visit is never dropped.
type VisitRecorder struct {
	repo      visitRepository
	logger    *slog.Logger
	timeout   time.Duration
	workers   int
	queueSize int

	mu      sync.RWMutex
	running bool
	queue   chan string
}

type VisitRecorderOption func(*VisitRecorder)

func WithVisitWorkers(n int) VisitRecorderOption {
	return func(r *VisitRecorder) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithVisitQueueSize(n int) VisitRecorderOption {
	return func(r *VisitRecorder) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

func WithVisitTimeout(d time.Duration) VisitRecorderOption {
	return func(r *VisitRecorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithVisitLogger(logger *slog.Logger) VisitRecorderOption {
	return func(r *VisitRecorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewVisitRecorder(repo visitRepository, opts ...VisitRecorderOption) *VisitRecorder {
	r := &VisitRecorder{
		repo:      repo,
		logger:    slog.Default(),
		timeout:   defaultStoreTimeout,
		workers:   defaultVisitWorkers,
		queueSize: defaultVisitQueueSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.queue = make(chan string, r.queueSize)

	return r
}

// Record counts one visit of shortCode.
func (r *VisitRecorder) Record(shortCode string) {
	r.mu.RLock()
	if r.running {
		select {
		case r.queue <- shortCode:
			r.mu.RUnlock()
			return
		default:
		}
	}
	r.mu.RUnlock()

	r.increment(shortCode)
}

// Run processes queued visits until ctx is done, then drains whatever is
// still queued before returning.
func (r *VisitRecorder) Run(ctx context.Context) error {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	g := new(errgroup.Group)

	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case shortCode := <-r.queue:
					r.increment(shortCode)
				case <-ctx.Done():
					return nil
				}
			}
		})
	}

	_ = g.Wait()

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.drain()

	return nil
}

func (r *VisitRecorder) drain() {
	for {
		select {
		case shortCode := <-r.queue:
			r.increment(shortCode)
		default:
			return
		}
	}
}

func (r *VisitRecorder) increment(shortCode string) {
	const op = "usecase.VisitRecorder.increment"

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.repo.IncrementVisits(ctx, shortCode); err != nil {
		r.logger.Error("failed to record visit",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}
}
