// Package stats performs click accounting off the redirect hot path.
package stats

import (
	"LinkCut-Backend/internal/cache"
	"LinkCut-Backend/internal/config"
	"LinkCut-Backend/internal/metrics"
	"LinkCut-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Click is a single click accounting job.
type Click struct {
	Code string
	At   time.Time
}

// Recorder интерфейс для отправки кликов; мокается в тестах обработчиков.
type Recorder interface {
	Submit(click Click) error
}

// PoolRecorder drains a buffered queue with a fixed worker pool. The
// store's RecordClick is atomic, so N submitted clicks for one code end
// up as exactly +N regardless of worker interleaving.
type PoolRecorder struct {
	cfg      config.Stats
	storage  repository.Storage
	cache    cache.LinkCache
	log      *zap.Logger
	jobQueue chan Click
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.Mutex
}

// NewPoolRecorder creates a recorder; call Start before submitting.
func NewPoolRecorder(storage repository.Storage, linkCache cache.LinkCache, cfg config.Stats, log *zap.Logger) *PoolRecorder {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &PoolRecorder{
		cfg:      cfg,
		storage:  storage,
		cache:    linkCache,
		log:      log,
		jobQueue: make(chan Click, cfg.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing click jobs.
func (r *PoolRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("recorder already started")
	}

	r.log.Info("starting stats recorder",
		zap.Int("workers", r.cfg.Workers),
		zap.Int("buffer_size", r.cfg.BufferSize))

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.started = true
	return nil
}

// Stop drains the queue and waits for the workers to finish.
func (r *PoolRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return fmt.Errorf("recorder not started")
	}

	close(r.jobQueue)
	r.wg.Wait()
	r.cancel()
	r.started = false

	r.log.Info("stats recorder stopped")
	return nil
}

// Submit enqueues a click without blocking the caller. A full queue
// drops the job: click totals may undercount under extreme load, but
// the redirect is never delayed.
func (r *PoolRecorder) Submit(click Click) error {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()

	if !started {
		return fmt.Errorf("recorder not started")
	}

	select {
	case r.jobQueue <- click:
		return nil
	default:
		metrics.StatsQueueDropped.Inc()
		r.log.Error("stats queue is full, dropping click",
			zap.String("short_code", click.Code),
			zap.Int("queue_size", len(r.jobQueue)))
		return fmt.Errorf("stats queue is full")
	}
}

func (r *PoolRecorder) worker(workerID int) {
	defer r.wg.Done()

	log := r.log.With(zap.Int("worker_id", workerID))
	log.Debug("stats worker started")

	for click := range r.jobQueue {
		r.recordWithRetry(log, click)
	}

	log.Debug("stats worker stopped")
}

func (r *PoolRecorder) recordWithRetry(log *zap.Logger, click Click) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := r.record(ctx, click)
		cancel()

		if err == nil {
			return
		}
		if errors.Is(err, repository.ErrCodeNotFound) {
			// Ссылка удалена между редиректом и учетом клика.
			log.Debug("click for deleted link dropped", zap.String("short_code", click.Code))
			return
		}

		lastErr = err
		if attempt < r.cfg.RetryAttempts {
			time.Sleep(r.cfg.RetryDelay * time.Duration(attempt))
		}
	}

	log.Error("failed to record click after retries",
		zap.String("short_code", click.Code),
		zap.Int("attempts", r.cfg.RetryAttempts),
		zap.Error(lastErr))
}

func (r *PoolRecorder) record(ctx context.Context, click Click) error {
	if err := r.storage.RecordClick(ctx, click.Code, click.At); err != nil {
		return err
	}

	// Снимок статистики устарел после инкремента.
	if err := r.cache.InvalidateStats(ctx, click.Code); err != nil {
		metrics.CacheErrorsTotal.Inc()
		r.log.Warn("failed to invalidate stats cache", zap.String("short_code", click.Code), zap.Error(err))
	}
	return nil
}
