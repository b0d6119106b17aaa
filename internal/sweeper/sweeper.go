// Package sweeper removes stale links: expired ones on a schedule and
// unused ones on demand.
package sweeper

import (
	"LinkCut-Backend/internal/config"
	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/repository"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidDays возвращается для cleanup с неположительным периодом.
var ErrInvalidDays = errors.New("days must be a positive integer")

type Sweeper struct {
	storage repository.Storage
	cfg     config.Sweeper
	log     *zap.Logger
	now     func() time.Time
}

func New(storage repository.Storage, cfg config.Sweeper, log *zap.Logger) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Sweeper{
		storage: storage,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// ListExpired возвращает просроченные ссылки владельца (nil — гостевые).
func (s *Sweeper) ListExpired(ctx context.Context, ownerID *int64) ([]*domain.Link, error) {
	return s.storage.ListExpiredLinks(ctx, s.now(), ownerID)
}

// Cleanup удаляет ссылки без активности за последние days дней.
// Ссылки, которыми ни разу не пользовались, оцениваются по created_at.
func (s *Sweeper) Cleanup(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, ErrInvalidDays
	}

	cutoff := s.now().AddDate(0, 0, -days)
	count, err := s.storage.DeleteUnusedLinks(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return count, err
	}

	s.log.Info("cleaned up unused links", zap.Int("days", days), zap.Int64("deleted", count))
	return count, nil
}

// SweepExpired удаляет все просроченные ссылки порциями.
func (s *Sweeper) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.storage.DeleteExpiredLinks(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		return count, err
	}

	if count > 0 {
		s.log.Info("swept expired links", zap.Int64("deleted", count))
	}
	return count, nil
}

// Run периодически вызывает SweepExpired до отмены контекста.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("expiration sweeper started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiration sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil {
				s.log.Error("expired link sweep failed", zap.Error(err))
			}
		}
	}
}
