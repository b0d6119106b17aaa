package sweeper

import (
	"context"
	"testing"
	"time"

	"LinkCut-Backend/internal/config"
	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/repository"
	"LinkCut-Backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSweeper(storage repository.Storage) *Sweeper {
	return New(storage, config.Sweeper{Interval: time.Minute, BatchSize: 100}, zap.NewNop())
}

func TestCleanup_InvalidDays(t *testing.T) {
	sw := newTestSweeper(memory.New())

	for _, days := range []int{0, -1, -30} {
		_, err := sw.Cleanup(context.Background(), days)
		assert.ErrorIs(t, err, ErrInvalidDays, "days=%d", days)
	}
}

func TestCleanup_DeletesOnlyStaleLinks(t *testing.T) {
	storage := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	// Активность месяц назад: попадает под cleanup(7)
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://stale.example.com",
		ShortCode:   "stale1",
		CreatedAt:   now.AddDate(0, -1, 0),
	}))
	// Создана давно, но кликнута вчера: остается
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://active.example.com",
		ShortCode:   "activ1",
		CreatedAt:   now.AddDate(0, -1, 0),
	}))
	require.NoError(t, storage.RecordClick(ctx, "activ1", now.AddDate(0, 0, -1)))

	sw := newTestSweeper(storage)
	deleted, err := sw.Cleanup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = storage.GetLinkByCode(ctx, "stale1")
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
	_, err = storage.GetLinkByCode(ctx, "activ1")
	assert.NoError(t, err)
}

func TestListExpired_UsesClock(t *testing.T) {
	storage := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()
	soon := now.Add(30 * time.Minute)

	require.NoError(t, storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://example.com",
		ShortCode:   "ttl001",
		ExpiresAt:   &soon,
	}))

	sw := newTestSweeper(storage)

	expired, err := sw.ListExpired(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, expired, "link is still alive")

	// Через час та же ссылка уже просрочена
	sw.WithClock(func() time.Time { return now.Add(time.Hour) })
	expired, err = sw.ListExpired(ctx, nil)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "ttl001", expired[0].ShortCode)
}

func TestSweepExpired(t *testing.T) {
	storage := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	require.NoError(t, storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://dead.example.com",
		ShortCode:   "dead01",
		ExpiresAt:   &past,
	}))
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://alive.example.com",
		ShortCode:   "live01",
	}))

	sw := newTestSweeper(storage)
	deleted, err := sw.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = storage.GetLinkByCode(ctx, "live01")
	assert.NoError(t, err)
}
