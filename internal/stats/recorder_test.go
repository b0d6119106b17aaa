package stats

import (
	"context"
	"testing"
	"time"

	"LinkCut-Backend/internal/cache"
	"LinkCut-Backend/internal/config"
	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() config.Stats {
	return config.Stats{
		Workers:       3,
		BufferSize:    100,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}
}

func TestPoolRecorder_SubmitBeforeStart(t *testing.T) {
	recorder := NewPoolRecorder(memory.New(), cache.Noop{}, testConfig(), zap.NewNop())

	err := recorder.Submit(Click{Code: "abc123", At: time.Now()})
	assert.Error(t, err)
}

func TestPoolRecorder_StartStopLifecycle(t *testing.T) {
	recorder := NewPoolRecorder(memory.New(), cache.Noop{}, testConfig(), zap.NewNop())

	require.NoError(t, recorder.Start())
	assert.Error(t, recorder.Start(), "double start must fail")
	require.NoError(t, recorder.Stop())
	assert.Error(t, recorder.Stop(), "double stop must fail")
}

func TestPoolRecorder_RecordsEveryClick(t *testing.T) {
	storage := memory.New()
	ctx := context.Background()

	require.NoError(t, storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://example.com",
		ShortCode:   "click1",
	}))

	recorder := NewPoolRecorder(storage, cache.Noop{}, testConfig(), zap.NewNop())
	require.NoError(t, recorder.Start())

	const clicks = 50
	for i := 0; i < clicks; i++ {
		require.NoError(t, recorder.Submit(Click{Code: "click1", At: time.Now()}))
	}

	// Stop дожидается, пока воркеры разберут очередь
	require.NoError(t, recorder.Stop())

	link, err := storage.GetLinkByCode(ctx, "click1")
	require.NoError(t, err)
	assert.Equal(t, int64(clicks), link.Clicks)
}

func TestPoolRecorder_DropsClickForDeletedLink(t *testing.T) {
	storage := memory.New()

	recorder := NewPoolRecorder(storage, cache.Noop{}, testConfig(), zap.NewNop())
	require.NoError(t, recorder.Start())

	// Ссылки нет: клик тихо выбрасывается без повторов
	require.NoError(t, recorder.Submit(Click{Code: "ghost1", At: time.Now()}))
	require.NoError(t, recorder.Stop())
}

func TestPoolRecorder_FullQueueDropsJob(t *testing.T) {
	storage := memory.New()
	cfg := config.Stats{Workers: 1, BufferSize: 1, RetryAttempts: 1, RetryDelay: time.Millisecond}

	recorder := NewPoolRecorder(storage, cache.Noop{}, cfg, zap.NewNop())
	// Не стартуем воркеров: очередь никто не разбирает

	recorder.mu.Lock()
	recorder.started = true
	recorder.mu.Unlock()

	require.NoError(t, recorder.Submit(Click{Code: "full01", At: time.Now()}))
	err := recorder.Submit(Click{Code: "full02", At: time.Now()})
	assert.Error(t, err, "second submit must be dropped, not block")
}
