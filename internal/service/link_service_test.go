package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"LinkCut-Backend/internal/cache"
	"LinkCut-Backend/internal/config"
	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/repository"
	"LinkCut-Backend/internal/repository/memory"
	"LinkCut-Backend/internal/shortcode"
	"LinkCut-Backend/internal/stats"
	"LinkCut-Backend/pkg/random"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCache is an in-memory LinkCache that records the TTLs it was
// given. failing switches every operation to an error to exercise the
// fail-open path.
type fakeCache struct {
	mu      sync.Mutex
	urls    map[string]string
	stats   map[string][]byte
	ttls    map[string]time.Duration
	failing bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		urls:  make(map[string]string),
		stats: make(map[string][]byte),
		ttls:  make(map[string]time.Duration),
	}
}

var errCacheDown = errors.New("cache down")

func (c *fakeCache) GetURL(_ context.Context, code string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return "", errCacheDown
	}
	url, ok := c.urls[code]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return url, nil
}

func (c *fakeCache) SetURL(_ context.Context, code, url string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errCacheDown
	}
	c.urls[code] = url
	c.ttls[code] = ttl
	return nil
}

func (c *fakeCache) GetStats(_ context.Context, code string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, errCacheDown
	}
	payload, ok := c.stats[code]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return payload, nil
}

func (c *fakeCache) SetStats(_ context.Context, code string, payload []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errCacheDown
	}
	c.stats[code] = payload
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errCacheDown
	}
	delete(c.urls, code)
	delete(c.stats, code)
	return nil
}

func (c *fakeCache) InvalidateStats(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errCacheDown
	}
	delete(c.stats, code)
	return nil
}

func (c *fakeCache) cachedURL(code string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.urls[code]
	return url, ok
}

func (c *fakeCache) cachedTTL(code string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[code]
}

// captureRecorder collects submitted clicks synchronously.
type captureRecorder struct {
	mu     sync.Mutex
	clicks []stats.Click
}

func (r *captureRecorder) Submit(click stats.Click) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, click)
	return nil
}

func (r *captureRecorder) submitted() []stats.Click {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stats.Click(nil), r.clicks...)
}

// sequenceSource drives the generator with a fixed index sequence.
type sequenceSource struct {
	mu      sync.Mutex
	indexes []int
	pos     int
}

func (s *sequenceSource) Index() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexes[s.pos%len(s.indexes)]
	s.pos++
	return idx, nil
}

type testEnv struct {
	storage  *memory.MemStorage
	cache    *fakeCache
	recorder *captureRecorder
	gen      *shortcode.Generator
	service  *LinkService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		storage:  memory.New(),
		cache:    newFakeCache(),
		recorder: &captureRecorder{},
		gen:      shortcode.New(6, 3, nil),
	}
	cfg := &config.Shortener{
		BaseURL:       "http://localhost:8080",
		CodeLength:    6,
		MaxCollisions: 3,
		LinkCacheTTL:  time.Hour,
		StatsCacheTTL: time.Minute,
	}
	env.service = NewLinkService(env.storage, env.cache, env.gen, env.recorder, cfg, zap.NewNop())
	return env
}

func TestShortenAndResolve_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://example.com/page"})
	require.NoError(t, err)
	assert.Len(t, link.ShortCode, 6)
	assert.True(t, random.InAlphabet(link.ShortCode))

	got, err := env.service.Resolve(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", got)

	clicks := env.recorder.submitted()
	require.Len(t, clicks, 1)
	assert.Equal(t, link.ShortCode, clicks[0].Code)
}

func TestShorten_EmptyURL(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Shorten(context.Background(), CreateLink{})
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestShorten_CustomAlias(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Shorten(ctx, CreateLink{
		OriginalURL: "https://example.com",
		CustomAlias: "myAlias",
	})
	require.NoError(t, err)
	assert.Equal(t, "myAlias", link.ShortCode)
}

func TestShorten_CustomAliasConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://a.com", CustomAlias: "taken1"})
	require.NoError(t, err)

	// Алиас пробуется ровно один раз: конфликт отдается клиенту
	_, err = env.service.Shorten(ctx, CreateLink{OriginalURL: "https://b.com", CustomAlias: "taken1"})
	assert.ErrorIs(t, err, repository.ErrCodeExists)
}

func TestShorten_InvalidAlias(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://a.com", CustomAlias: "a"})
	assert.ErrorIs(t, err, shortcode.ErrInvalidAlias)

	_, err = env.service.Shorten(ctx, CreateLink{OriginalURL: "https://a.com", CustomAlias: "health"})
	assert.ErrorIs(t, err, shortcode.ErrReservedAlias)
}

func TestShorten_DeduplicatesSameURL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})
	require.NoError(t, err)

	second, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.ShortCode, second.ShortCode)

	// Кастомный алиас дедупликацию обходит
	aliased, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://example.com", CustomAlias: "sameURL"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ShortCode, aliased.ShortCode)
}

func TestShorten_RetriesOnGeneratedCollision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Источник выдает сначала "000000", затем "111111"
	env.gen.WithSource(&sequenceSource{indexes: []int{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1}})

	require.NoError(t, env.storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://already.there",
		ShortCode:   "000000",
	}))

	link, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "111111", link.ShortCode)
}

func TestResolve_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Resolve(context.Background(), "zzzzzz")
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
	assert.Empty(t, env.recorder.submitted())
}

func TestResolve_ExpiredIsRemovedLazily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	require.NoError(t, env.storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://gone.example.com",
		ShortCode:   "gone01",
		ExpiresAt:   &past,
	}))

	_, err := env.service.Resolve(ctx, "gone01")
	assert.ErrorIs(t, err, ErrLinkExpired)

	// Истекшая запись удаляется при обращении, дальше это 404
	_, err = env.storage.GetLinkByCode(ctx, "gone01")
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)

	_, err = env.service.Resolve(ctx, "gone01")
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
	assert.Empty(t, env.recorder.submitted())
}

func TestResolve_CacheHitSkipsStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Запись только в кэше: попадание авторитетно для текущего редиректа
	require.NoError(t, env.cache.SetURL(ctx, "cached", "https://cached.example.com", time.Hour))

	got, err := env.service.Resolve(ctx, "cached")
	require.NoError(t, err)
	assert.Equal(t, "https://cached.example.com", got)
	assert.Len(t, env.recorder.submitted(), 1)
}

func TestResolve_FailsOpenWhenCacheDown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})
	require.NoError(t, err)

	env.cache.failing = true

	got, err := env.service.Resolve(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)
}

func TestResolve_RepopulatesCacheOnMiss(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})
	require.NoError(t, err)

	require.NoError(t, env.cache.Invalidate(ctx, link.ShortCode))

	_, err = env.service.Resolve(ctx, link.ShortCode)
	require.NoError(t, err)

	url, ok := env.cache.cachedURL(link.ShortCode)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", url)
}

func TestCreate_CacheTTLCappedByExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	expires := time.Now().Add(30 * time.Minute)

	link, err := env.service.Shorten(ctx, CreateLink{
		OriginalURL: "https://example.com",
		ExpiresAt:   &expires,
	})
	require.NoError(t, err)

	// Дефолтный TTL час, но запись не должна пережить ссылку
	ttl := env.cache.cachedTTL(link.ShortCode)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 30*time.Minute)
}

func TestStats_SnapshotAndCaching(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, env.storage.RecordClick(ctx, link.ShortCode, now))
	require.NoError(t, env.storage.RecordClick(ctx, link.ShortCode, now))

	snapshot, err := env.service.Stats(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snapshot.Clicks)
	assert.Equal(t, "https://example.com", snapshot.OriginalURL)
	require.NotNil(t, snapshot.LastUsedAt)

	// Пока снимок в кэше, новые клики в нем не видны
	require.NoError(t, env.storage.RecordClick(ctx, link.ShortCode, now))
	cached, err := env.service.Stats(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cached.Clicks)
}

func TestStats_UnknownCode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Stats(context.Background(), "zzzzzz")
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
}

func TestCanMutate(t *testing.T) {
	env := newTestEnv(t)
	owner := int64(1)
	other := int64(2)

	guestLink := &domain.Link{}
	ownedLink := &domain.Link{OwnerID: &owner}

	assert.True(t, env.service.CanMutate(&other, guestLink), "guest links are mutable by any authenticated user")
	assert.True(t, env.service.CanMutate(nil, guestLink))
	assert.True(t, env.service.CanMutate(&owner, ownedLink))
	assert.False(t, env.service.CanMutate(&other, ownedLink))
	assert.False(t, env.service.CanMutate(nil, ownedLink))
}

func TestUpdate_OwnershipAndCacheInvalidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := int64(1)
	other := int64(2)

	link, err := env.service.Shorten(ctx, CreateLink{
		OriginalURL: "https://old.example.com",
		CustomAlias: "upd001",
		OwnerID:     &owner,
	})
	require.NoError(t, err)

	_, err = env.service.Update(ctx, link.ShortCode, &other, repository.LinkUpdate{OriginalURL: "https://new.example.com"})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = env.service.Update(ctx, link.ShortCode, &owner, repository.LinkUpdate{})
	assert.ErrorIs(t, err, ErrEmptyURL)

	updated, err := env.service.Update(ctx, link.ShortCode, &owner, repository.LinkUpdate{OriginalURL: "https://new.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://new.example.com", updated.OriginalURL)

	// После обновления кэш инвалидируется, а не перезаписывается
	_, ok := env.cache.cachedURL(link.ShortCode)
	assert.False(t, ok)
}

func TestDelete_OwnershipAndCacheInvalidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := int64(1)

	link, err := env.service.Shorten(ctx, CreateLink{
		OriginalURL: "https://example.com",
		CustomAlias: "del001",
		OwnerID:     &owner,
	})
	require.NoError(t, err)

	err = env.service.Delete(ctx, link.ShortCode, nil)
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, env.service.Delete(ctx, link.ShortCode, &owner))

	_, err = env.storage.GetLinkByCode(ctx, link.ShortCode)
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
	_, ok := env.cache.cachedURL(link.ShortCode)
	assert.False(t, ok)

	err = env.service.Delete(ctx, link.ShortCode, &owner)
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Shorten(ctx, CreateLink{OriginalURL: "https://example.com/docs", CustomAlias: "doc001"})
	require.NoError(t, err)
	_, err = env.service.Shorten(ctx, CreateLink{OriginalURL: "https://other.org", CustomAlias: "oth001"})
	require.NoError(t, err)

	found, err := env.service.Search(ctx, "example.com")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "doc001", found[0].ShortCode)
}
