package service

import (
	"LinkCut-Backend/internal/cache"
	"LinkCut-Backend/internal/config"
	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/metrics"
	"LinkCut-Backend/internal/repository"
	"LinkCut-Backend/internal/shortcode"
	"LinkCut-Backend/internal/stats"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrLinkExpired отличает истекшую ссылку от несуществующей:
	// клиент получает 410, а не 404.
	ErrLinkExpired = errors.New("link expired")
	// ErrNotOwner возвращается при попытке изменить чужую ссылку.
	ErrNotOwner = errors.New("link belongs to another owner")
	// ErrEmptyURL возвращается при создании/обновлении без original_url.
	ErrEmptyURL = errors.New("original url is required")
)

// CreateLink carries validated input for the create path.
type CreateLink struct {
	OriginalURL string
	CustomAlias string
	ExpiresAt   *time.Time
	OwnerID     *int64
	ProjectID   *int64
}

// LinkStats is the snapshot served by the stats endpoint and cached
// under stats:{code}.
type LinkStats struct {
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	CreatedAt   time.Time  `json:"created_at"`
	Clicks      int64      `json:"clicks"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	ProjectID   *int64     `json:"project_id,omitempty"`
}

// LinkService orchestrates code generation, the cache-aside read path
// and click accounting around the durable store.
type LinkService struct {
	storage  repository.Storage
	cache    cache.LinkCache
	gen      *shortcode.Generator
	recorder stats.Recorder
	cfg      *config.Shortener
	log      *zap.Logger
	now      func() time.Time
}

func NewLinkService(
	storage repository.Storage,
	linkCache cache.LinkCache,
	gen *shortcode.Generator,
	recorder stats.Recorder,
	cfg *config.Shortener,
	log *zap.Logger,
) *LinkService {
	return &LinkService{
		storage:  storage,
		cache:    linkCache,
		gen:      gen,
		recorder: recorder,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *LinkService) WithClock(now func() time.Time) *LinkService {
	s.now = now
	return s
}

// Shorten создает короткую ссылку. Кастомный алиас пробуется ровно один
// раз: конфликт возвращается вызывающему. Сгенерированные коды
// пробуются заново при конфликте вставки, длина растет по политике
// генератора. Успешная вставка прогревает кэш.
func (s *LinkService) Shorten(ctx context.Context, in CreateLink) (*domain.Link, error) {
	if in.OriginalURL == "" {
		return nil, ErrEmptyURL
	}

	if in.CustomAlias != "" {
		if err := s.gen.ValidateAlias(in.CustomAlias); err != nil {
			return nil, err
		}
		return s.createWithCode(ctx, in, in.CustomAlias)
	}

	// Без алиаса одинаковый URL не дублируется: возвращаем уже
	// существующую ссылку.
	if existing, err := s.storage.GetLinkByOriginalURL(ctx, in.OriginalURL); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrCodeNotFound) {
		return nil, err
	}

	// Уникальность обеспечивает вставка в хранилище, не генерация:
	// проверки "свободен ли код" перед вставкой здесь принципиально нет.
	maxAttempts := s.cfg.MaxCollisions*4 + 4
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := s.gen.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		link, err := s.createWithCode(ctx, in, code)
		if errors.Is(err, repository.ErrCodeExists) {
			s.gen.NoteCollision()
			s.log.Debug("generated code collided, retrying",
				zap.String("short_code", code),
				zap.Int("next_length", s.gen.Length()))
			continue
		}
		if err != nil {
			return nil, err
		}

		s.gen.NoteSuccess()
		return link, nil
	}

	return nil, fmt.Errorf("failed to find a free short code after %d attempts", maxAttempts)
}

func (s *LinkService) createWithCode(ctx context.Context, in CreateLink, code string) (*domain.Link, error) {
	link := &domain.Link{
		OriginalURL: in.OriginalURL,
		ShortCode:   code,
		ExpiresAt:   in.ExpiresAt,
		OwnerID:     in.OwnerID,
		ProjectID:   in.ProjectID,
	}

	if err := s.storage.CreateLink(ctx, link); err != nil {
		return nil, err
	}

	metrics.LinksCreatedTotal.Inc()

	// Write-through: прогреваем кэш, ошибка кэша не отменяет создание.
	ttl := link.RemainingLifetime(s.now(), s.cfg.LinkCacheTTL)
	if err := s.cache.SetURL(ctx, link.ShortCode, link.OriginalURL, ttl); err != nil {
		metrics.CacheErrorsTotal.Inc()
		s.log.Warn("failed to prime link cache", zap.String("short_code", link.ShortCode), zap.Error(err))
	}

	return link, nil
}

// Resolve переводит короткий код в оригинальный URL.
//
// Конечные состояния: URL (редирект), ErrCodeNotFound, ErrLinkExpired.
// Попадание в кэш авторитетно для текущего редиректа; промах ведет в
// хранилище с ленивым удалением истекших записей. Недоступный кэш
// деградирует только по латентности: чтение уходит в хранилище.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	now := s.now()

	originalURL, err := s.cache.GetURL(ctx, code)
	switch {
	case err == nil:
		metrics.CacheHitsTotal.Inc()
		metrics.RedirectsTotal.WithLabelValues("redirected").Inc()
		s.submitClick(code, now)
		return originalURL, nil
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.CacheMissesTotal.Inc()
	default:
		// Fail open: кэш недоступен, читаем из хранилища.
		metrics.CacheErrorsTotal.Inc()
		s.log.Warn("link cache unavailable, falling back to store", zap.Error(err))
	}

	link, err := s.storage.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			metrics.RedirectsTotal.WithLabelValues("not_found").Inc()
		}
		return "", err
	}

	if link.IsExpired(now) {
		s.expireLazily(ctx, link)
		metrics.RedirectsTotal.WithLabelValues("expired").Inc()
		return "", ErrLinkExpired
	}

	if err := s.cache.SetURL(ctx, code, link.OriginalURL, link.RemainingLifetime(now, s.cfg.LinkCacheTTL)); err != nil {
		metrics.CacheErrorsTotal.Inc()
		s.log.Warn("failed to repopulate link cache", zap.String("short_code", code), zap.Error(err))
	}

	metrics.RedirectsTotal.WithLabelValues("redirected").Inc()
	s.submitClick(code, now)
	return link.OriginalURL, nil
}

// submitClick отправляет учет клика в фоновую очередь; редирект не ждет.
func (s *LinkService) submitClick(code string, at time.Time) {
	if err := s.recorder.Submit(stats.Click{Code: code, At: at}); err != nil {
		s.log.Warn("failed to submit click", zap.String("short_code", code), zap.Error(err))
	}
}

// expireLazily убирает истекшую ссылку при обращении к ней.
func (s *LinkService) expireLazily(ctx context.Context, link *domain.Link) {
	if err := s.storage.DeleteLink(ctx, link.ShortCode); err != nil && !errors.Is(err, repository.ErrCodeNotFound) {
		s.log.Warn("failed to lazily delete expired link", zap.String("short_code", link.ShortCode), zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, link.ShortCode); err != nil {
		metrics.CacheErrorsTotal.Inc()
	}
	s.log.Info("expired link removed on access", zap.String("short_code", link.ShortCode))
}

// Stats возвращает снимок статистики ссылки, кэшируя его ненадолго.
func (s *LinkService) Stats(ctx context.Context, code string) (*LinkStats, error) {
	if payload, err := s.cache.GetStats(ctx, code); err == nil {
		var cached LinkStats
		if jsonErr := json.Unmarshal(payload, &cached); jsonErr == nil {
			return &cached, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		metrics.CacheErrorsTotal.Inc()
	}

	link, err := s.storage.GetLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	snapshot := &LinkStats{
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		CreatedAt:   link.CreatedAt,
		Clicks:      link.Clicks,
		LastUsedAt:  link.LastUsedAt,
		ProjectID:   link.ProjectID,
	}

	if payload, jsonErr := json.Marshal(snapshot); jsonErr == nil {
		if cacheErr := s.cache.SetStats(ctx, code, payload, s.cfg.StatsCacheTTL); cacheErr != nil {
			metrics.CacheErrorsTotal.Inc()
		}
	}

	return snapshot, nil
}

// CanMutate решает, вправе ли запрашивающий изменить ссылку: гостевые
// ссылки доступны любому аутентифицированному вызову, именные — только
// владельцу.
func (s *LinkService) CanMutate(requester *int64, link *domain.Link) bool {
	if link.OwnerID == nil {
		return true
	}
	return requester != nil && *requester == *link.OwnerID
}

// Update изменяет ссылку. Запись в кэше инвалидируется, а не
// перезаписывается: гонка записи БД и кэша не должна оставить
// устаревший URL.
func (s *LinkService) Update(ctx context.Context, code string, requester *int64, upd repository.LinkUpdate) (*domain.Link, error) {
	if upd.OriginalURL == "" {
		return nil, ErrEmptyURL
	}

	link, err := s.storage.GetLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !s.CanMutate(requester, link) {
		return nil, ErrNotOwner
	}

	updated, err := s.storage.UpdateLink(ctx, code, upd)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, code); err != nil {
		metrics.CacheErrorsTotal.Inc()
		s.log.Warn("failed to invalidate cache after update", zap.String("short_code", code), zap.Error(err))
	}

	return updated, nil
}

// Delete удаляет ссылку и обе ее проекции в кэше.
func (s *LinkService) Delete(ctx context.Context, code string, requester *int64) error {
	link, err := s.storage.GetLinkByCode(ctx, code)
	if err != nil {
		return err
	}
	if !s.CanMutate(requester, link) {
		return ErrNotOwner
	}

	if err := s.storage.DeleteLink(ctx, code); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, code); err != nil {
		metrics.CacheErrorsTotal.Inc()
		s.log.Warn("failed to invalidate cache after delete", zap.String("short_code", code), zap.Error(err))
	}

	s.log.Info("link deleted", zap.String("short_code", code))
	return nil
}

// Search ищет ссылки по подстроке оригинального URL.
func (s *LinkService) Search(ctx context.Context, fragment string) ([]*domain.Link, error) {
	return s.storage.SearchLinksByOriginalURL(ctx, fragment)
}
