// Package cache implements the key-value projection of links: short code
// to original URL, plus a short-lived stats snapshot. The durable store
// stays authoritative; everything here is best-effort.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss сигнализирует отсутствие ключа. Любая другая ошибка
// трактуется сервисом как недоступность кэша и приводит к чтению из БД.
var ErrCacheMiss = errors.New("cache miss")

type LinkCache interface {
	// GetURL возвращает оригинальный URL по короткому коду.
	GetURL(ctx context.Context, code string) (string, error)
	// SetURL сохраняет проекцию code -> url с ограниченным временем жизни.
	SetURL(ctx context.Context, code, originalURL string, ttl time.Duration) error
	// GetStats / SetStats работают с сериализованным снимком статистики.
	GetStats(ctx context.Context, code string) ([]byte, error)
	SetStats(ctx context.Context, code string, payload []byte, ttl time.Duration) error
	// Invalidate удаляет обе проекции кода.
	Invalidate(ctx context.Context, code string) error
	// InvalidateStats удаляет только снимок статистики.
	InvalidateStats(ctx context.Context, code string) error
}

// Noop is used when the cache layer is disabled: every read misses and
// every write is dropped, so the service serves straight from the store.
type Noop struct{}

func (Noop) GetURL(context.Context, string) (string, error)                    { return "", ErrCacheMiss }
func (Noop) SetURL(context.Context, string, string, time.Duration) error      { return nil }
func (Noop) GetStats(context.Context, string) ([]byte, error)                 { return nil, ErrCacheMiss }
func (Noop) SetStats(context.Context, string, []byte, time.Duration) error    { return nil }
func (Noop) Invalidate(context.Context, string) error                         { return nil }
func (Noop) InvalidateStats(context.Context, string) error                    { return nil }
