package domain

import "time"

// Link представляет сокращенную ссылку.
type Link struct {
	ID          int64      `gorm:"primaryKey;column:id" json:"id"`
	OriginalURL string     `gorm:"column:original_url;type:text;not null;index" json:"original_url"`
	ShortCode   string     `gorm:"column:short_code;size:32;not null;uniqueIndex" json:"short_code"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	LastUsedAt  *time.Time `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	ExpiresAt   *time.Time `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
	Clicks      int64      `gorm:"column:clicks;not null;default:0" json:"clicks"`
	OwnerID     *int64     `gorm:"column:owner_id;index" json:"owner_id,omitempty"` // nil = гостевая ссылка
	ProjectID   *int64     `gorm:"column:project_id;index" json:"project_id,omitempty"`

	// Relationships
	Owner   *User    `gorm:"foreignKey:OwnerID" json:"-"`
	Project *Project `gorm:"foreignKey:ProjectID" json:"-"`
}

// TableName возвращает название таблицы для GORM
func (Link) TableName() string {
	return "links"
}

// IsExpired reports whether the link has lapsed relative to now.
// Links without expires_at never expire.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// RemainingLifetime caps the given default cache TTL at the time left
// until expires_at, so a cache entry never outlives the link itself.
func (l *Link) RemainingLifetime(now time.Time, defaultTTL time.Duration) time.Duration {
	if l.ExpiresAt == nil {
		return defaultTTL
	}
	remaining := l.ExpiresAt.Sub(now)
	if remaining < defaultTTL {
		return remaining
	}
	return defaultTTL
}
