package repository

import (
	"LinkCut-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrCodeNotFound    = errors.New("short code not found")
	ErrCodeExists      = errors.New("short code already exists")
	ErrUserExists      = errors.New("user already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrProjectNotFound = errors.New("project not found")
)

// LinkUpdate описывает изменяемые поля ссылки. OriginalURL обязателен,
// ExpiresAt и ProjectID применяются только если заданы.
type LinkUpdate struct {
	OriginalURL string
	ExpiresAt   *time.Time
	ProjectID   *int64
}

type Storage interface {
	// Link methods
	//
	// CreateLink выполняет атомарную вставку: уникальность short_code
	// обеспечивается ограничением БД, конфликт возвращается как
	// ErrCodeExists. Две конкурентные вставки одного кода не могут
	// обе завершиться успешно.
	CreateLink(ctx context.Context, link *domain.Link) error
	GetLinkByCode(ctx context.Context, code string) (*domain.Link, error)
	GetLinkByID(ctx context.Context, id int64) (*domain.Link, error)
	GetLinkByOriginalURL(ctx context.Context, originalURL string) (*domain.Link, error)
	SearchLinksByOriginalURL(ctx context.Context, fragment string) ([]*domain.Link, error)
	UpdateLink(ctx context.Context, code string, upd LinkUpdate) (*domain.Link, error)
	DeleteLink(ctx context.Context, code string) error

	// RecordClick атомарно инкрементирует clicks и обновляет last_used_at
	// одним UPDATE; N конкурентных вызовов дают ровно +N.
	RecordClick(ctx context.Context, code string, at time.Time) error

	// Expiration / cleanup
	ListExpiredLinks(ctx context.Context, now time.Time, ownerID *int64) ([]*domain.Link, error)
	DeleteExpiredLinks(ctx context.Context, now time.Time, batchSize int) (int64, error)
	DeleteUnusedLinks(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)

	AssignLinkProject(ctx context.Context, linkID int64, projectID *int64) error

	// User methods
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)

	// Project methods
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProject(ctx context.Context, id int64) (*domain.Project, error)
	ListUserProjects(ctx context.Context, ownerID int64) ([]*domain.Project, error)
	UpdateProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, id int64) error
	ListProjectLinks(ctx context.Context, projectID int64) ([]*domain.Link, error)
}
