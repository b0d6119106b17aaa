package postgres

import (
	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresStorage реализует интерфейс Storage для PostgreSQL
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New создает новый экземпляр PostgreSQL storage
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Link Methods ---

// CreateLink сохраняет новую ссылку. Уникальность short_code обеспечивает
// уникальный индекс: конкурентная вставка того же кода получает
// ErrCodeExists, проверка и вставка не разделены.
func (s *PostgresStorage) CreateLink(ctx context.Context, link *domain.Link) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrCodeExists
		}
		s.log.Error("failed to create link", zap.String("short_code", link.ShortCode), zap.Error(err))
		return fmt.Errorf("failed to create link: %w", err)
	}

	s.log.Info("created link", zap.String("short_code", link.ShortCode), zap.Int64("id", link.ID))
	return nil
}

// GetLinkByCode получает ссылку по короткому коду
func (s *PostgresStorage) GetLinkByCode(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrCodeNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.String("short_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// GetLinkByID получает ссылку по идентификатору
func (s *PostgresStorage) GetLinkByID(ctx context.Context, id int64) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).First(&link, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrCodeNotFound
	}
	if err != nil {
		s.log.Error("failed to get link by id", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// GetLinkByOriginalURL находит первую ссылку с точно таким оригинальным URL
func (s *PostgresStorage) GetLinkByOriginalURL(ctx context.Context, originalURL string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where("original_url = ?", originalURL).
		Order("created_at ASC").First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrCodeNotFound
	}
	if err != nil {
		s.log.Error("failed to get link by original url", zap.Error(err))
		return nil, fmt.Errorf("failed to get link by original url: %w", err)
	}

	return &link, nil
}

// SearchLinksByOriginalURL ищет ссылки по подстроке оригинального URL
func (s *PostgresStorage) SearchLinksByOriginalURL(ctx context.Context, fragment string) ([]*domain.Link, error) {
	var links []*domain.Link

	err := s.db.WithContext(ctx).Where("original_url LIKE ?", "%"+fragment+"%").
		Order("created_at DESC").Find(&links).Error
	if err != nil {
		s.log.Error("failed to search links", zap.Error(err))
		return nil, fmt.Errorf("failed to search links: %w", err)
	}

	return links, nil
}

// UpdateLink изменяет оригинальный URL и, если заданы, expires_at и project_id
func (s *PostgresStorage) UpdateLink(ctx context.Context, code string, upd repository.LinkUpdate) (*domain.Link, error) {
	updates := map[string]interface{}{
		"original_url": upd.OriginalURL,
	}
	if upd.ExpiresAt != nil {
		updates["expires_at"] = upd.ExpiresAt
	}
	if upd.ProjectID != nil {
		updates["project_id"] = upd.ProjectID
	}

	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("short_code = ?", code).Updates(updates)
	if result.Error != nil {
		s.log.Error("failed to update link", zap.String("short_code", code), zap.Error(result.Error))
		return nil, fmt.Errorf("failed to update link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrCodeNotFound
	}

	return s.GetLinkByCode(ctx, code)
}

// DeleteLink удаляет ссылку по короткому коду
func (s *PostgresStorage) DeleteLink(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).Where("short_code = ?", code).Delete(&domain.Link{})
	if result.Error != nil {
		s.log.Error("failed to delete link", zap.String("short_code", code), zap.Error(result.Error))
		return fmt.Errorf("failed to delete link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrCodeNotFound
	}

	s.log.Info("deleted link", zap.String("short_code", code))
	return nil
}

// RecordClick атомарно инкрементирует счетчик и обновляет метку
// последнего использования одним UPDATE. Никакого read-modify-write:
// конкурентные клики по одному коду не теряются.
func (s *PostgresStorage) RecordClick(ctx context.Context, code string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("short_code = ?", code).
		Updates(map[string]interface{}{
			"clicks":       gorm.Expr("clicks + 1"),
			"last_used_at": at,
		})
	if result.Error != nil {
		s.log.Error("failed to record click", zap.String("short_code", code), zap.Error(result.Error))
		return fmt.Errorf("failed to record click: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrCodeNotFound
	}

	return nil
}

// ListExpiredLinks возвращает просроченные ссылки. ownerID == nil
// означает гостевые ссылки (без владельца).
func (s *PostgresStorage) ListExpiredLinks(ctx context.Context, now time.Time, ownerID *int64) ([]*domain.Link, error) {
	var links []*domain.Link

	query := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now)
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	} else {
		query = query.Where("owner_id IS NULL")
	}

	if err := query.Order("expires_at ASC").Find(&links).Error; err != nil {
		s.log.Error("failed to list expired links", zap.Error(err))
		return nil, fmt.Errorf("failed to list expired links: %w", err)
	}

	return links, nil
}

// DeleteExpiredLinks удаляет просроченные ссылки ограниченными порциями,
// чтобы не держать долгие блокировки на большой таблице.
func (s *PostgresStorage) DeleteExpiredLinks(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	return s.deleteInBatches(ctx, batchSize, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("expires_at IS NOT NULL AND expires_at < ?", now)
	})
}

// DeleteUnusedLinks удаляет ссылки, которые не использовались с cutoff.
// Ссылка без единого использования оценивается по created_at.
func (s *PostgresStorage) DeleteUnusedLinks(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	return s.deleteInBatches(ctx, batchSize, func(tx *gorm.DB) *gorm.DB {
		return tx.Where(
			"last_used_at < ? OR (last_used_at IS NULL AND created_at < ?)",
			cutoff, cutoff,
		)
	})
}

// deleteInBatches выполняет DELETE по id-подзапросу порциями batchSize
// до тех пор, пока подходящие строки не закончатся.
func (s *PostgresStorage) deleteInBatches(ctx context.Context, batchSize int, cond func(tx *gorm.DB) *gorm.DB) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	var total int64
	for {
		sub := cond(s.db.WithContext(ctx).Model(&domain.Link{})).
			Select("id").Limit(batchSize)

		result := s.db.WithContext(ctx).Where("id IN (?)", sub).Delete(&domain.Link{})
		if result.Error != nil {
			s.log.Error("failed to delete links batch", zap.Error(result.Error))
			return total, fmt.Errorf("failed to delete links batch: %w", result.Error)
		}

		total += result.RowsAffected
		if result.RowsAffected < int64(batchSize) {
			break
		}
	}

	return total, nil
}

// AssignLinkProject привязывает ссылку к проекту (nil отвязывает)
func (s *PostgresStorage) AssignLinkProject(ctx context.Context, linkID int64, projectID *int64) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("id = ?", linkID).Update("project_id", projectID)
	if result.Error != nil {
		s.log.Error("failed to assign link project", zap.Int64("link_id", linkID), zap.Error(result.Error))
		return fmt.Errorf("failed to assign link project: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrCodeNotFound
	}

	return nil
}

// --- User Methods ---

// CreateUser создает нового пользователя
func (s *PostgresStorage) CreateUser(ctx context.Context, user *domain.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrUserExists
		}
		s.log.Error("failed to create user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("created user", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return nil
}

// GetUserByUsername получает активного пользователя по имени
func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).Where("username = ? AND is_active = ?", username, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by username", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetUserByID получает пользователя по идентификатору
func (s *PostgresStorage) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by id", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// --- Project Methods ---

// CreateProject создает новый проект
func (s *PostgresStorage) CreateProject(ctx context.Context, project *domain.Project) error {
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		s.log.Error("failed to create project", zap.String("name", project.Name), zap.Error(err))
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetProject получает проект по идентификатору
func (s *PostgresStorage) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	var project domain.Project

	err := s.db.WithContext(ctx).First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrProjectNotFound
	}
	if err != nil {
		s.log.Error("failed to get project", zap.Int64("project_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// ListUserProjects возвращает проекты пользователя
func (s *PostgresStorage) ListUserProjects(ctx context.Context, ownerID int64) ([]*domain.Project, error) {
	var projects []*domain.Project

	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("created_at DESC").Find(&projects).Error
	if err != nil {
		s.log.Error("failed to list user projects", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list user projects: %w", err)
	}

	return projects, nil
}

// UpdateProject обновляет название и описание проекта
func (s *PostgresStorage) UpdateProject(ctx context.Context, project *domain.Project) error {
	result := s.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ?", project.ID).
		Updates(map[string]interface{}{
			"name":        project.Name,
			"description": project.Description,
		})
	if result.Error != nil {
		s.log.Error("failed to update project", zap.Int64("project_id", project.ID), zap.Error(result.Error))
		return fmt.Errorf("failed to update project: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrProjectNotFound
	}

	return nil
}

// DeleteProject удаляет проект, предварительно отвязав его ссылки
func (s *PostgresStorage) DeleteProject(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Link{}).
			Where("project_id = ?", id).
			Update("project_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach project links: %w", err)
		}

		result := tx.Delete(&domain.Project{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete project: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrProjectNotFound
		}

		return nil
	})
}

// ListProjectLinks возвращает ссылки проекта
func (s *PostgresStorage) ListProjectLinks(ctx context.Context, projectID int64) ([]*domain.Link, error) {
	var links []*domain.Link

	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).
		Order("created_at DESC").Find(&links).Error
	if err != nil {
		s.log.Error("failed to list project links", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("failed to list project links: %w", err)
	}

	return links, nil
}
