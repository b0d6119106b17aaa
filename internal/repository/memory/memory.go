// Package memory provides an in-memory Storage implementation used in
// unit tests and local development without PostgreSQL.
package memory

import (
	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/repository"
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type MemStorage struct {
	mu             sync.RWMutex
	linksByCode    map[string]*domain.Link
	usersByName    map[string]*domain.User
	projects       map[int64]*domain.Project
	linkCounter    int64
	userCounter    int64
	projectCounter int64
}

func New() *MemStorage {
	return &MemStorage{
		linksByCode: make(map[string]*domain.Link),
		usersByName: make(map[string]*domain.User),
		projects:    make(map[int64]*domain.Project),
	}
}

func copyLink(l *domain.Link) *domain.Link {
	c := *l
	return &c
}

// --- Link Methods ---

func (s *MemStorage) CreateLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.linksByCode[link.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	s.linkCounter++
	link.ID = s.linkCounter
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	s.linksByCode[link.ShortCode] = copyLink(link)
	return nil
}

func (s *MemStorage) GetLinkByCode(_ context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.linksByCode[code]
	if !ok {
		return nil, repository.ErrCodeNotFound
	}
	return copyLink(link), nil
}

func (s *MemStorage) GetLinkByID(_ context.Context, id int64) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, link := range s.linksByCode {
		if link.ID == id {
			return copyLink(link), nil
		}
	}
	return nil, repository.ErrCodeNotFound
}

func (s *MemStorage) GetLinkByOriginalURL(_ context.Context, originalURL string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var oldest *domain.Link
	for _, link := range s.linksByCode {
		if link.OriginalURL != originalURL {
			continue
		}
		if oldest == nil || link.CreatedAt.Before(oldest.CreatedAt) {
			oldest = link
		}
	}
	if oldest == nil {
		return nil, repository.ErrCodeNotFound
	}
	return copyLink(oldest), nil
}

func (s *MemStorage) SearchLinksByOriginalURL(_ context.Context, fragment string) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Link
	for _, link := range s.linksByCode {
		if strings.Contains(link.OriginalURL, fragment) {
			out = append(out, copyLink(link))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStorage) UpdateLink(_ context.Context, code string, upd repository.LinkUpdate) (*domain.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.linksByCode[code]
	if !ok {
		return nil, repository.ErrCodeNotFound
	}

	link.OriginalURL = upd.OriginalURL
	if upd.ExpiresAt != nil {
		link.ExpiresAt = upd.ExpiresAt
	}
	if upd.ProjectID != nil {
		link.ProjectID = upd.ProjectID
	}
	return copyLink(link), nil
}

func (s *MemStorage) DeleteLink(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.linksByCode[code]; !ok {
		return repository.ErrCodeNotFound
	}
	delete(s.linksByCode, code)
	return nil
}

func (s *MemStorage) RecordClick(_ context.Context, code string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.linksByCode[code]
	if !ok {
		return repository.ErrCodeNotFound
	}
	link.Clicks++
	t := at
	link.LastUsedAt = &t
	return nil
}

func (s *MemStorage) ListExpiredLinks(_ context.Context, now time.Time, ownerID *int64) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Link
	for _, link := range s.linksByCode {
		if !link.IsExpired(now) {
			continue
		}
		if ownerID == nil {
			if link.OwnerID != nil {
				continue
			}
		} else if link.OwnerID == nil || *link.OwnerID != *ownerID {
			continue
		}
		out = append(out, copyLink(link))
	}
	return out, nil
}

func (s *MemStorage) DeleteExpiredLinks(_ context.Context, now time.Time, _ int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for code, link := range s.linksByCode {
		if link.IsExpired(now) {
			delete(s.linksByCode, code)
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) DeleteUnusedLinks(_ context.Context, cutoff time.Time, _ int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for code, link := range s.linksByCode {
		lastActivity := link.CreatedAt
		if link.LastUsedAt != nil {
			lastActivity = *link.LastUsedAt
		}
		if lastActivity.Before(cutoff) {
			delete(s.linksByCode, code)
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) AssignLinkProject(_ context.Context, linkID int64, projectID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, link := range s.linksByCode {
		if link.ID == linkID {
			link.ProjectID = projectID
			return nil
		}
	}
	return repository.ErrCodeNotFound
}

// --- User Methods ---

func (s *MemStorage) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByName[user.Username]; exists {
		return repository.ErrUserExists
	}
	for _, u := range s.usersByName {
		if u.Email == user.Email {
			return repository.ErrUserExists
		}
	}

	s.userCounter++
	user.ID = s.userCounter
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	u := *user
	s.usersByName[user.Username] = &u
	return nil
}

func (s *MemStorage) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByName[username]
	if !ok || !user.IsActive {
		return nil, repository.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *MemStorage) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.usersByName {
		if user.ID == id {
			u := *user
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// --- Project Methods ---

func (s *MemStorage) CreateProject(_ context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projectCounter++
	project.ID = s.projectCounter
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	p := *project
	s.projects[project.ID] = &p
	return nil
}

func (s *MemStorage) GetProject(_ context.Context, id int64) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.projects[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	p := *project
	return &p, nil
}

func (s *MemStorage) ListUserProjects(_ context.Context, ownerID int64) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Project
	for _, project := range s.projects {
		if project.OwnerID == ownerID {
			p := *project
			out = append(out, &p)
		}
	}
	return out, nil
}

func (s *MemStorage) UpdateProject(_ context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.projects[project.ID]
	if !ok {
		return repository.ErrProjectNotFound
	}
	existing.Name = project.Name
	existing.Description = project.Description
	return nil
}

func (s *MemStorage) DeleteProject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return repository.ErrProjectNotFound
	}
	for _, link := range s.linksByCode {
		if link.ProjectID != nil && *link.ProjectID == id {
			link.ProjectID = nil
		}
	}
	delete(s.projects, id)
	return nil
}

func (s *MemStorage) ListProjectLinks(_ context.Context, projectID int64) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Link
	for _, link := range s.linksByCode {
		if link.ProjectID != nil && *link.ProjectID == projectID {
			out = append(out, copyLink(link))
		}
	}
	return out, nil
}
