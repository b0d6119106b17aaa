package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLink_DuplicateCode(t *testing.T) {
	storage := New()
	ctx := context.Background()

	link := &domain.Link{OriginalURL: "https://example.com", ShortCode: "abc123"}
	require.NoError(t, storage.CreateLink(ctx, link))
	assert.NotZero(t, link.ID)

	dup := &domain.Link{OriginalURL: "https://other.com", ShortCode: "abc123"}
	err := storage.CreateLink(ctx, dup)
	assert.ErrorIs(t, err, repository.ErrCodeExists)
}

func TestGetLinkByCode_NotFound(t *testing.T) {
	storage := New()

	_, err := storage.GetLinkByCode(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
}

func TestRecordClick_Concurrent(t *testing.T) {
	storage := New()
	ctx := context.Background()

	require.NoError(t, storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://example.com",
		ShortCode:   "conc01",
	}))

	const clicks = 200
	var wg sync.WaitGroup
	wg.Add(clicks)
	for i := 0; i < clicks; i++ {
		go func() {
			defer wg.Done()
			_ = storage.RecordClick(ctx, "conc01", time.Now())
		}()
	}
	wg.Wait()

	link, err := storage.GetLinkByCode(ctx, "conc01")
	require.NoError(t, err)
	assert.Equal(t, int64(clicks), link.Clicks, "every click must be accounted for exactly once")
	require.NotNil(t, link.LastUsedAt)
}

func TestRecordClick_UnknownCode(t *testing.T) {
	storage := New()

	err := storage.RecordClick(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
}

func TestListExpiredLinks_OwnerScoping(t *testing.T) {
	storage := New()
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	owner := int64(7)

	require.NoError(t, storage.CreateLink(ctx, &domain.Link{OriginalURL: "https://a", ShortCode: "guest1", ExpiresAt: &past}))
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{OriginalURL: "https://b", ShortCode: "owned1", ExpiresAt: &past, OwnerID: &owner}))
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{OriginalURL: "https://c", ShortCode: "alive1", ExpiresAt: &future}))
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{OriginalURL: "https://d", ShortCode: "forever"}))

	guestExpired, err := storage.ListExpiredLinks(ctx, now, nil)
	require.NoError(t, err)
	require.Len(t, guestExpired, 1)
	assert.Equal(t, "guest1", guestExpired[0].ShortCode)

	ownerExpired, err := storage.ListExpiredLinks(ctx, now, &owner)
	require.NoError(t, err)
	require.Len(t, ownerExpired, 1)
	assert.Equal(t, "owned1", ownerExpired[0].ShortCode)
}

func TestDeleteExpiredLinks(t *testing.T) {
	storage := New()
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	require.NoError(t, storage.CreateLink(ctx, &domain.Link{OriginalURL: "https://a", ShortCode: "dead01", ExpiresAt: &past}))
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{OriginalURL: "https://b", ShortCode: "live01", ExpiresAt: &future}))

	deleted, err := storage.DeleteExpiredLinks(ctx, now, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = storage.GetLinkByCode(ctx, "dead01")
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
	_, err = storage.GetLinkByCode(ctx, "live01")
	assert.NoError(t, err)
}

func TestDeleteUnusedLinks_UsesCreatedAtWhenNeverClicked(t *testing.T) {
	storage := New()
	ctx := context.Background()
	now := time.Now().UTC()
	cutoff := now.Add(-24 * time.Hour)

	// Never clicked, created long ago: falls back to created_at.
	stale := &domain.Link{OriginalURL: "https://a", ShortCode: "stale1", CreatedAt: now.Add(-48 * time.Hour)}
	require.NoError(t, storage.CreateLink(ctx, stale))

	// Created long ago but recently clicked: stays.
	active := &domain.Link{OriginalURL: "https://b", ShortCode: "activ1", CreatedAt: now.Add(-48 * time.Hour)}
	require.NoError(t, storage.CreateLink(ctx, active))
	require.NoError(t, storage.RecordClick(ctx, "activ1", now))

	// Fresh and never clicked: stays.
	fresh := &domain.Link{OriginalURL: "https://c", ShortCode: "fresh1", CreatedAt: now}
	require.NoError(t, storage.CreateLink(ctx, fresh))

	deleted, err := storage.DeleteUnusedLinks(ctx, cutoff, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = storage.GetLinkByCode(ctx, "stale1")
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
	_, err = storage.GetLinkByCode(ctx, "activ1")
	assert.NoError(t, err)
	_, err = storage.GetLinkByCode(ctx, "fresh1")
	assert.NoError(t, err)
}

func TestGetLinkByOriginalURL_ReturnsOldest(t *testing.T) {
	storage := New()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://example.com", ShortCode: "newer1", CreatedAt: now,
	}))
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{
		OriginalURL: "https://example.com", ShortCode: "older1", CreatedAt: now.Add(-time.Hour),
	}))

	link, err := storage.GetLinkByOriginalURL(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "older1", link.ShortCode)
}

func TestSearchLinksByOriginalURL(t *testing.T) {
	storage := New()
	ctx := context.Background()

	require.NoError(t, storage.CreateLink(ctx, &domain.Link{OriginalURL: "https://example.com/docs", ShortCode: "doc001"}))
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{OriginalURL: "https://example.com/blog", ShortCode: "blog01"}))
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{OriginalURL: "https://other.org", ShortCode: "oth001"}))

	found, err := storage.SearchLinksByOriginalURL(ctx, "example.com")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	none, err := storage.SearchLinksByOriginalURL(ctx, "missing.host")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUsers(t *testing.T) {
	storage := New()
	ctx := context.Background()

	user := &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, storage.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	err := storage.CreateUser(ctx, &domain.User{Username: "alice", Email: "alice2@example.com"})
	assert.ErrorIs(t, err, repository.ErrUserExists)

	err = storage.CreateUser(ctx, &domain.User{Username: "alice2", Email: "alice@example.com"})
	assert.ErrorIs(t, err, repository.ErrUserExists)

	got, err := storage.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = storage.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestProjects_DeleteDetachesLinks(t *testing.T) {
	storage := New()
	ctx := context.Background()

	project := &domain.Project{Name: "marketing", OwnerID: 1}
	require.NoError(t, storage.CreateProject(ctx, project))

	link := &domain.Link{OriginalURL: "https://example.com", ShortCode: "proj01", ProjectID: &project.ID}
	require.NoError(t, storage.CreateLink(ctx, link))

	inProject, err := storage.ListProjectLinks(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, inProject, 1)

	require.NoError(t, storage.DeleteProject(ctx, project.ID))

	_, err = storage.GetProject(ctx, project.ID)
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)

	// Ссылка переживает проект, но отвязывается
	got, err := storage.GetLinkByCode(ctx, "proj01")
	require.NoError(t, err)
	assert.Nil(t, got.ProjectID)
}
