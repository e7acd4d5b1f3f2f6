package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/dfryer1193/rhyon/article/domain"
	"github.com/dfryer1193/rhyon/shared/apperr"
	"github.com/dfryer1193/rhyon/shared/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storePrecision covers PostgreSQL's microsecond timestamps.
const storePrecision = time.Millisecond

func newDraft(t *testing.T, slug string) *domain.Article {
	t.Helper()
	title, err := domain.NewTitle("Title of " + slug)
	require.NoError(t, err)
	s, err := domain.NewSlug(slug)
	require.NoError(t, err)
	a, err := domain.NewArticle(title, s, nil, domain.NewContent("Body of "+slug+"."))
	require.NoError(t, err)
	return a
}

// seedArticle inserts an article and then rewrites it with the given status and publish time.
func seedArticle(t *testing.T, repo domain.ArticleRepository, slug string, status domain.Status, publishedAt *time.Time) *domain.Article {
	t.Helper()
	ctx := context.Background()

	draft := newDraft(t, slug)
	id, err := repo.Save(ctx, draft)
	require.NoError(t, err)

	stored := domain.Reconstitute(id, draft.Slug(), draft.Title(), draft.Summary(), draft.Content(), status, draft.CreatedAt(), draft.UpdatedAt(), publishedAt)
	_, err = repo.Save(ctx, stored)
	require.NoError(t, err)
	return stored
}

func slugsOf(articles []*domain.Article) []string {
	slugs := make([]string, 0, len(articles))
	for _, a := range articles {
		slugs = append(slugs, a.Slug().String())
	}
	return slugs
}

// testArticleRepositoryContract runs the behaviour every ArticleRepository must share.
func testArticleRepositoryContract(t *testing.T, newRepo func(t *testing.T) domain.ArticleRepository) {
	ctx := context.Background()

	t.Run("find missing returns nil", func(t *testing.T) {
		repo := newRepo(t)
		slug, _ := domain.NewSlug("missing")

		article, err := repo.FindBySlug(ctx, slug)

		require.NoError(t, err)
		assert.Nil(t, article)
	})

	t.Run("insert assigns id and round trips", func(t *testing.T) {
		repo := newRepo(t)
		draft := newDraft(t, "round-trip")

		id, err := repo.Save(ctx, draft)
		require.NoError(t, err)
		assert.False(t, id.IsZero())

		found, err := repo.FindBySlug(ctx, draft.Slug())
		require.NoError(t, err)
		require.NotNil(t, found)

		foundID, ok := found.ID()
		assert.True(t, ok)
		assert.Equal(t, id, foundID)
		assert.Equal(t, draft.Title(), found.Title())
		assert.Equal(t, draft.Summary(), found.Summary())
		assert.Equal(t, draft.Content(), found.Content())
		assert.Equal(t, domain.StatusDraft, found.Status())
		assert.WithinDuration(t, draft.CreatedAt(), found.CreatedAt(), storePrecision)
		assert.WithinDuration(t, draft.UpdatedAt(), found.UpdatedAt(), storePrecision)
		assert.Equal(t, time.UTC, found.CreatedAt().Location())
		assert.Nil(t, found.PublishedAt())
	})

	t.Run("duplicate slug on insert is a validation error", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, newDraft(t, "taken"))
		require.NoError(t, err)

		_, err = repo.Save(ctx, newDraft(t, "taken"))

		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	t.Run("update persists lifecycle changes", func(t *testing.T) {
		repo := newRepo(t)
		draft := newDraft(t, "lifecycle")
		id, err := repo.Save(ctx, draft)
		require.NoError(t, err)
		draft.SetID(id)

		require.NoError(t, draft.Publish())
		savedID, err := repo.Save(ctx, draft)
		require.NoError(t, err)
		assert.Equal(t, id, savedID)

		found, err := repo.FindBySlug(ctx, draft.Slug())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.True(t, found.IsPublished())
		require.NotNil(t, found.PublishedAt())
		assert.WithinDuration(t, *draft.PublishedAt(), *found.PublishedAt(), storePrecision)

		require.NoError(t, found.Unpublish())
		_, err = repo.Save(ctx, found)
		require.NoError(t, err)

		again, err := repo.FindBySlug(ctx, draft.Slug())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDraft, again.Status())
		assert.NotNil(t, again.PublishedAt())
	})

	t.Run("slug change is visible under the new slug only", func(t *testing.T) {
		repo := newRepo(t)
		draft := newDraft(t, "before")
		id, err := repo.Save(ctx, draft)
		require.NoError(t, err)
		draft.SetID(id)

		after, _ := domain.NewSlug("after")
		require.NoError(t, draft.UpdateSlug(after))
		_, err = repo.Save(ctx, draft)
		require.NoError(t, err)

		old, err := repo.FindBySlug(ctx, mustSlug(t, "before"))
		require.NoError(t, err)
		assert.Nil(t, old)

		found, err := repo.FindBySlug(ctx, after)
		require.NoError(t, err)
		require.NotNil(t, found)
	})

	t.Run("update to a taken slug is a validation error", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, newDraft(t, "first"))
		require.NoError(t, err)

		second := newDraft(t, "second")
		id, err := repo.Save(ctx, second)
		require.NoError(t, err)
		second.SetID(id)
		require.NoError(t, second.UpdateSlug(mustSlug(t, "first")))

		_, err = repo.Save(ctx, second)

		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	t.Run("update of unknown id is not found", func(t *testing.T) {
		repo := newRepo(t)
		draft := newDraft(t, "ghost")
		ghost := domain.Reconstitute(domain.ID(uuid.New()), draft.Slug(), draft.Title(), draft.Summary(), draft.Content(), domain.StatusDraft, draft.CreatedAt(), draft.UpdatedAt(), nil)

		_, err := repo.Save(ctx, ghost)

		assert.True(t, apperr.IsNotFound(err), "got %v", err)
	})

	t.Run("find by status orders newest published first and pages", func(t *testing.T) {
		repo := newRepo(t)
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, slug := range []string{"oldest", "middle", "newest"} {
			at := base.Add(time.Duration(i) * time.Hour)
			seedArticle(t, repo, slug, domain.StatusPublished, &at)
		}
		seedArticle(t, repo, "a-draft", domain.StatusDraft, nil)

		first, err := repo.FindByStatus(ctx, domain.StatusPublished, pagination.NewPageRequest(1, 2))
		require.NoError(t, err)
		assert.Equal(t, []string{"newest", "middle"}, slugsOf(first.Items))
		assert.Equal(t, 3, first.Total)
		assert.Equal(t, 2, first.Pages)
		assert.Equal(t, 1, first.Page)
		assert.Equal(t, 2, first.Size)

		second, err := repo.FindByStatus(ctx, domain.StatusPublished, pagination.NewPageRequest(2, 2))
		require.NoError(t, err)
		assert.Equal(t, []string{"oldest"}, slugsOf(second.Items))

		beyond, err := repo.FindByStatus(ctx, domain.StatusPublished, pagination.NewPageRequest(5, 2))
		require.NoError(t, err)
		assert.Empty(t, beyond.Items)
		assert.Equal(t, 3, beyond.Total)

		drafts, err := repo.FindByStatus(ctx, domain.StatusDraft, pagination.DefaultPageRequest())
		require.NoError(t, err)
		assert.Equal(t, []string{"a-draft"}, slugsOf(drafts.Items))
	})

	t.Run("find by status with an enormous page is empty", func(t *testing.T) {
		repo := newRepo(t)
		at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		seedArticle(t, repo, "only", domain.StatusPublished, &at)

		page, err := repo.FindByStatus(ctx, domain.StatusPublished, pagination.NewPageRequest(100000000000000000, 100))

		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 1, page.Total)
		assert.Equal(t, pagination.MaxPage, page.Page)
	})

	t.Run("find by status on empty store", func(t *testing.T) {
		repo := newRepo(t)

		page, err := repo.FindByStatus(ctx, domain.StatusPublished, pagination.DefaultPageRequest())

		require.NoError(t, err)
		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
		assert.Equal(t, 0, page.Total)
		assert.Equal(t, 0, page.Pages)
	})
}

func mustSlug(t *testing.T, s string) domain.Slug {
	t.Helper()
	slug, err := domain.NewSlug(s)
	require.NoError(t, err)
	return slug
}
