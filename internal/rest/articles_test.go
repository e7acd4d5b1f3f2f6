package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dfryer1193/rhyon/api"
	"github.com/dfryer1193/rhyon/article/application"
	"github.com/dfryer1193/rhyon/article/domain"
	"github.com/dfryer1193/rhyon/article/domain/mocks"
	"github.com/dfryer1193/rhyon/shared/apperr"
	"github.com/dfryer1193/rhyon/shared/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func setupRouter(t *testing.T, pinger stubPinger) (*gin.Engine, *mocks.MockArticleRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockArticleRepository(ctrl)

	router := gin.New()
	NewApi(router,
		NewArticleHandler(application.NewArticleService(repo), application.NewMarkdownRenderer("https://example.org")),
		NewHealthHandler(pinger),
	)
	return router, repo
}

func do(router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func mustSlug(t *testing.T, s string) domain.Slug {
	t.Helper()
	slug, err := domain.NewSlug(s)
	require.NoError(t, err)
	return slug
}

func storedArticle(t *testing.T, slug string, content string, publish bool) *domain.Article {
	t.Helper()
	title, err := domain.NewTitle("Stored " + slug)
	require.NoError(t, err)
	a, err := domain.NewArticle(title, mustSlug(t, slug), nil, domain.NewContent(content))
	require.NoError(t, err)
	a.SetID(domain.ID(uuid.New()))
	if publish {
		require.NoError(t, a.Publish())
	}
	return a
}

func TestListPublished(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})
	published := storedArticle(t, "first", "Some content", true)

	repo.EXPECT().
		FindByStatus(gomock.Any(), domain.StatusPublished, pagination.NewPageRequest(2, 5)).
		Return(pagination.NewPageResponse([]*domain.Article{published}, 2, 5, 6), nil)

	w := do(router, http.MethodGet, "/articles?page=2&size=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.Response[pagination.PageResponse[map[string]any]]](t, w)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, resp.Data.Page)
	assert.Equal(t, 5, resp.Data.Size)
	assert.Equal(t, 6, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Pages)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "first", resp.Data.Items[0]["slug"])
	assert.Equal(t, "published", resp.Data.Items[0]["status"])
	assert.NotContains(t, resp.Data.Items[0], "content")
}

func TestListPublished_NormalizesWindow(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})

	repo.EXPECT().
		FindByStatus(gomock.Any(), domain.StatusPublished, pagination.NewPageRequest(1, 100)).
		Return(pagination.EmptyPage[*domain.Article](1, 100), nil)

	w := do(router, http.MethodGet, "/articles?page=0&size=250", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.Response[pagination.PageResponse[api.ArticleSummaryResponse]]](t, w)
	assert.Empty(t, resp.Data.Items)
	assert.Equal(t, 0, resp.Data.Pages)
}

func TestListPublished_Defaults(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})

	repo.EXPECT().
		FindByStatus(gomock.Any(), domain.StatusPublished, pagination.DefaultPageRequest()).
		Return(pagination.EmptyPage[*domain.Article](1, 10), nil)

	w := do(router, http.MethodGet, "/articles", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPublished_InvalidQuery(t *testing.T) {
	for _, target := range []string{"/articles?page=abc", "/articles?size=ten", "/articles?page=1.5"} {
		t.Run(target, func(t *testing.T) {
			router, _ := setupRouter(t, stubPinger{})

			w := do(router, http.MethodGet, target, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[api.ErrorResponse](t, w)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Contains(t, resp.Message, "must be an integer")
		})
	}
}

func TestCreateArticle(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})
	assigned := domain.ID(uuid.New())
	content := strings.Repeat("word ", 60)

	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(assigned, nil)

	w := do(router, http.MethodPost, "/articles", api.CreateArticleRequest{
		Title:   "My First Post",
		Content: content,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[api.Response[api.ArticleResponse]](t, w)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, assigned.String(), resp.Data.ID)
	assert.Equal(t, "my-first-post", resp.Data.Slug)
	assert.Equal(t, "draft", resp.Data.Status)
	assert.True(t, strings.HasSuffix(resp.Data.Summary, "..."))
	assert.Nil(t, resp.Data.PublishedAt)
}

func TestCreateArticle_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		body        any
		wantMessage string
	}{
		{"malformed json", `{"title":`, "invalid request body"},
		{"missing title", api.CreateArticleRequest{Content: "body"}, "title"},
		{"title too long", api.CreateArticleRequest{Title: strings.Repeat("x", 201)}, "200"},
		{"blank slug", map[string]any{"title": "Hello", "slug": ""}, "slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupRouter(t, stubPinger{})

			w := do(router, http.MethodPost, "/articles", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[api.ErrorResponse](t, w)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Contains(t, resp.Message, tt.wantMessage)
		})
	}
}

func TestCreateArticle_DuplicateSlug(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(domain.ID{}, apperr.Validation(`slug "hello" is already taken`))

	w := do(router, http.MethodPost, "/articles", api.CreateArticleRequest{Title: "Hello", Content: "body"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[api.ErrorResponse](t, w).Message, "already taken")
}

func TestGetArticle(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})
	article := storedArticle(t, "hello", "Hello **world**", false)

	repo.EXPECT().FindBySlug(gomock.Any(), mustSlug(t, "hello")).Return(article, nil)

	w := do(router, http.MethodGet, "/articles/hello", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.Response[api.ArticleResponse]](t, w)
	assert.Equal(t, "hello", resp.Data.Slug)
	assert.Equal(t, "Hello **world**", resp.Data.Content)
	assert.Contains(t, resp.Data.ContentHTML, "<strong>world</strong>")
}

func TestGetArticle_NotFound(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})
	repo.EXPECT().FindBySlug(gomock.Any(), mustSlug(t, "missing")).Return(nil, nil)

	w := do(router, http.MethodGet, "/articles/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[api.ErrorResponse](t, w)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Message, "missing")
}

func TestGetArticle_StoreFailureIsNotLeaked(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})
	repo.EXPECT().FindBySlug(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset by peer"))

	w := do(router, http.MethodGet, "/articles/hello", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[api.ErrorResponse](t, w)
	assert.Equal(t, "Internal Server Error", resp.Message)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestUpdateArticle(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})
	article := storedArticle(t, "draft-one", "Body", false)

	repo.EXPECT().FindBySlug(gomock.Any(), mustSlug(t, "draft-one")).Return(article, nil)
	repo.EXPECT().Save(gomock.Any(), article).DoAndReturn(func(_ context.Context, a *domain.Article) (domain.ID, error) {
		id, _ := a.ID()
		return id, nil
	})

	w := do(router, http.MethodPatch, "/articles/draft-one", api.UpdateArticleRequest{
		Title: ptr("Renamed"),
		Slug:  ptr("renamed"),
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.Response[api.ArticleResponse]](t, w)
	assert.Equal(t, "Renamed", resp.Data.Title)
	assert.Equal(t, "renamed", resp.Data.Slug)
}

func TestUpdateArticle_Rejected(t *testing.T) {
	t.Run("invalid body", func(t *testing.T) {
		router, _ := setupRouter(t, stubPinger{})

		w := do(router, http.MethodPatch, "/articles/any", map[string]any{"title": ""})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing article", func(t *testing.T) {
		router, repo := setupRouter(t, stubPinger{})
		repo.EXPECT().FindBySlug(gomock.Any(), gomock.Any()).Return(nil, nil)

		w := do(router, http.MethodPatch, "/articles/missing", api.UpdateArticleRequest{Title: ptr("New")})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("slug change while published", func(t *testing.T) {
		router, repo := setupRouter(t, stubPinger{})
		repo.EXPECT().FindBySlug(gomock.Any(), gomock.Any()).Return(storedArticle(t, "live", "Body", true), nil)

		w := do(router, http.MethodPatch, "/articles/live", api.UpdateArticleRequest{Slug: ptr("moved")})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPublishArticle(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})
	article := storedArticle(t, "ready", "Body", false)
	id, _ := article.ID()

	repo.EXPECT().FindBySlug(gomock.Any(), mustSlug(t, "ready")).Return(article, nil)
	repo.EXPECT().Save(gomock.Any(), article).Return(id, nil)

	w := do(router, http.MethodPost, "/articles/ready/publish", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.Response[api.ArticleResponse]](t, w)
	assert.Equal(t, "published", resp.Data.Status)
	assert.NotNil(t, resp.Data.PublishedAt)
}

func TestPublishArticle_Rejected(t *testing.T) {
	t.Run("missing article", func(t *testing.T) {
		router, repo := setupRouter(t, stubPinger{})
		repo.EXPECT().FindBySlug(gomock.Any(), gomock.Any()).Return(nil, nil)

		w := do(router, http.MethodPost, "/articles/missing/publish", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty content", func(t *testing.T) {
		router, repo := setupRouter(t, stubPinger{})
		repo.EXPECT().FindBySlug(gomock.Any(), gomock.Any()).Return(storedArticle(t, "empty", "   ", false), nil)

		w := do(router, http.MethodPost, "/articles/empty/publish", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode[api.ErrorResponse](t, w).Message, "empty content")
	})
}

func TestUnpublishArticle(t *testing.T) {
	router, repo := setupRouter(t, stubPinger{})
	article := storedArticle(t, "live", "Body", true)
	id, _ := article.ID()
	publishedAt := *article.PublishedAt()

	repo.EXPECT().FindBySlug(gomock.Any(), mustSlug(t, "live")).Return(article, nil)
	repo.EXPECT().Save(gomock.Any(), article).Return(id, nil)

	w := do(router, http.MethodPost, "/articles/live/unpublish", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.Response[api.ArticleResponse]](t, w)
	assert.Equal(t, "draft", resp.Data.Status)
	require.NotNil(t, resp.Data.PublishedAt)
	assert.True(t, publishedAt.Equal(*resp.Data.PublishedAt))
}

func TestUnpublishArticle_Rejected(t *testing.T) {
	t.Run("missing article", func(t *testing.T) {
		router, repo := setupRouter(t, stubPinger{})
		repo.EXPECT().FindBySlug(gomock.Any(), gomock.Any()).Return(nil, nil)

		w := do(router, http.MethodPost, "/articles/missing/unpublish", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("draft article", func(t *testing.T) {
		router, repo := setupRouter(t, stubPinger{})
		repo.EXPECT().FindBySlug(gomock.Any(), gomock.Any()).Return(storedArticle(t, "draft", "Body", false), nil)

		w := do(router, http.MethodPost, "/articles/draft/unpublish", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func ptr[T any](v T) *T {
	return &v
}
