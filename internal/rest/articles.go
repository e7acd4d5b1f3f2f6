package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dfryer1193/rhyon/api"
	"github.com/dfryer1193/rhyon/article/application"
	"github.com/dfryer1193/rhyon/article/domain"
	"github.com/dfryer1193/rhyon/shared/apperr"
	"github.com/dfryer1193/rhyon/shared/pagination"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// ArticleService is the set of use cases the HTTP layer drives.
type ArticleService interface {
	application.ArticleStore
	GetPublishedArticles(ctx context.Context, page pagination.PageRequest) (pagination.PageResponse[*domain.Article], error)
}

var _ ArticleService = (*application.ArticleService)(nil)

type ArticleHandler struct {
	articles ArticleService
	markdown application.MarkdownRenderer
}

func NewArticleHandler(articles ArticleService, markdown application.MarkdownRenderer) *ArticleHandler {
	return &ArticleHandler{
		articles: articles,
		markdown: markdown,
	}
}

// ListPublished serves GET /articles?page=&size=.
func (h *ArticleHandler) ListPublished(c *gin.Context) {
	page, err := intQuery(c, "page", pagination.DefaultPage)
	if err != nil {
		respondError(c, err)
		return
	}
	size, err := intQuery(c, "size", pagination.DefaultSize)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.articles.GetPublishedArticles(c.Request.Context(), pagination.NewPageRequest(page, size))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, pagination.MapPage(result, toArticleSummaryResponse))
}

func (h *ArticleHandler) Create(c *gin.Context) {
	var req api.CreateArticleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	article, err := h.articles.CreateArticle(c.Request.Context(), application.CreateArticleInput{
		Title:   req.Title,
		Slug:    req.Slug,
		Summary: req.Summary,
		Content: req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, toArticleResponse(article))
}

// Get serves a single article with its content rendered to HTML.
func (h *ArticleHandler) Get(c *gin.Context) {
	slug := c.Param("slug")

	article, err := h.articles.FindArticleBySlug(c.Request.Context(), slug)
	if err != nil {
		respondError(c, err)
		return
	}
	if article == nil {
		respondError(c, apperr.NotFound(fmt.Sprintf("article %q not found", slug)))
		return
	}

	resp := toArticleResponse(article)
	rendered, err := h.markdown.Render([]byte(article.Content().String()))
	if err != nil {
		respondError(c, apperr.Server("failed to render article "+slug, err))
		return
	}
	resp.ContentHTML = string(rendered.HTML)

	respond(c, http.StatusOK, resp)
}

func (h *ArticleHandler) Update(c *gin.Context) {
	var req api.UpdateArticleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	article, err := h.articles.UpdateArticle(c.Request.Context(), c.Param("slug"), application.UpdateArticleInput{
		Title:             req.Title,
		Slug:              req.Slug,
		Summary:           req.Summary,
		Content:           req.Content,
		RegenerateSummary: req.RegenerateSummary,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, toArticleResponse(article))
}

func (h *ArticleHandler) Publish(c *gin.Context) {
	article, err := h.articles.PublishArticle(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, toArticleResponse(article))
}

func (h *ArticleHandler) Unpublish(c *gin.Context) {
	article, err := h.articles.UnpublishArticle(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, toArticleResponse(article))
}

type validatable interface {
	Validate() error
}

func bindAndValidate(c *gin.Context, req validatable) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperr.Validation("invalid request body: "+err.Error()))
		return false
	}
	if err := req.Validate(); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return false
	}
	return true
}

// intQuery reads an optional integer query parameter. Range normalization is
// left to pagination.NewPageRequest.
func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(fmt.Sprintf("query parameter %q must be an integer", key))
	}
	return v, nil
}

func articleID(a *domain.Article) string {
	id, ok := a.ID()
	return lo.Ternary(ok, id.String(), "")
}

func toArticleResponse(a *domain.Article) api.ArticleResponse {
	return api.ArticleResponse{
		ID:          articleID(a),
		Slug:        a.Slug().String(),
		Title:       a.Title().String(),
		Summary:     a.Summary().String(),
		Content:     a.Content().String(),
		Status:      a.Status().String(),
		CreatedAt:   a.CreatedAt(),
		UpdatedAt:   a.UpdatedAt(),
		PublishedAt: a.PublishedAt(),
	}
}

func toArticleSummaryResponse(a *domain.Article) api.ArticleSummaryResponse {
	return api.ArticleSummaryResponse{
		ID:          articleID(a),
		Slug:        a.Slug().String(),
		Title:       a.Title().String(),
		Summary:     a.Summary().String(),
		Status:      a.Status().String(),
		CreatedAt:   a.CreatedAt(),
		UpdatedAt:   a.UpdatedAt(),
		PublishedAt: a.PublishedAt(),
	}
}
