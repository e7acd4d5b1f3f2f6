package application

import (
	"context"
	"fmt"

	"github.com/dfryer1193/rhyon/article/domain"
	"github.com/dfryer1193/rhyon/internal/metrics"
	"github.com/dfryer1193/rhyon/shared/apperr"
	"github.com/dfryer1193/rhyon/shared/pagination"
	"github.com/rs/zerolog/log"
)

// CreateArticleInput carries raw create input. Nil Slug or Summary means "derive it".
type CreateArticleInput struct {
	Title   string
	Slug    *string
	Summary *string
	Content string
}

// UpdateArticleInput carries a partial update. Nil fields are left unchanged.
// When no Summary is given, the summary is regenerated from the content if
// RegenerateSummary is set or Content changes.
type UpdateArticleInput struct {
	Title             *string
	Slug              *string
	Summary           *string
	Content           *string
	RegenerateSummary bool
}

type ArticleService struct {
	repo domain.ArticleRepository
}

func NewArticleService(repo domain.ArticleRepository) *ArticleService {
	return &ArticleService{
		repo: repo,
	}
}

// CreateArticle validates the input, builds a draft article and persists it.
// The store-assigned ID is set on the returned article.
func (s *ArticleService) CreateArticle(ctx context.Context, in CreateArticleInput) (*domain.Article, error) {
	title, err := domain.NewTitle(in.Title)
	if err != nil {
		return nil, err
	}

	content := domain.NewContent(in.Content)

	var summary *domain.Summary
	if in.Summary != nil {
		sum, err := domain.NewSummary(*in.Summary)
		if err != nil {
			return nil, err
		}
		summary = &sum
	}

	var slug domain.Slug
	if in.Slug != nil {
		slug, err = domain.NewSlug(*in.Slug)
	} else {
		slug, err = domain.SlugFromTitle(title.String())
	}
	if err != nil {
		return nil, err
	}

	article, err := domain.NewArticle(title, slug, summary, content)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.Save(ctx, article)
	if err != nil {
		return nil, err
	}
	article.SetID(id)

	metrics.ArticleTransitions.WithLabelValues("create").Inc()
	log.Info().Str("slug", slug.String()).Str("id", id.String()).Msg("Article created")

	return article, nil
}

// PublishArticle loads the article by slug, publishes it and persists the result.
// A missing article is reported as a validation failure.
func (s *ArticleService) PublishArticle(ctx context.Context, slug string) (*domain.Article, error) {
	article, err := s.load(ctx, slug, func(slug domain.Slug) error {
		return apperr.Validation(fmt.Sprintf("article %q does not exist", slug))
	})
	if err != nil {
		return nil, err
	}

	if err := article.Publish(); err != nil {
		return nil, err
	}

	if _, err := s.repo.Save(ctx, article); err != nil {
		return nil, err
	}

	metrics.ArticleTransitions.WithLabelValues("publish").Inc()
	log.Info().Str("slug", article.Slug().String()).Msg("Article published")

	return article, nil
}

// UnpublishArticle moves a published article back to draft.
func (s *ArticleService) UnpublishArticle(ctx context.Context, slug string) (*domain.Article, error) {
	article, err := s.load(ctx, slug, notFound)
	if err != nil {
		return nil, err
	}

	if err := article.Unpublish(); err != nil {
		return nil, err
	}

	if _, err := s.repo.Save(ctx, article); err != nil {
		return nil, err
	}

	metrics.ArticleTransitions.WithLabelValues("unpublish").Inc()
	log.Info().Str("slug", article.Slug().String()).Msg("Article unpublished")

	return article, nil
}

// UpdateArticle applies a partial update. All input is validated before the
// article is touched, so a rejected update leaves nothing half-applied.
func (s *ArticleService) UpdateArticle(ctx context.Context, slug string, in UpdateArticleInput) (*domain.Article, error) {
	article, err := s.load(ctx, slug, notFound)
	if err != nil {
		return nil, err
	}

	var title *domain.Title
	if in.Title != nil {
		t, err := domain.NewTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		title = &t
	}

	var summary *domain.Summary
	if in.Summary != nil {
		sum, err := domain.NewSummary(*in.Summary)
		if err != nil {
			return nil, err
		}
		summary = &sum
	}

	var newSlug *domain.Slug
	if in.Slug != nil {
		sl, err := domain.NewSlug(*in.Slug)
		if err != nil {
			return nil, err
		}
		if sl != article.Slug() {
			if article.IsPublished() {
				return nil, apperr.Validation("cannot change the slug of a published article")
			}
			newSlug = &sl
		}
	}

	if in.Content != nil {
		article.UpdateContent(domain.NewContent(*in.Content))
	}
	if title != nil {
		article.UpdateTitle(*title)
	}
	if summary != nil || in.RegenerateSummary || in.Content != nil {
		article.UpdateSummary(summary)
	}
	if newSlug != nil {
		if err := article.UpdateSlug(*newSlug); err != nil {
			return nil, err
		}
	}

	if _, err := s.repo.Save(ctx, article); err != nil {
		return nil, err
	}

	metrics.ArticleTransitions.WithLabelValues("update").Inc()

	return article, nil
}

// FindArticleBySlug returns (nil, nil) when no article has the slug.
func (s *ArticleService) FindArticleBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	sl, err := domain.NewSlug(slug)
	if err != nil {
		return nil, err
	}

	return s.repo.FindBySlug(ctx, sl)
}

func (s *ArticleService) GetPublishedArticles(ctx context.Context, page pagination.PageRequest) (pagination.PageResponse[*domain.Article], error) {
	return s.repo.FindByStatus(ctx, domain.StatusPublished, page)
}

func (s *ArticleService) load(ctx context.Context, slug string, missing func(domain.Slug) error) (*domain.Article, error) {
	sl, err := domain.NewSlug(slug)
	if err != nil {
		return nil, err
	}

	article, err := s.repo.FindBySlug(ctx, sl)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, missing(sl)
	}

	return article, nil
}

func notFound(slug domain.Slug) error {
	return apperr.NotFound(fmt.Sprintf("article %q not found", slug))
}
