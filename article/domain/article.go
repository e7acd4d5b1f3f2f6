package domain

import (
	"context"
	"time"

	"github.com/dfryer1193/rhyon/shared/apperr"
	"github.com/dfryer1193/rhyon/shared/pagination"
)

// now is the clock used for every lifecycle timestamp.
var now = func() time.Time {
	return time.Now().UTC()
}

// Article is the aggregate root of the publishing domain.
// An article starts as a draft, can be published once it has content, and keeps
// its slug fixed while published.
type Article struct {
	id          ID
	slug        Slug
	title       Title
	summary     Summary
	content     Content
	status      Status
	createdAt   time.Time
	updatedAt   time.Time
	publishedAt *time.Time
}

// NewArticle creates a draft article. If summary is nil one is generated from content.
func NewArticle(title Title, slug Slug, summary *Summary, content Content) (*Article, error) {
	ts := now()

	s := GenerateSummary(content)
	if summary != nil {
		s = *summary
	}

	return &Article{
		slug:      slug,
		title:     title,
		summary:   s,
		content:   content,
		status:    StatusDraft,
		createdAt: ts,
		updatedAt: ts,
	}, nil
}

// Reconstitute rebuilds an article from stored state without applying lifecycle rules.
func Reconstitute(
	id ID,
	slug Slug,
	title Title,
	summary Summary,
	content Content,
	status Status,
	createdAt time.Time,
	updatedAt time.Time,
	publishedAt *time.Time,
) *Article {
	a := &Article{
		id:        id,
		slug:      slug,
		title:     title,
		summary:   summary,
		content:   content,
		status:    status,
		createdAt: createdAt.UTC(),
		updatedAt: updatedAt.UTC(),
	}
	if publishedAt != nil {
		p := publishedAt.UTC()
		a.publishedAt = &p
	}
	return a
}

// SetID assigns the store identity. It is a no-op once an ID is set.
// Only persistence code should call it.
func (a *Article) SetID(id ID) {
	if a.id.IsZero() {
		a.id = id
	}
}

// Publish moves the article to Published and stamps PublishedAt.
// Publishing an already published article stamps PublishedAt again.
func (a *Article) Publish() error {
	if a.content.IsEmpty() {
		return apperr.Validation("cannot publish an article with empty content")
	}

	ts := now()
	a.status = StatusPublished
	a.publishedAt = &ts
	a.updatedAt = ts
	return nil
}

// Unpublish moves a published article back to Draft. PublishedAt is kept.
func (a *Article) Unpublish() error {
	if a.status != StatusPublished {
		return apperr.Validation("only published articles can be unpublished")
	}

	a.status = StatusDraft
	a.touch()
	return nil
}

func (a *Article) UpdateTitle(title Title) {
	a.title = title
	a.touch()
}

func (a *Article) UpdateContent(content Content) {
	a.content = content
	a.touch()
}

// UpdateSummary replaces the summary, or regenerates it from the current content when nil.
func (a *Article) UpdateSummary(summary *Summary) {
	if summary != nil {
		a.summary = *summary
	} else {
		a.summary = GenerateSummary(a.content)
	}
	a.touch()
}

// UpdateSlug changes the natural key. Published articles keep their slug.
func (a *Article) UpdateSlug(slug Slug) error {
	if a.status == StatusPublished {
		return apperr.Validation("cannot change the slug of a published article")
	}

	a.slug = slug
	a.touch()
	return nil
}

func (a *Article) touch() {
	a.updatedAt = now()
}

// ID returns the store identity and whether it has been assigned.
func (a *Article) ID() (ID, bool) {
	return a.id, !a.id.IsZero()
}

func (a *Article) Slug() Slug           { return a.slug }
func (a *Article) Title() Title         { return a.title }
func (a *Article) Summary() Summary     { return a.summary }
func (a *Article) Content() Content     { return a.content }
func (a *Article) Status() Status       { return a.status }
func (a *Article) CreatedAt() time.Time { return a.createdAt }
func (a *Article) UpdatedAt() time.Time { return a.updatedAt }

// PublishedAt returns the last publish time, or nil if the article was never published.
func (a *Article) PublishedAt() *time.Time {
	if a.publishedAt == nil {
		return nil
	}
	p := *a.publishedAt
	return &p
}

func (a *Article) IsPublished() bool {
	return a.status == StatusPublished
}

//go:generate mockgen -source=article.go -destination=mocks/mock_article_repository.go -package=mocks

// ArticleRepository is the persistence port for articles.
type ArticleRepository interface {
	// FindBySlug returns (nil, nil) when no article has the slug.
	FindBySlug(ctx context.Context, slug Slug) (*Article, error)

	// Save inserts an article without an ID, letting the store assign one, and
	// updates an article with an ID in place. It returns the article's ID.
	Save(ctx context.Context, a *Article) (ID, error)

	// FindByStatus lists articles in the given status, newest published first.
	FindByStatus(ctx context.Context, status Status, page pagination.PageRequest) (pagination.PageResponse[*Article], error)
}
