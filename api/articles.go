package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Response is the success envelope every JSON endpoint answers with.
type Response[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CreateArticleRequest omits slug and summary to have them derived.
type CreateArticleRequest struct {
	Title   string  `json:"title"`
	Slug    *string `json:"slug,omitempty"`
	Summary *string `json:"summary,omitempty"`
	Content string  `json:"content"`
}

func (r CreateArticleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Slug, validation.NilOrNotEmpty),
	)
}

type UpdateArticleRequest struct {
	Title             *string `json:"title,omitempty"`
	Slug              *string `json:"slug,omitempty"`
	Summary           *string `json:"summary,omitempty"`
	Content           *string `json:"content,omitempty"`
	RegenerateSummary bool    `json:"regenerate_summary,omitempty"`
}

func (r UpdateArticleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty),
		validation.Field(&r.Slug, validation.NilOrNotEmpty),
		validation.Field(&r.RegenerateSummary, validation.When(r.Summary != nil, validation.Empty.Error("cannot be combined with summary"))),
	)
}

type ArticleResponse struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Content     string     `json:"content"`
	ContentHTML string     `json:"content_html,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// ArticleSummaryResponse is the listing projection; it never carries content.
type ArticleSummaryResponse struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
