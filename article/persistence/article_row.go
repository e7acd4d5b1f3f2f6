package persistence

import (
	"database/sql"
	"time"

	"github.com/dfryer1193/rhyon/article/domain"
	"github.com/dfryer1193/rhyon/shared/apperr"
)

// articleRow is the stored shape of an article, shared by the SQL adapters.
type articleRow struct {
	ID          string       `db:"id"`
	Slug        string       `db:"slug"`
	Title       string       `db:"title"`
	Summary     string       `db:"summary"`
	Content     string       `db:"content"`
	Status      string       `db:"status"`
	CreatedAt   sql.NullTime `db:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
	PublishedAt sql.NullTime `db:"published_at"`
}

// toDomain rebuilds the aggregate. Stored values that no longer pass validation
// are reported as server errors rather than leaking a 400 to the caller.
func (r *articleRow) toDomain() (*domain.Article, error) {
	id, err := domain.ParseID(r.ID)
	if err != nil {
		return nil, corrupt(r, err)
	}
	slug, err := domain.NewSlug(r.Slug)
	if err != nil {
		return nil, corrupt(r, err)
	}
	title, err := domain.NewTitle(r.Title)
	if err != nil {
		return nil, corrupt(r, err)
	}
	summary, err := domain.NewSummary(r.Summary)
	if err != nil {
		return nil, corrupt(r, err)
	}
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return nil, corrupt(r, err)
	}

	var publishedAt *time.Time
	if r.PublishedAt.Valid {
		publishedAt = &r.PublishedAt.Time
	}

	return domain.Reconstitute(
		id,
		slug,
		title,
		summary,
		domain.NewContent(r.Content),
		status,
		r.CreatedAt.Time,
		r.UpdatedAt.Time,
		publishedAt,
	), nil
}

func corrupt(r *articleRow, err error) error {
	return apperr.Server("failed to map stored article "+r.ID, err)
}
