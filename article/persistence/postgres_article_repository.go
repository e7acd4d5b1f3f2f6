package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/dfryer1193/rhyon/article/domain"
	"github.com/dfryer1193/rhyon/shared/apperr"
	"github.com/dfryer1193/rhyon/shared/db/postgres"
	"github.com/dfryer1193/rhyon/shared/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ domain.ArticleRepository = (*PostgresArticleRepository)(nil)

// PostgresArticleRepository implements domain.ArticleRepository on a pgx pool.
// The database assigns article IDs.
type PostgresArticleRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresArticleRepository(pool *pgxpool.Pool) *PostgresArticleRepository {
	return &PostgresArticleRepository{
		pool: pool,
	}
}

const pgArticleColumns = `id::text, slug, title, summary, content, status, created_at, updated_at, published_at`

const pgGetArticleBySlugQuery = `
	SELECT ` + pgArticleColumns + `
	FROM articles
	WHERE slug = $1
`

func (r *PostgresArticleRepository) FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Article, error) {
	row, err := scanArticleRow(r.pool.QueryRow(ctx, pgGetArticleBySlugQuery, slug.String()))
	if postgres.IsPgNoRowsError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Database(fmt.Errorf("failed to get article %q: %w", slug, err))
	}

	return row.toDomain()
}

const pgInsertArticleQuery = `
	INSERT INTO articles (slug, title, summary, content, status, created_at, updated_at, published_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id::text
`

const pgUpdateArticleQuery = `
	UPDATE articles
	SET slug = $1, title = $2, summary = $3, content = $4, status = $5, updated_at = $6, published_at = $7
	WHERE id = $8
`

func (r *PostgresArticleRepository) Save(ctx context.Context, a *domain.Article) (domain.ID, error) {
	if a == nil {
		return domain.ID{}, fmt.Errorf("article cannot be nil")
	}

	id, exists := a.ID()
	if !exists {
		var rawID string
		err := r.pool.QueryRow(ctx, pgInsertArticleQuery,
			a.Slug().String(),
			a.Title().String(),
			a.Summary().String(),
			a.Content().String(),
			a.Status().String(),
			a.CreatedAt().UTC(),
			a.UpdatedAt().UTC(),
			a.PublishedAt(),
		).Scan(&rawID)
		if err != nil {
			return domain.ID{}, pgSaveError(a, err)
		}

		return domain.ParseID(rawID)
	}

	tag, err := r.pool.Exec(ctx, pgUpdateArticleQuery,
		a.Slug().String(),
		a.Title().String(),
		a.Summary().String(),
		a.Content().String(),
		a.Status().String(),
		a.UpdatedAt().UTC(),
		a.PublishedAt(),
		id.UUID(),
	)
	if err != nil {
		return domain.ID{}, pgSaveError(a, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ID{}, apperr.NotFound(fmt.Sprintf("article %s not found", id))
	}

	return id, nil
}

func pgSaveError(a *domain.Article, err error) error {
	if postgres.IsPgDuplicateError(err) {
		return apperr.Validation(fmt.Sprintf("slug %q is already taken", a.Slug()))
	}
	return apperr.Database(fmt.Errorf("failed to save article %q: %w", a.Slug(), err))
}

const pgCountArticlesByStatusQuery = `
	SELECT COUNT(*) FROM articles WHERE status = $1
`

const pgListArticlesByStatusQuery = `
	SELECT ` + pgArticleColumns + `
	FROM articles
	WHERE status = $1
	ORDER BY published_at DESC NULLS LAST, created_at DESC
	LIMIT $2 OFFSET $3
`

// FindByStatus reads the count and the page from one repeatable-read snapshot.
func (r *PostgresArticleRepository) FindByStatus(ctx context.Context, status domain.Status, page pagination.PageRequest) (pagination.PageResponse[*domain.Article], error) {
	var result pagination.PageResponse[*domain.Article]

	txOpts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := pgx.BeginTxFunc(ctx, r.pool, txOpts, func(tx pgx.Tx) error {
		var total int
		if err := tx.QueryRow(ctx, pgCountArticlesByStatusQuery, status.String()).Scan(&total); err != nil {
			return apperr.Database(fmt.Errorf("failed to count articles: %w", err))
		}

		if total == 0 {
			result = pagination.EmptyPage[*domain.Article](page.Page(), page.Size())
			return nil
		}

		rows, err := tx.Query(ctx, pgListArticlesByStatusQuery, status.String(), page.Size(), page.Offset())
		if err != nil {
			return apperr.Database(fmt.Errorf("failed to list articles: %w", err))
		}
		defer rows.Close()

		articles := make([]*domain.Article, 0, page.Size())
		for rows.Next() {
			row, err := scanArticleRow(rows)
			if err != nil {
				return apperr.Database(fmt.Errorf("failed to scan article row: %w", err))
			}
			article, err := row.toDomain()
			if err != nil {
				return err
			}
			articles = append(articles, article)
		}

		if err := rows.Err(); err != nil {
			return apperr.Database(fmt.Errorf("error iterating article rows: %w", err))
		}

		result = pagination.NewPageResponse(articles, page.Page(), page.Size(), total)
		return nil
	})
	if err != nil {
		var httpErr apperr.HTTPError
		if !errors.As(err, &httpErr) {
			err = apperr.Database(fmt.Errorf("failed to read articles: %w", err))
		}
		return pagination.PageResponse[*domain.Article]{}, err
	}

	return result, nil
}
