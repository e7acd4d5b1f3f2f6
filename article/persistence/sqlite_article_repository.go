package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/rhyon/article/domain"
	"github.com/dfryer1193/rhyon/shared/apperr"
	"github.com/dfryer1193/rhyon/shared/db"
	"github.com/dfryer1193/rhyon/shared/db/sqlite"
	"github.com/dfryer1193/rhyon/shared/pagination"
	"github.com/google/uuid"
)

var _ domain.ArticleRepository = (*SQLiteArticleRepository)(nil)

// SQLiteArticleRepository implements domain.ArticleRepository on SQLite
type SQLiteArticleRepository struct {
	db *sql.DB
}

func NewSQLiteArticleRepository(db *sql.DB) *SQLiteArticleRepository {
	return &SQLiteArticleRepository{
		db: db,
	}
}

const articleColumns = `id, slug, title, summary, content, status, created_at, updated_at, published_at`

const getArticleBySlugQuery = `
	SELECT ` + articleColumns + `
	FROM articles
	WHERE slug = ?
`

func (r *SQLiteArticleRepository) FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Article, error) {
	executor := db.GetExecutor(ctx, r.db)

	row, err := scanArticleRow(executor.QueryRowContext(ctx, getArticleBySlugQuery, slug.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Database(fmt.Errorf("failed to get article %q: %w", slug, err))
	}

	return row.toDomain()
}

const insertArticleQuery = `
	INSERT INTO articles (` + articleColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateArticleQuery = `
	UPDATE articles
	SET slug = ?, title = ?, summary = ?, content = ?, status = ?, updated_at = ?, published_at = ?
	WHERE id = ?
`

// Save inserts articles without an ID under a fresh UUID and updates the rest in place.
func (r *SQLiteArticleRepository) Save(ctx context.Context, a *domain.Article) (domain.ID, error) {
	if a == nil {
		return domain.ID{}, fmt.Errorf("article cannot be nil")
	}

	executor := db.GetExecutor(ctx, r.db)

	id, exists := a.ID()
	if !exists {
		id = domain.ID(uuid.New())
		_, err := executor.ExecContext(ctx, insertArticleQuery,
			id.String(),
			a.Slug().String(),
			a.Title().String(),
			a.Summary().String(),
			a.Content().String(),
			a.Status().String(),
			a.CreatedAt().UTC(),
			a.UpdatedAt().UTC(),
			nullableTime(a.PublishedAt()),
		)
		if err != nil {
			return domain.ID{}, saveError(a, err)
		}
		return id, nil
	}

	result, err := executor.ExecContext(ctx, updateArticleQuery,
		a.Slug().String(),
		a.Title().String(),
		a.Summary().String(),
		a.Content().String(),
		a.Status().String(),
		a.UpdatedAt().UTC(),
		nullableTime(a.PublishedAt()),
		id.String(),
	)
	if err != nil {
		return domain.ID{}, saveError(a, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return domain.ID{}, apperr.Database(fmt.Errorf("failed to read affected rows: %w", err))
	}
	if affected == 0 {
		return domain.ID{}, apperr.NotFound(fmt.Sprintf("article %s not found", id))
	}

	return id, nil
}

func saveError(a *domain.Article, err error) error {
	if sqlite.IsUniqueViolation(err) {
		return apperr.Validation(fmt.Sprintf("slug %q is already taken", a.Slug()))
	}
	return apperr.Database(fmt.Errorf("failed to save article %q: %w", a.Slug(), err))
}

const countArticlesByStatusQuery = `
	SELECT COUNT(*) FROM articles WHERE status = ?
`

const listArticlesByStatusQuery = `
	SELECT ` + articleColumns + `
	FROM articles
	WHERE status = ?
	ORDER BY published_at DESC, created_at DESC
	LIMIT ? OFFSET ?
`

// FindByStatus reads the count and the page in one transaction so they agree.
func (r *SQLiteArticleRepository) FindByStatus(ctx context.Context, status domain.Status, page pagination.PageRequest) (pagination.PageResponse[*domain.Article], error) {
	var result pagination.PageResponse[*domain.Article]

	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)

		var total int
		if err := executor.QueryRowContext(txCtx, countArticlesByStatusQuery, status.String()).Scan(&total); err != nil {
			return apperr.Database(fmt.Errorf("failed to count articles: %w", err))
		}

		if total == 0 {
			result = pagination.EmptyPage[*domain.Article](page.Page(), page.Size())
			return nil
		}

		rows, err := executor.QueryContext(txCtx, listArticlesByStatusQuery, status.String(), page.Size(), page.Offset())
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
		return pagination.PageResponse[*domain.Article]{}, err
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticleRow(s rowScanner) (*articleRow, error) {
	var row articleRow
	err := s.Scan(
		&row.ID,
		&row.Slug,
		&row.Title,
		&row.Summary,
		&row.Content,
		&row.Status,
		&row.CreatedAt,
		&row.UpdatedAt,
		&row.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
