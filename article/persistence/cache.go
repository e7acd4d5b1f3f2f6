package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/rhyon/article/domain"
	"github.com/dfryer1193/rhyon/shared/pagination"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	slugKeyPrefix = "rhyon:article:slug:"
	idKeyPrefix   = "rhyon:article:id:"
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type RedisCache struct {
	rdb *goredis.Client
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache connects to addr and pings it before returning.
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{rdb: rdb}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// CachedArticleRepository is a read-through cache for slug lookups in front of
// another ArticleRepository. Listings always go to the underlying store.
// Cache failures are logged and never fail the call.
type CachedArticleRepository struct {
	next  domain.ArticleRepository
	cache Cache
	ttl   time.Duration
}

var _ domain.ArticleRepository = (*CachedArticleRepository)(nil)

func NewCachedArticleRepository(next domain.ArticleRepository, cache Cache, ttl time.Duration) *CachedArticleRepository {
	return &CachedArticleRepository{
		next:  next,
		cache: cache,
		ttl:   ttl,
	}
}

func (r *CachedArticleRepository) FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Article, error) {
	key := slugKeyPrefix + slug.String()

	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Article cache read failed")
	}
	if ok {
		article, err := decodeCachedArticle(raw)
		if err == nil {
			return article, nil
		}
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cached article")
	}

	article, err := r.next.FindBySlug(ctx, slug)
	if err != nil || article == nil {
		return article, err
	}

	r.store(ctx, article)
	return article, nil
}

// Save writes through and evicts every key that could still describe the article,
// including the slug it had before a rename.
func (r *CachedArticleRepository) Save(ctx context.Context, a *domain.Article) (domain.ID, error) {
	if a == nil {
		return r.next.Save(ctx, a)
	}

	keys := []string{slugKeyPrefix + a.Slug().String()}
	if id, ok := a.ID(); ok {
		idKey := idKeyPrefix + id.String()
		keys = append(keys, idKey)

		previous, found, err := r.cache.Get(ctx, idKey)
		if err != nil {
			log.Warn().Err(err).Str("key", idKey).Msg("Article cache read failed")
		}
		if found {
			keys = append(keys, slugKeyPrefix+string(previous))
		}
	}

	id, err := r.next.Save(ctx, a)
	if err != nil {
		return id, err
	}

	if err := r.cache.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("Article cache eviction failed")
	}

	return id, nil
}

func (r *CachedArticleRepository) FindByStatus(ctx context.Context, status domain.Status, page pagination.PageRequest) (pagination.PageResponse[*domain.Article], error) {
	return r.next.FindByStatus(ctx, status, page)
}

func (r *CachedArticleRepository) store(ctx context.Context, a *domain.Article) {
	id, _ := a.ID()
	raw, err := json.Marshal(rowFromDomain(a))
	if err != nil {
		log.Warn().Err(err).Str("slug", a.Slug().String()).Msg("Failed to encode article for cache")
		return
	}

	if err := r.cache.Set(ctx, slugKeyPrefix+a.Slug().String(), raw, r.ttl); err != nil {
		log.Warn().Err(err).Str("slug", a.Slug().String()).Msg("Article cache write failed")
		return
	}
	if err := r.cache.Set(ctx, idKeyPrefix+id.String(), []byte(a.Slug().String()), r.ttl); err != nil {
		log.Warn().Err(err).Str("id", id.String()).Msg("Article cache write failed")
	}
}

func decodeCachedArticle(raw []byte) (*domain.Article, error) {
	var row articleRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return row.toDomain()
}

func rowFromDomain(a *domain.Article) articleRow {
	id, _ := a.ID()
	row := articleRow{
		ID:        id.String(),
		Slug:      a.Slug().String(),
		Title:     a.Title().String(),
		Summary:   a.Summary().String(),
		Content:   a.Content().String(),
		Status:    a.Status().String(),
		CreatedAt: sql.NullTime{Time: a.CreatedAt(), Valid: true},
		UpdatedAt: sql.NullTime{Time: a.UpdatedAt(), Valid: true},
	}
	if p := a.PublishedAt(); p != nil {
		row.PublishedAt = sql.NullTime{Time: *p, Valid: true}
	}
	return row
}
