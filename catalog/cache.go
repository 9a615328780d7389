package catalog

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-bookstore-api/internal/errors"
	"github.com/jrsteele09/go-bookstore-api/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSlidingExpiration  = 20 * time.Minute
	DefaultAbsoluteExpiration = 40 * time.Minute

	allTerm = "all"
)

// Cache is a read-through cache over paginated catalog queries. It remembers every key it has stored so
// the whole catalog can be invalidated at once.
type Cache struct {
	store      PageStore
	repo       Repo
	expiration Expiration

	mu   sync.Mutex // guards keys only
	keys map[string]struct{}

	group singleflight.Group
}

type CacheOption func(*Cache)

func WithExpiration(exp Expiration) CacheOption {
	return func(c *Cache) {
		c.expiration = exp
	}
}

func NewCache(store PageStore, repo Repo, options ...CacheOption) *Cache {
	c := &Cache{
		store: store,
		repo:  repo,
		keys:  make(map[string]struct{}),
		expiration: Expiration{
			Sliding:  DefaultSlidingExpiration,
			Absolute: DefaultAbsoluteExpiration,
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Key names the cache entry for a listing. The term is used verbatim, so "Go" and "go" are separate
// entries even though they query the same rows.
func Key(page, pageSize int, term string) string {
	if strings.TrimSpace(term) == "" {
		term = allTerm
	}
	return fmt.Sprintf("books_p%d_s%d_%s", page, pageSize, term)
}

// Get returns the requested page from the cache, loading and storing it on a miss. Concurrent misses
// for one key share a single load.
func (c *Cache) Get(ctx context.Context, page, pageSize int, term string) (*Page, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page and pageSize must be positive", apperrors.ErrInvalidRequest)
	}
	// the row offset (page-1)*pageSize has to fit in an int
	if page > math.MaxInt/pageSize {
		return nil, fmt.Errorf("%w: page %d is out of range", apperrors.ErrInvalidRequest, page)
	}
	key := Key(page, pageSize, term)

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}
	if ok {
		metrics.CatalogCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.CatalogCacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, key, page, pageSize, term)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}

func (c *Cache) load(ctx context.Context, key string, page, pageSize int, term string) (*Page, error) {
	term = strings.TrimSpace(term)

	total, err := c.repo.Count(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("[Cache.load] Count: %w", err)
	}
	items, err := c.repo.List(ctx, term, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("[Cache.load] List: %w", err)
	}
	if items == nil {
		items = []Book{}
	}

	result := &Page{
		Items:      items,
		PageNumber: page,
		TotalPages: totalPages(total, pageSize),
		TotalCount: total,
	}

	if err := c.store.Set(ctx, key, result, c.expiration); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
		return result, nil
	}
	c.register(key)
	return result, nil
}

// InvalidateAll evicts every page this cache has stored.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	keys := c.drain()
	metrics.CatalogCacheInvalidations.Inc()
	if len(keys) == 0 {
		return nil
	}

	if err := c.store.Delete(ctx, keys...); err != nil {
		// put the keys back so a later pass retries them
		for _, k := range keys {
			c.register(k)
		}
		return fmt.Errorf("[Cache.InvalidateAll] %w", err)
	}
	metrics.CatalogCacheEvictedKeys.Add(float64(len(keys)))
	log.Ctx(ctx).Debug().Int("keys", len(keys)).Msg("catalog cache invalidated")
	return nil
}

// RegisteredKeys returns the keys currently tracked, sorted.
func (c *Cache) RegisteredKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.keys))
	for k := range c.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Cache) register(key string) {
	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()
}

func (c *Cache) drain() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.keys))
	for k := range c.keys {
		keys = append(keys, k)
	}
	c.keys = make(map[string]struct{})
	return keys
}
