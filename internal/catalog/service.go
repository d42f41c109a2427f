// Package catalog serves the read-only storefront queries: products,
// collections, blogs, pages, menus and order history. Results are cached
// per (operation, locale, parameters) and identical concurrent requests
// share one gateway call.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"storefront/internal/locale"
	"storefront/internal/model"
	"storefront/internal/shopify"
)

// DefaultPageSize is the page size when a caller passes First ≤ 0.
const DefaultPageSize = 10

// SearchPageSize is the number of search suggestions returned.
const SearchPageSize = 5

// MinSearchLength is the shortest query that reaches the platform.
const MinSearchLength = 2

// tagsPageSize bounds the articles scanned for tags.
const tagsPageSize = 250

// Config configures a Service.
type Config struct {
	TTL        time.Duration // 0 = DefaultTTL
	SearchTTL  time.Duration // 0 = SearchTTL
	MaxEntries int           // 0 = MaxCacheEntries
	Logger     *slog.Logger
	Now        func() time.Time
}

// Service runs catalog queries through a shared cache.
type Service struct {
	sf        *shopify.Storefront
	cache     *Cache
	group     singleflight.Group
	ttl       time.Duration
	searchTTL time.Duration
	logger    *slog.Logger
}

// NewService creates a catalog service.
func NewService(sf *shopify.Storefront, cfg Config) *Service {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SearchTTL == 0 {
		cfg.SearchTTL = SearchTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		sf:        sf,
		cache:     NewCache(cfg.MaxEntries, cfg.Now),
		ttl:       cfg.TTL,
		searchTTL: cfg.SearchTTL,
		logger:    cfg.Logger,
	}
}

// Cache exposes the underlying cache, mainly for tests and the CLI.
func (s *Service) Cache() *Cache {
	return s.cache
}

// cacheKey quotes every part so that no two parameter tuples share a key.
func cacheKey(op string, lang locale.Language, parts ...any) string {
	var b strings.Builder
	b.WriteString(op)
	b.WriteByte('|')
	b.WriteString(string(lang))
	for _, p := range parts {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(fmt.Sprint(p)))
	}
	return b.String()
}

// cached serves key from the cache or runs fetch once for all concurrent
// callers. Errors are not cached.
func cached[T any](ctx context.Context, s *Service, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if v, remaining, ok := s.cache.Get(key); ok {
		record(ctx, LookupEntry{Key: key, Hit: true, TTL: remaining})
		return v.(T), nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		start := time.Now()
		res, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, res, ttl)
		s.logger.Debug("catalog cache fill", "key", key, "duration_ms", time.Since(start).Milliseconds())
		return res, nil
	})
	record(ctx, LookupEntry{Key: key, Hit: false, TTL: ttl})
	if err != nil {
		var zero T
		return zero, err
	}
	if shared {
		s.logger.Debug("catalog request collapsed", "key", key)
	}
	return v.(T), nil
}

func pageSize(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func requireArg(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return model.NewValidationError(field, "required")
	}
	return nil
}

// === Products ===

// Products lists products. First defaults to 10.
func (s *Service) Products(ctx context.Context, lang locale.Language, p shopify.ProductsParams) (*shopify.Connection[shopify.Product], error) {
	p.First = pageSize(p.First, DefaultPageSize)
	key := cacheKey("products", lang, p.First, p.After, p.Query)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*shopify.Connection[shopify.Product], error) {
		conn, err := s.sf.Products(ctx, string(lang), p)
		if err != nil {
			return nil, err
		}
		if conn == nil {
			return nil, model.NewInvalidResponseError("products")
		}
		return conn, nil
	})
}

// SearchProducts returns up to first suggestions whose title or
// description contains query. Queries shorter than two characters return an
// empty result without calling the platform.
func (s *Service) SearchProducts(ctx context.Context, lang locale.Language, query string, first int) (*shopify.Connection[shopify.Product], error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength {
		return &shopify.Connection[shopify.Product]{Edges: []shopify.Edge[shopify.Product]{}}, nil
	}

	p := shopify.ProductsParams{
		First: pageSize(first, SearchPageSize),
		Query: fmt.Sprintf("title:*%s* OR description:*%s*", query, query),
	}
	key := cacheKey("search", lang, p.First, query)
	return cached(ctx, s, key, s.searchTTL, func(ctx context.Context) (*shopify.Connection[shopify.Product], error) {
		conn, err := s.sf.Products(ctx, string(lang), p)
		if err != nil {
			return nil, err
		}
		if conn == nil {
			return nil, model.NewInvalidResponseError("products")
		}
		return conn, nil
	})
}

// ProductByHandle fetches one product.
func (s *Service) ProductByHandle(ctx context.Context, lang locale.Language, handle string) (*shopify.Product, error) {
	if err := requireArg("handle", handle); err != nil {
		return nil, err
	}
	return cached(ctx, s, cacheKey("product", lang, handle), s.ttl, func(ctx context.Context) (*shopify.Product, error) {
		prod, err := s.sf.ProductByHandle(ctx, string(lang), handle)
		if err != nil {
			return nil, err
		}
		if prod == nil {
			return nil, model.NewNotFoundError("product")
		}
		return prod, nil
	})
}

// ProductByID fetches one product by global id.
func (s *Service) ProductByID(ctx context.Context, lang locale.Language, id string) (*shopify.Product, error) {
	if err := requireArg("id", id); err != nil {
		return nil, err
	}
	return cached(ctx, s, cacheKey("productById", lang, id), s.ttl, func(ctx context.Context) (*shopify.Product, error) {
		prod, err := s.sf.ProductByID(ctx, string(lang), id)
		if err != nil {
			return nil, err
		}
		if prod == nil {
			return nil, model.NewNotFoundError("product")
		}
		return prod, nil
	})
}

// === Collections ===

// CollectionSummary is the reduced collection shape used by listings.
type CollectionSummary struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Handle      string         `json:"handle"`
	Image       *shopify.Image `json:"image"`
	HasProducts bool           `json:"hasProducts"`
}

// CollectionList is a page of collection summaries.
type CollectionList struct {
	Collections []CollectionSummary `json:"collections"`
	PageInfo    shopify.PageInfo    `json:"pageInfo"`
}

func summarize(c shopify.Collection) CollectionSummary {
	return CollectionSummary{
		ID:          c.ID,
		Title:       c.Title,
		Handle:      c.Handle,
		Image:       c.Image,
		HasProducts: c.Products != nil && len(c.Products.Edges) > 0,
	}
}

// Collections lists collection summaries.
func (s *Service) Collections(ctx context.Context, lang locale.Language, p shopify.PageParams) (*CollectionList, error) {
	p.First = pageSize(p.First, DefaultPageSize)
	key := cacheKey("collections", lang, p.First, p.After)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*CollectionList, error) {
		conn, err := s.sf.Collections(ctx, string(lang), p)
		if err != nil {
			return nil, err
		}
		if conn == nil {
			return nil, model.NewInvalidResponseError("collections")
		}
		list := &CollectionList{Collections: make([]CollectionSummary, 0, len(conn.Edges)), PageInfo: conn.PageInfo}
		for _, c := range conn.Nodes() {
			list.Collections = append(list.Collections, summarize(c))
		}
		return list, nil
	})
}

// CollectionByHandle fetches a collection with a page of its products.
func (s *Service) CollectionByHandle(ctx context.Context, lang locale.Language, handle string, p shopify.PageParams) (*shopify.Collection, error) {
	if err := requireArg("handle", handle); err != nil {
		return nil, err
	}
	p.First = pageSize(p.First, DefaultPageSize)
	key := cacheKey("collection", lang, handle, p.First, p.After)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*shopify.Collection, error) {
		c, err := s.sf.CollectionByHandle(ctx, string(lang), handle, p)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, model.NewNotFoundError("collection")
		}
		return c, nil
	})
}

// CollectionByID fetches a collection by global id.
func (s *Service) CollectionByID(ctx context.Context, lang locale.Language, id string, p shopify.PageParams) (*shopify.Collection, error) {
	if err := requireArg("id", id); err != nil {
		return nil, err
	}
	p.First = pageSize(p.First, DefaultPageSize)
	key := cacheKey("collectionById", lang, id, p.First, p.After)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*shopify.Collection, error) {
		c, err := s.sf.CollectionByID(ctx, string(lang), id, p)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, model.NewNotFoundError("collection")
		}
		return c, nil
	})
}

// === Blogs ===

func (s *Service) Blogs(ctx context.Context, lang locale.Language, p shopify.PageParams) (*shopify.Connection[shopify.Blog], error) {
	p.First = pageSize(p.First, DefaultPageSize)
	key := cacheKey("blogs", lang, p.First, p.After)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*shopify.Connection[shopify.Blog], error) {
		conn, err := s.sf.Blogs(ctx, string(lang), p)
		if err != nil {
			return nil, err
		}
		if conn == nil {
			return nil, model.NewInvalidResponseError("blogs")
		}
		return conn, nil
	})
}

func (s *Service) BlogByHandle(ctx context.Context, lang locale.Language, handle string, p shopify.PageParams) (*shopify.Blog, error) {
	if err := requireArg("handle", handle); err != nil {
		return nil, err
	}
	p.First = pageSize(p.First, DefaultPageSize)
	key := cacheKey("blog", lang, handle, p.First, p.After)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*shopify.Blog, error) {
		b, err := s.sf.BlogByHandle(ctx, string(lang), handle, p)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, model.NewNotFoundError("blog")
		}
		return b, nil
	})
}

// Articles lists articles across blogs, optionally filtered by a search
// query (e.g. "tag:news").
func (s *Service) Articles(ctx context.Context, lang locale.Language, p shopify.ProductsParams) (*shopify.Connection[shopify.Article], error) {
	p.First = pageSize(p.First, DefaultPageSize)
	key := cacheKey("articles", lang, p.First, p.After, p.Query)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*shopify.Connection[shopify.Article], error) {
		conn, err := s.sf.Articles(ctx, string(lang), p)
		if err != nil {
			return nil, err
		}
		if conn == nil {
			return nil, model.NewInvalidResponseError("articles")
		}
		return conn, nil
	})
}

func (s *Service) ArticleByHandle(ctx context.Context, lang locale.Language, blogHandle, articleHandle string) (*shopify.Article, error) {
	if err := requireArg("blogHandle", blogHandle); err != nil {
		return nil, err
	}
	if err := requireArg("articleHandle", articleHandle); err != nil {
		return nil, err
	}
	key := cacheKey("article", lang, blogHandle, articleHandle)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*shopify.Article, error) {
		a, err := s.sf.ArticleByHandle(ctx, string(lang), blogHandle, articleHandle)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, model.NewNotFoundError("article")
		}
		return a, nil
	})
}

// ArticleGID converts a numeric article id to its global id form. Global
// ids pass through.
func ArticleGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/Article/" + id
}

// ArticleByID accepts a numeric id or a global id.
func (s *Service) ArticleByID(ctx context.Context, lang locale.Language, id string) (*shopify.Article, error) {
	if err := requireArg("id", id); err != nil {
		return nil, err
	}
	gid := ArticleGID(strings.TrimSpace(id))
	return cached(ctx, s, cacheKey("articleById", lang, gid), s.ttl, func(ctx context.Context) (*shopify.Article, error) {
		a, err := s.sf.ArticleByID(ctx, string(lang), gid)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, model.NewNotFoundError("article")
		}
		return a, nil
	})
}

// ArticleTags returns the distinct tags of the latest articles, sorted.
func (s *Service) ArticleTags(ctx context.Context, lang locale.Language) ([]string, error) {
	return cached(ctx, s, cacheKey("articleTags", lang), s.ttl, func(ctx context.Context) ([]string, error) {
		conn, err := s.sf.ArticleTags(ctx, string(lang), shopify.PageParams{First: tagsPageSize})
		if err != nil {
			return nil, err
		}
		if conn == nil {
			return nil, model.NewInvalidResponseError("articles")
		}
		seen := make(map[string]bool)
		tags := []string{}
		for _, a := range conn.Nodes() {
			for _, t := range a.Tags {
				if t != "" && !seen[t] {
					seen[t] = true
					tags = append(tags, t)
				}
			}
		}
		sort.Strings(tags)
		return tags, nil
	})
}

// === Online store ===

func (s *Service) Page(ctx context.Context, lang locale.Language, handle string) (*shopify.Page, error) {
	if err := requireArg("handle", handle); err != nil {
		return nil, err
	}
	return cached(ctx, s, cacheKey("page", lang, handle), s.ttl, func(ctx context.Context) (*shopify.Page, error) {
		pg, err := s.sf.Page(ctx, string(lang), handle)
		if err != nil {
			return nil, err
		}
		if pg == nil {
			return nil, model.NewNotFoundError("page")
		}
		return pg, nil
	})
}

// Menu fetches a navigation menu with links resolved by FormatMenuURL.
func (s *Service) Menu(ctx context.Context, lang locale.Language, handle string) (*Navigation, error) {
	if err := requireArg("handle", handle); err != nil {
		return nil, err
	}
	return cached(ctx, s, cacheKey("menu", lang, handle), s.ttl, func(ctx context.Context) (*Navigation, error) {
		m, err := s.sf.Menu(ctx, string(lang), handle)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, model.NewNotFoundError("menu")
		}
		return newNavigation(m), nil
	})
}

// === Orders ===

// Orders lists the signed-in customer's orders. Results are per customer
// and never cached.
func (s *Service) Orders(ctx context.Context, lang locale.Language, token string, p shopify.PageParams) (*shopify.Connection[shopify.Order], error) {
	if token == "" {
		return nil, model.NewNotAuthenticatedError()
	}
	p.First = pageSize(p.First, DefaultPageSize)
	conn, err := s.sf.CustomerOrders(ctx, string(lang), token, p)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, model.NewNotAuthenticatedError()
	}
	return conn, nil
}

// Order fetches one order of the signed-in customer.
func (s *Service) Order(ctx context.Context, lang locale.Language, token, id string) (*shopify.Order, error) {
	if token == "" {
		return nil, model.NewNotAuthenticatedError()
	}
	if err := requireArg("id", id); err != nil {
		return nil, err
	}
	o, err := s.sf.CustomerOrder(ctx, string(lang), token, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, model.NewNotFoundError("order")
	}
	return o, nil
}
