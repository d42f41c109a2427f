package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"storefront/internal/catalog"
	"storefront/internal/locale"
	"storefront/internal/model"
	"storefront/internal/shopify"
	"storefront/internal/storefront"
)

// maxPageSize is the largest page a client may request.
const maxPageSize = 250

// Home page section sizes.
const (
	homeCollections = 6
	homeProducts    = 8
	homeBlogs       = 3
)

// view returns the session's catalog view, honoring a ?locale= override.
func view(r *http.Request, s *storefront.Session) (*storefront.View, error) {
	v := s.Catalog()
	if raw := r.URL.Query().Get("locale"); raw != "" {
		l, err := locale.Parse(raw)
		if err != nil {
			return nil, model.NewValidationError("locale", err.Error())
		}
		v = v.In(l)
	}
	return v, nil
}

// pageQuery reads ?first= and ?after=. Missing first means the default size.
func pageQuery(r *http.Request) (shopify.PageParams, error) {
	q := r.URL.Query()
	p := shopify.PageParams{After: q.Get("after")}
	if raw := q.Get("first"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			return p, model.NewValidationError("first", "must be between 1 and 250")
		}
		p.First = n
	}
	return p, nil
}

// catalogRequest resolves everything a catalog handler needs.
func (h *Handler) catalogRequest(w http.ResponseWriter, r *http.Request) (context.Context, *storefront.View, *catalog.Lookup, bool) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return nil, nil, nil, false
	}
	v, err := view(r, s)
	if err != nil {
		h.writeError(w, err)
		return nil, nil, nil, false
	}
	ctx, lookup := catalog.WithLookup(r.Context())
	return ctx, v, lookup, true
}

// writeCatalog sends a catalog result with its Cache-Status.
func (h *Handler) writeCatalog(w http.ResponseWriter, lookup *catalog.Lookup, data any, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.setCacheStatus(w, lookup)
	h.writeJSON(w, http.StatusOK, data)
}

// HomeResponse is the landing page payload.
type HomeResponse struct {
	Collections *catalog.CollectionList              `json:"collections"`
	Products    *shopify.Connection[shopify.Product] `json:"products"`
	Blogs       *shopify.Connection[shopify.Blog]    `json:"blogs"`
}

// handleHome loads the landing page sections concurrently.
// GET /api/home
func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}

	var resp HomeResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resp.Collections, err = v.Collections(gctx, shopify.PageParams{First: homeCollections})
		return err
	})
	g.Go(func() error {
		var err error
		resp.Products, err = v.Products(gctx, shopify.ProductsParams{First: homeProducts})
		return err
	})
	g.Go(func() error {
		var err error
		resp.Blogs, err = v.Blogs(gctx, shopify.PageParams{First: homeBlogs})
		return err
	})

	h.writeCatalog(w, lookup, resp, g.Wait())
}

// handleProducts lists products.
// GET /api/products?first=&after=&query=
func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	p, err := pageQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := v.Products(ctx, shopify.ProductsParams{First: p.First, After: p.After, Query: r.URL.Query().Get("query")})
	h.writeCatalog(w, lookup, res, err)
}

// handleProduct fetches a product by handle; ?id= looks it up by global id
// instead.
// GET /api/products/{handle}
func (h *Handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	if id := r.URL.Query().Get("id"); id != "" {
		res, err := v.ProductByID(ctx, id)
		h.writeCatalog(w, lookup, res, err)
		return
	}
	res, err := v.ProductByHandle(ctx, r.PathValue("handle"))
	h.writeCatalog(w, lookup, res, err)
}

// handleSearch returns product suggestions.
// GET /api/search?q=&first=
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	p, err := pageQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := v.SearchProducts(ctx, r.URL.Query().Get("q"), p.First)
	h.writeCatalog(w, lookup, res, err)
}

// GET /api/collections
func (h *Handler) handleCollections(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	p, err := pageQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := v.Collections(ctx, p)
	h.writeCatalog(w, lookup, res, err)
}

// GET /api/collections/{handle}
func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	p, err := pageQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if id := r.URL.Query().Get("id"); id != "" {
		res, err := v.CollectionByID(ctx, id, p)
		h.writeCatalog(w, lookup, res, err)
		return
	}
	res, err := v.CollectionByHandle(ctx, r.PathValue("handle"), p)
	h.writeCatalog(w, lookup, res, err)
}

// GET /api/blogs
func (h *Handler) handleBlogs(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	p, err := pageQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := v.Blogs(ctx, p)
	h.writeCatalog(w, lookup, res, err)
}

// GET /api/blogs/{handle}
func (h *Handler) handleBlog(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	p, err := pageQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := v.BlogByHandle(ctx, r.PathValue("handle"), p)
	h.writeCatalog(w, lookup, res, err)
}

// GET /api/blogs/{blog}/articles/{handle}
func (h *Handler) handleBlogArticle(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	res, err := v.ArticleByHandle(ctx, r.PathValue("blog"), r.PathValue("handle"))
	h.writeCatalog(w, lookup, res, err)
}

// handleArticles lists articles; ?tag= filters by tag.
// GET /api/articles?first=&after=&query=&tag=
func (h *Handler) handleArticles(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	p, err := pageQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	query := r.URL.Query().Get("query")
	if tag := r.URL.Query().Get("tag"); tag != "" && query == "" {
		query = "tag:" + strconv.Quote(tag)
	}
	res, err := v.Articles(ctx, shopify.ProductsParams{First: p.First, After: p.After, Query: query})
	h.writeCatalog(w, lookup, res, err)
}

// GET /api/articles/{id}
func (h *Handler) handleArticle(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	res, err := v.ArticleByID(ctx, r.PathValue("id"))
	h.writeCatalog(w, lookup, res, err)
}

// GET /api/articles/tags
func (h *Handler) handleArticleTags(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	tags, err := v.ArticleTags(ctx)
	h.writeCatalog(w, lookup, map[string][]string{"tags": tags}, err)
}

// GET /api/pages/{handle}
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	res, err := v.Page(ctx, r.PathValue("handle"))
	h.writeCatalog(w, lookup, res, err)
}

// GET /api/menus/{handle}
func (h *Handler) handleMenu(w http.ResponseWriter, r *http.Request) {
	ctx, v, lookup, ok := h.catalogRequest(w, r)
	if !ok {
		return
	}
	res, err := v.Menu(ctx, r.PathValue("handle"))
	if err == nil {
		h.logger.DebugContext(ctx, "menu served", slog.String("handle", r.PathValue("handle")), slog.Int("items", len(res.Items)))
	}
	h.writeCatalog(w, lookup, res, err)
}
