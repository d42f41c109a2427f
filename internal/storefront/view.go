package storefront

import (
	"context"

	"storefront/internal/catalog"
	"storefront/internal/locale"
	"storefront/internal/shopify"
)

type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// View runs catalog queries in one locale. In overrides it per query.
type View struct {
	svc    *catalog.Service
	lang   locale.Language
	tokens tokenSource
}

// In returns a view for another locale.
func (v *View) In(l locale.Language) *View {
	return &View{svc: v.svc, lang: l, tokens: v.tokens}
}

// Locale returns the view's locale.
func (v *View) Locale() locale.Language { return v.lang }

func (v *View) Products(ctx context.Context, p shopify.ProductsParams) (*shopify.Connection[shopify.Product], error) {
	return v.svc.Products(ctx, v.lang, p)
}

func (v *View) SearchProducts(ctx context.Context, query string, first int) (*shopify.Connection[shopify.Product], error) {
	return v.svc.SearchProducts(ctx, v.lang, query, first)
}

func (v *View) ProductByHandle(ctx context.Context, handle string) (*shopify.Product, error) {
	return v.svc.ProductByHandle(ctx, v.lang, handle)
}

func (v *View) ProductByID(ctx context.Context, id string) (*shopify.Product, error) {
	return v.svc.ProductByID(ctx, v.lang, id)
}

func (v *View) Collections(ctx context.Context, p shopify.PageParams) (*catalog.CollectionList, error) {
	return v.svc.Collections(ctx, v.lang, p)
}

func (v *View) CollectionByHandle(ctx context.Context, handle string, p shopify.PageParams) (*shopify.Collection, error) {
	return v.svc.CollectionByHandle(ctx, v.lang, handle, p)
}

func (v *View) CollectionByID(ctx context.Context, id string, p shopify.PageParams) (*shopify.Collection, error) {
	return v.svc.CollectionByID(ctx, v.lang, id, p)
}

func (v *View) Blogs(ctx context.Context, p shopify.PageParams) (*shopify.Connection[shopify.Blog], error) {
	return v.svc.Blogs(ctx, v.lang, p)
}

func (v *View) BlogByHandle(ctx context.Context, handle string, p shopify.PageParams) (*shopify.Blog, error) {
	return v.svc.BlogByHandle(ctx, v.lang, handle, p)
}

func (v *View) Articles(ctx context.Context, p shopify.ProductsParams) (*shopify.Connection[shopify.Article], error) {
	return v.svc.Articles(ctx, v.lang, p)
}

func (v *View) ArticleByHandle(ctx context.Context, blogHandle, articleHandle string) (*shopify.Article, error) {
	return v.svc.ArticleByHandle(ctx, v.lang, blogHandle, articleHandle)
}

func (v *View) ArticleByID(ctx context.Context, id string) (*shopify.Article, error) {
	return v.svc.ArticleByID(ctx, v.lang, id)
}

func (v *View) ArticleTags(ctx context.Context) ([]string, error) {
	return v.svc.ArticleTags(ctx, v.lang)
}

func (v *View) Page(ctx context.Context, handle string) (*shopify.Page, error) {
	return v.svc.Page(ctx, v.lang, handle)
}

func (v *View) Menu(ctx context.Context, handle string) (*catalog.Navigation, error) {
	return v.svc.Menu(ctx, v.lang, handle)
}

// Orders lists the signed-in customer's orders.
func (v *View) Orders(ctx context.Context, p shopify.PageParams) (*shopify.Connection[shopify.Order], error) {
	tok, err := v.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return v.svc.Orders(ctx, v.lang, tok, p)
}

// Order fetches one order of the signed-in customer.
func (v *View) Order(ctx context.Context, id string) (*shopify.Order, error) {
	tok, err := v.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return v.svc.Order(ctx, v.lang, tok, id)
}

// ProductPager pages through products with the view's locale.
func (v *View) ProductPager(first int, query string) *catalog.Pager[shopify.Product] {
	return catalog.NewPager(func(ctx context.Context, after string) (*shopify.Connection[shopify.Product], error) {
		return v.Products(ctx, shopify.ProductsParams{First: first, After: after, Query: query})
	})
}

// ArticlePager pages through articles with the view's locale.
func (v *View) ArticlePager(first int, query string) *catalog.Pager[shopify.Article] {
	return catalog.NewPager(func(ctx context.Context, after string) (*shopify.Connection[shopify.Article], error) {
		return v.Articles(ctx, shopify.ProductsParams{First: first, After: after, Query: query})
	})
}
