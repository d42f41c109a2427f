package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"storefront/internal/locale"
	"storefront/internal/model"
	"storefront/internal/shopify"
)

func productConn(titles ...string) shopify.Connection[shopify.Product] {
	conn := shopify.Connection[shopify.Product]{Edges: []shopify.Edge[shopify.Product]{}}
	for i, title := range titles {
		conn.Edges = append(conn.Edges, shopify.Edge[shopify.Product]{
			Cursor: fmt.Sprintf("c%d", i+1),
			Node:   shopify.Product{ID: fmt.Sprintf("gid://shopify/Product/%d", i+1), Title: title},
		})
	}
	return conn
}

func newTestService(clock *fakeClock) (*Service, *shopify.Mock) {
	m := &shopify.Mock{}
	cfg := Config{}
	if clock != nil {
		cfg.Now = clock.now
	}
	return NewService(shopify.NewStorefront(m), cfg), m
}

func TestProducts_CachedPerParameterTuple(t *testing.T) {
	svc, m := newTestService(nil)
	m.Handle("GetProducts", func(ctx context.Context, req *shopify.Request) (any, error) {
		return map[string]any{"products": productConn("Tee")}, nil
	})
	ctx := context.Background()

	for range 3 {
		if _, err := svc.Products(ctx, locale.English, shopify.ProductsParams{}); err != nil {
			t.Fatalf("Products: %v", err)
		}
	}
	if n := m.CallCount("GetProducts"); n != 1 {
		t.Errorf("calls = %d, want 1 (cached)", n)
	}

	svc.Products(ctx, locale.French, shopify.ProductsParams{})
	svc.Products(ctx, locale.English, shopify.ProductsParams{First: 20})
	if n := m.CallCount("GetProducts"); n != 3 {
		t.Errorf("calls = %d, want 3 (locale and page size are part of the key)", n)
	}

	calls := m.Calls()
	if calls[0].Variables["first"] != DefaultPageSize {
		t.Errorf("first = %v, want default %d", calls[0].Variables["first"], DefaultPageSize)
	}
	if calls[1].Locale != "fr" {
		t.Errorf("locale = %q, want fr", calls[1].Locale)
	}
}

func TestProducts_KeyPartsDoNotCollide(t *testing.T) {
	svc, m := newTestService(nil)
	m.Handle("GetProducts", func(ctx context.Context, req *shopify.Request) (any, error) {
		title := fmt.Sprintf("after=%v query=%v", req.Variables["after"], req.Variables["query"])
		return map[string]any{"products": productConn(title)}, nil
	})
	ctx := context.Background()

	first, err := svc.Products(ctx, locale.English, shopify.ProductsParams{After: "a", Query: "b|"})
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	second, err := svc.Products(ctx, locale.English, shopify.ProductsParams{After: "a|b"})
	if err != nil {
		t.Fatalf("Products: %v", err)
	}

	if n := m.CallCount("GetProducts"); n != 2 {
		t.Errorf("calls = %d, want 2 (distinct tuples)", n)
	}
	if first.Edges[0].Node.Title == second.Edges[0].Node.Title {
		t.Errorf("both requests got %q", first.Edges[0].Node.Title)
	}
}

func TestProducts_ErrorsAreNotCached(t *testing.T) {
	svc, m := newTestService(nil)
	fail := true
	m.Handle("GetProducts", func(ctx context.Context, req *shopify.Request) (any, error) {
		if fail {
			return nil, model.NewUpstreamError("Shopify", errors.New("503"))
		}
		return map[string]any{"products": productConn("Tee")}, nil
	})

	if _, err := svc.Products(context.Background(), locale.English, shopify.ProductsParams{}); !errors.Is(err, model.ErrUpstreamError) {
		t.Fatalf("err = %v, want upstream error", err)
	}
	fail = false
	conn, err := svc.Products(context.Background(), locale.English, shopify.ProductsParams{})
	if err != nil || len(conn.Edges) != 1 {
		t.Fatalf("Products() = (%v, %v), want one product after recovery", conn, err)
	}
}

func TestProducts_MissingRoot(t *testing.T) {
	svc, m := newTestService(nil)
	m.Handle("GetProducts", func(ctx context.Context, req *shopify.Request) (any, error) {
		return `{"products":null}`, nil
	})

	_, err := svc.Products(context.Background(), locale.English, shopify.ProductsParams{})
	if !errors.Is(err, model.ErrInvalidResponse) {
		t.Errorf("err = %v, want ErrInvalidResponse", err)
	}
}

func TestProducts_ConcurrentRequestsCollapse(t *testing.T) {
	svc, m := newTestService(nil)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	m.Handle("GetProducts", func(ctx context.Context, req *shopify.Request) (any, error) {
		entered <- struct{}{}
		<-release
		return map[string]any{"products": productConn("Tee")}, nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Products(context.Background(), locale.English, shopify.ProductsParams{})
	}()
	<-entered

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Products(context.Background(), locale.English, shopify.ProductsParams{})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := m.CallCount("GetProducts"); n != 1 {
		t.Errorf("calls = %d, want 1 (identical requests share one call)", n)
	}
}

func TestSearchProducts(t *testing.T) {
	clock := newClock()
	svc, m := newTestService(clock)
	m.Handle("GetProducts", func(ctx context.Context, req *shopify.Request) (any, error) {
		return map[string]any{"products": productConn("Linen shirt")}, nil
	})
	ctx := context.Background()

	for _, q := range []string{"", "a", "  s "} {
		conn, err := svc.SearchProducts(ctx, locale.English, q, 0)
		if err != nil || conn == nil || len(conn.Edges) != 0 {
			t.Errorf("SearchProducts(%q) = (%v, %v), want empty result", q, conn, err)
		}
	}
	if n := m.CallCount(""); n != 0 {
		t.Fatalf("short queries reached the gateway: %d calls", n)
	}

	if _, err := svc.SearchProducts(ctx, locale.English, "linen", 0); err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	vars := m.Calls()[0].Variables
	want := map[string]any{"first": SearchPageSize, "query": "title:*linen* OR description:*linen*"}
	if diff := cmp.Diff(want, vars); diff != "" {
		t.Errorf("variables mismatch (-want +got):\n%s", diff)
	}

	clock.advance(29 * time.Second)
	svc.SearchProducts(ctx, locale.English, "linen", 0)
	if n := m.CallCount(""); n != 1 {
		t.Errorf("calls = %d, search should be cached for 30s", n)
	}
	clock.advance(time.Second)
	svc.SearchProducts(ctx, locale.English, "linen", 0)
	if n := m.CallCount(""); n != 2 {
		t.Errorf("calls = %d, search cache should expire after 30s", n)
	}
}

func TestProductByHandle(t *testing.T) {
	svc, m := newTestService(nil)
	m.Handle("GetProductByHandle", func(ctx context.Context, req *shopify.Request) (any, error) {
		if req.Variables["handle"] == "tee" {
			return map[string]any{"productByHandle": shopify.Product{ID: "gid://shopify/Product/1", Handle: "tee"}}, nil
		}
		return `{"productByHandle":null}`, nil
	})
	ctx := context.Background()

	p, err := svc.ProductByHandle(ctx, locale.English, "tee")
	if err != nil || p.Handle != "tee" {
		t.Fatalf("ProductByHandle() = (%v, %v)", p, err)
	}
	if _, err := svc.ProductByHandle(ctx, locale.English, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.ProductByHandle(ctx, locale.English, " "); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest for an empty handle", err)
	}
}

func TestCollections_Simplified(t *testing.T) {
	svc, m := newTestService(nil)
	m.Handle("GetCollections", func(ctx context.Context, req *shopify.Request) (any, error) {
		products := productConn("Tee")
		empty := productConn()
		return map[string]any{"collections": shopify.Connection[shopify.Collection]{
			Edges: []shopify.Edge[shopify.Collection]{
				{Node: shopify.Collection{ID: "c1", Title: "Summer", Handle: "summer", Products: &products}},
				{Node: shopify.Collection{ID: "c2", Title: "Empty", Handle: "empty", Products: &empty}},
				{Node: shopify.Collection{ID: "c3", Title: "Unknown", Handle: "unknown"}},
			},
			PageInfo: shopify.PageInfo{HasNextPage: true},
		}}, nil
	})

	got, err := svc.Collections(context.Background(), locale.English, shopify.PageParams{})
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}
	want := &CollectionList{
		Collections: []CollectionSummary{
			{ID: "c1", Title: "Summer", Handle: "summer", HasProducts: true},
			{ID: "c2", Title: "Empty", Handle: "empty"},
			{ID: "c3", Title: "Unknown", Handle: "unknown"},
		},
		PageInfo: shopify.PageInfo{HasNextPage: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Collections mismatch (-want +got):\n%s", diff)
	}
}

func TestArticleByID_NormalizesNumericIDs(t *testing.T) {
	svc, m := newTestService(nil)
	m.Handle("GetArticleById", func(ctx context.Context, req *shopify.Request) (any, error) {
		return map[string]any{"article": shopify.Article{ID: req.Variables["id"].(string)}}, nil
	})
	ctx := context.Background()

	a, err := svc.ArticleByID(ctx, locale.English, "558169")
	if err != nil {
		t.Fatalf("ArticleByID: %v", err)
	}
	if a.ID != "gid://shopify/Article/558169" {
		t.Errorf("id = %q", a.ID)
	}

	// the global form shares the cache entry
	svc.ArticleByID(ctx, locale.English, "gid://shopify/Article/558169")
	if n := m.CallCount(""); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestArticleTags_DedupedAndSorted(t *testing.T) {
	svc, m := newTestService(nil)
	m.Handle("GetArticlesTags", func(ctx context.Context, req *shopify.Request) (any, error) {
		return map[string]any{"articles": shopify.Connection[shopify.Article]{
			Edges: []shopify.Edge[shopify.Article]{
				{Node: shopify.Article{ID: "a1", Tags: []string{"news", "care"}}},
				{Node: shopify.Article{ID: "a2", Tags: []string{"care", "", "art"}}},
				{Node: shopify.Article{ID: "a3"}},
			},
		}}, nil
	})

	tags, err := svc.ArticleTags(context.Background(), locale.Spanish)
	if err != nil {
		t.Fatalf("ArticleTags: %v", err)
	}
	if diff := cmp.Diff([]string{"art", "care", "news"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if got := m.Calls()[0].Variables["first"]; got != tagsPageSize {
		t.Errorf("first = %v, want %d", got, tagsPageSize)
	}
}

func TestMenu_ResolvesLinks(t *testing.T) {
	svc, m := newTestService(nil)
	m.Handle("GetMenuByHandle", func(ctx context.Context, req *shopify.Request) (any, error) {
		return map[string]any{"menu": shopify.Menu{
			ID:    "m1",
			Title: "Main",
			Items: []shopify.MenuItem{
				{ID: "i1", Title: "Shop", URL: "https://shop.myshopify.com/collections/all", Type: "COLLECTIONS", Items: []shopify.MenuItem{
					{ID: "i2", Title: "Sale", URL: "/collections/sale", Type: "COLLECTION"},
				}},
			},
		}}, nil
	})

	nav, err := svc.Menu(context.Background(), locale.English, "main-menu")
	if err != nil {
		t.Fatalf("Menu: %v", err)
	}
	want := &Navigation{
		ID:    "m1",
		Title: "Main",
		Items: []NavItem{{
			ID: "i1", Title: "Shop", Type: "COLLECTIONS",
			Link: MenuLink{Href: "/collections/all"},
			Items: []NavItem{
				{ID: "i2", Title: "Sale", Type: "COLLECTION", Link: MenuLink{Href: "/collections/sale"}},
			},
		}},
	}
	if diff := cmp.Diff(want, nav); diff != "" {
		t.Errorf("Menu mismatch (-want +got):\n%s", diff)
	}
}

func TestOrders(t *testing.T) {
	svc, m := newTestService(nil)
	m.Handle("getCustomerOrders", func(ctx context.Context, req *shopify.Request) (any, error) {
		if req.Variables["customerAccessToken"] != "good" {
			return `{"customer":null}`, nil
		}
		return map[string]any{"customer": map[string]any{
			"id":     "gid://shopify/Customer/1",
			"orders": shopify.Connection[shopify.Order]{Edges: []shopify.Edge[shopify.Order]{{Node: shopify.Order{ID: "o1", OrderNumber: 1001}}}},
		}}, nil
	})
	ctx := context.Background()

	if _, err := svc.Orders(ctx, locale.English, "", shopify.PageParams{}); !errors.Is(err, model.ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated without a token", err)
	}
	if n := m.CallCount(""); n != 0 {
		t.Errorf("calls = %d, want 0 without a token", n)
	}

	if _, err := svc.Orders(ctx, locale.English, "revoked", shopify.PageParams{}); !errors.Is(err, model.ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated for a rejected token", err)
	}

	for range 2 {
		conn, err := svc.Orders(ctx, locale.English, "good", shopify.PageParams{})
		if err != nil || len(conn.Edges) != 1 {
			t.Fatalf("Orders() = (%v, %v)", conn, err)
		}
	}
	if n := m.CallCount("getCustomerOrders"); n != 3 {
		t.Errorf("calls = %d, orders must not be cached", n)
	}
}

func TestLookupRecordsHitsAndMisses(t *testing.T) {
	svc, m := newTestService(nil)
	m.Handle("GetPageByHandle", func(ctx context.Context, req *shopify.Request) (any, error) {
		return map[string]any{"page": shopify.Page{ID: "p1", Title: "About"}}, nil
	})

	ctx, lookup := WithLookup(context.Background())
	svc.Page(ctx, locale.English, "about")
	svc.Page(ctx, locale.English, "about")

	entries := lookup.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Hit || entries[0].TTL != DefaultTTL {
		t.Errorf("first lookup = %+v, want miss with default TTL", entries[0])
	}
	if !entries[1].Hit {
		t.Errorf("second lookup = %+v, want hit", entries[1])
	}
	if entries[0].Key != `page|en|"about"` {
		t.Errorf("key = %q", entries[0].Key)
	}
}
