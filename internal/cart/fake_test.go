package cart

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/locale"
	"storefront/internal/shopify"
	"storefront/internal/storage"
)

// fakeAPI is an in-memory cart backend behind a shopify.Mock.
type fakeAPI struct {
	mu       sync.Mutex
	carts    map[string][]fakeLine
	buyers   map[string]string
	nextCart int
	nextLine int
}

type fakeLine struct {
	id    string
	merch string
	qty   int
}

func newFakeAPI() (*fakeAPI, *shopify.Mock) {
	f := &fakeAPI{carts: map[string][]fakeLine{}, buyers: map[string]string{}}
	m := &shopify.Mock{}

	m.Handle("cartCreate", func(ctx context.Context, req *shopify.Request) (any, error) {
		input := req.Variables["input"].(map[string]any)
		lines, _ := input["lines"].([]shopify.CartLineInput)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextCart++
		id := fmt.Sprintf("gid://shopify/Cart/%d", f.nextCart)
		f.carts[id] = []fakeLine{}
		f.addLocked(id, lines)
		return shopify.CartPayload("cartCreate", f.snapshotLocked(id)), nil
	})

	m.Handle("getCart", func(ctx context.Context, req *shopify.Request) (any, error) {
		id := req.Variables["cartId"].(string)
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.carts[id]; !ok {
			return `{"cart":null}`, nil
		}
		return map[string]any{"cart": f.snapshotLocked(id)}, nil
	})

	m.Handle("cartLinesAdd", func(ctx context.Context, req *shopify.Request) (any, error) {
		id := req.Variables["cartId"].(string)
		lines := req.Variables["lines"].([]shopify.CartLineInput)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.addLocked(id, lines)
		return shopify.CartPayload("cartLinesAdd", f.snapshotLocked(id)), nil
	})

	m.Handle("cartLinesUpdate", func(ctx context.Context, req *shopify.Request) (any, error) {
		id := req.Variables["cartId"].(string)
		updates := req.Variables["lines"].([]shopify.CartLineUpdateInput)
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, u := range updates {
			for i := range f.carts[id] {
				if f.carts[id][i].id == u.ID {
					f.carts[id][i].qty = u.Quantity
				}
			}
		}
		return shopify.CartPayload("cartLinesUpdate", f.snapshotLocked(id)), nil
	})

	m.Handle("cartLinesRemove", func(ctx context.Context, req *shopify.Request) (any, error) {
		id := req.Variables["cartId"].(string)
		ids := req.Variables["lineIds"].([]string)
		f.mu.Lock()
		defer f.mu.Unlock()
		drop := map[string]bool{}
		for _, lid := range ids {
			drop[lid] = true
		}
		kept := []fakeLine{}
		for _, l := range f.carts[id] {
			if !drop[l.id] {
				kept = append(kept, l)
			}
		}
		f.carts[id] = kept
		return shopify.CartPayload("cartLinesRemove", f.snapshotLocked(id)), nil
	})

	m.Handle("cartBuyerIdentityUpdate", func(ctx context.Context, req *shopify.Request) (any, error) {
		id := req.Variables["cartId"].(string)
		identity := req.Variables["buyerIdentity"].(map[string]any)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.buyers[id] = identity["customerAccessToken"].(string)
		return shopify.CartPayload("cartBuyerIdentityUpdate", f.snapshotLocked(id)), nil
	})

	return f, m
}

// addLocked merges lines into the cart; the same merchandise shares a line.
func (f *fakeAPI) addLocked(id string, lines []shopify.CartLineInput) {
	for _, in := range lines {
		merged := false
		for i := range f.carts[id] {
			if f.carts[id][i].merch == in.MerchandiseID {
				f.carts[id][i].qty += in.Quantity
				merged = true
			}
		}
		if !merged {
			f.nextLine++
			f.carts[id] = append(f.carts[id], fakeLine{
				id:    fmt.Sprintf("gid://shopify/CartLine/%d", f.nextLine),
				merch: in.MerchandiseID,
				qty:   in.Quantity,
			})
		}
	}
}

func (f *fakeAPI) snapshotLocked(id string) *shopify.Cart {
	inputs := make([]shopify.CartLineInput, 0, len(f.carts[id]))
	for _, l := range f.carts[id] {
		inputs = append(inputs, shopify.CartLineInput{MerchandiseID: l.merch, Quantity: l.qty})
	}
	c := shopify.NewTestCart(id, inputs...)
	for i, l := range f.carts[id] {
		c.Lines.Edges[i].Node.ID = l.id
	}
	return c
}

func (f *fakeAPI) cartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.carts)
}

// staticTokens is a settable TokenSource.
type staticTokens struct {
	mu  sync.Mutex
	tok string
}

func (s *staticTokens) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok, nil
}

func (s *staticTokens) set(tok string) {
	s.mu.Lock()
	s.tok = tok
	s.mu.Unlock()
}

type harness struct {
	mgr    *Manager
	api    *fakeAPI
	mock   *shopify.Mock
	kv     *storage.Memory
	tokens *staticTokens
	lang   *locale.Selector
}

func newHarness(opts Options) *harness {
	api, mock := newFakeAPI()
	kv := storage.NewMemory()
	tokens := &staticTokens{}
	lang := locale.NewSelector(kv)
	return &harness{
		mgr:    NewManager(shopify.NewStorefront(mock), kv, tokens, lang, opts),
		api:    api,
		mock:   mock,
		kv:     kv,
		tokens: tokens,
		lang:   lang,
	}
}

func (h *harness) persistedID() string {
	id, _, _ := h.kv.Get(context.Background(), KeyCartID)
	return id
}
