package catalog

import (
	"context"
	"sync"

	"storefront/internal/shopify"
)

// PageFunc fetches the page after cursor ("" for the first page).
type PageFunc[T any] func(ctx context.Context, after string) (*shopify.Connection[T], error)

// Pager accumulates cursor pages for infinite listings.
type Pager[T any] struct {
	fetch PageFunc[T]

	mu       sync.Mutex
	items    []T
	cursor   string
	started  bool
	hasNext  bool
	fetching bool
}

// NewPager creates a pager; nothing is fetched until FetchNextPage.
func NewPager[T any](fetch PageFunc[T]) *Pager[T] {
	return &Pager[T]{fetch: fetch}
}

// FetchNextPage loads the next page and appends it. It is a no-op when the
// last page was reached or another fetch is running.
func (p *Pager[T]) FetchNextPage(ctx context.Context) error {
	p.mu.Lock()
	if p.fetching || (p.started && !p.hasNext) {
		p.mu.Unlock()
		return nil
	}
	p.fetching = true
	after := p.cursor
	p.mu.Unlock()

	conn, err := p.fetch(ctx, after)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetching = false
	if err != nil {
		return err
	}
	if conn == nil {
		return nil
	}

	p.started = true
	p.items = append(p.items, conn.Nodes()...)
	p.hasNext = conn.PageInfo.HasNextPage && conn.PageInfo.EndCursor != nil
	if conn.PageInfo.EndCursor != nil {
		p.cursor = *conn.PageInfo.EndCursor
	}
	return nil
}

// HasNextPage reports whether another page can be fetched. True before the
// first fetch.
func (p *Pager[T]) HasNextPage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.started || p.hasNext
}

func (p *Pager[T]) IsFetchingNextPage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetching
}

// Items returns everything fetched so far.
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, len(p.items))
	copy(out, p.items)
	return out
}
