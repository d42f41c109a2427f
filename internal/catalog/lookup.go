package catalog

import (
	"context"
	"sync"
	"time"
)

// Lookup records how the cached queries of one request were served. The
// HTTP layer turns it into a Cache-Status header.
type Lookup struct {
	mu      sync.Mutex
	entries []LookupEntry
}

// LookupEntry describes one cache consultation.
type LookupEntry struct {
	Key string
	Hit bool
	TTL time.Duration // remaining freshness on a hit, stored TTL on a miss
}

type lookupKey struct{}

// WithLookup returns a context that collects cache outcomes into the
// returned Lookup.
func WithLookup(ctx context.Context) (context.Context, *Lookup) {
	l := &Lookup{}
	return context.WithValue(ctx, lookupKey{}, l), l
}

// Entries returns the recorded outcomes in order.
func (l *Lookup) Entries() []LookupEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LookupEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func record(ctx context.Context, e LookupEntry) {
	l, ok := ctx.Value(lookupKey{}).(*Lookup)
	if !ok {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}
