package storefront

import (
	"context"
	"sync"
	"time"
)

// DefaultIdleTTL is how long an unused session stays in memory. Evicted
// sessions are rebuilt from the store on the next request.
const DefaultIdleTTL = 30 * time.Minute

// Registry maps visitor ids to live sessions.
type Registry struct {
	deps    Deps
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// NewRegistry creates an empty registry. idleTTL ≤ 0 uses DefaultIdleTTL.
func NewRegistry(d Deps, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{
		deps:     d,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*registryEntry),
	}
}

// Get returns the visitor's session, creating it on first use. The caller
// still has to Start it.
func (r *Registry) Get(visitorID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[visitorID]
	if !ok {
		e = &registryEntry{session: NewSession(visitorID, r.deps)}
		r.sessions[visitorID] = e
	}
	e.lastSeen = r.now()
	return e.session
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle drops sessions not seen for the idle TTL and returns how many
// were removed.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	n := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Run evicts idle sessions periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 && r.deps.Logger != nil {
				r.deps.Logger.Debug("evicted idle sessions", "count", n, "live", r.Len())
			}
		}
	}
}
