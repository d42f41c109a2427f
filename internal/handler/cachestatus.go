package handler

import (
	"net/http"
	"time"

	"github.com/dunglas/httpsfv"

	"storefront/internal/catalog"
)

// cacheName identifies this server in Cache-Status members.
const cacheName = "storefront"

// CacheStatus renders catalog lookups as an RFC 9211 Cache-Status value.
// A request counts as a hit only when every lookup hit; ttl is the shortest
// remaining freshness. Returns "" when nothing was looked up.
//
// Examples:
//   - storefront;hit;ttl=287
//   - storefront;fwd=miss;stored;ttl=300
func CacheStatus(entries []catalog.LookupEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	hit := true
	ttl := entries[0].TTL
	for _, e := range entries {
		hit = hit && e.Hit
		if e.TTL < ttl {
			ttl = e.TTL
		}
	}

	item := httpsfv.NewItem(httpsfv.Token(cacheName))
	if hit {
		item.Params.Add("hit", true)
	} else {
		item.Params.Add("fwd", httpsfv.Token("miss"))
		item.Params.Add("stored", true)
	}
	item.Params.Add("ttl", int64(ttl/time.Second))

	return httpsfv.Marshal(httpsfv.List{item})
}

// setCacheStatus writes the Cache-Status header for lookup, if any.
func (h *Handler) setCacheStatus(w http.ResponseWriter, lookup *catalog.Lookup) {
	v, err := CacheStatus(lookup.Entries())
	if err != nil {
		h.logger.Warn("encoding Cache-Status failed", "error", err)
		return
	}
	if v != "" {
		w.Header().Set("Cache-Status", v)
	}
}
