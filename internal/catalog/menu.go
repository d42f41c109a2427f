package catalog

import (
	"net/url"
	"strings"

	"storefront/internal/shopify"
)

// MenuLink is a navigation target resolved for the storefront router.
type MenuLink struct {
	Href       string `json:"href"`
	IsExternal bool   `json:"isExternal"`
}

// FormatMenuURL rewrites a menu item URL for in-site navigation. Relative
// paths pass through; http(s) URLs are reduced to path and query so links
// pointing at the shop domain stay inside the storefront. Other schemes
// (mailto:, tel:) stay external. Unparsable input becomes a rooted path.
func FormatMenuURL(raw string) MenuLink {
	if strings.HasPrefix(raw, "/") {
		return MenuLink{Href: raw}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return MenuLink{Href: "/" + raw}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return MenuLink{Href: raw, IsExternal: true}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return MenuLink{Href: path}
}

// Navigation is a menu with resolved links.
type Navigation struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Items []NavItem `json:"items"`
}

// NavItem is one resolved menu entry.
type NavItem struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Type  string    `json:"type"`
	Link  MenuLink  `json:"link"`
	Items []NavItem `json:"items,omitempty"`
}

func newNavigation(m *shopify.Menu) *Navigation {
	return &Navigation{ID: m.ID, Title: m.Title, Items: navItems(m.Items)}
}

func navItems(items []shopify.MenuItem) []NavItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]NavItem, 0, len(items))
	for _, it := range items {
		out = append(out, NavItem{
			ID:    it.ID,
			Title: it.Title,
			Type:  it.Type,
			Link:  FormatMenuURL(it.URL),
			Items: navItems(it.Items),
		})
	}
	return out
}
