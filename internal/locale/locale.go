// Package locale holds the fixed set of storefront languages and the
// per-visitor language selection.
package locale

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"storefront/internal/storage"
)

// Language is a supported two-letter language code.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
	French  Language = "fr"

	// Default is used when nothing is persisted or matched.
	Default = English
)

// Info describes a language for a language switcher.
type Info struct {
	Code  Language `json:"code"`
	Label string   `json:"label"`
}

var supported = []Info{
	{Code: English, Label: "GB English"},
	{Code: Spanish, Label: "ES Español"},
	{Code: French, Label: "FR Français"},
}

// Supported returns the languages in display order.
func Supported() []Info {
	out := make([]Info, len(supported))
	copy(out, supported)
	return out
}

// Label returns the display label of l, or "" for an unsupported code.
func (l Language) Label() string {
	for _, info := range supported {
		if info.Code == l {
			return info.Label
		}
	}
	return ""
}

// Parse validates a language code.
func Parse(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if l.Label() == "" {
		return "", fmt.Errorf("unsupported language %q", s)
	}
	return l, nil
}

var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Spanish,
	language.French,
})

// Match picks the best supported language for an Accept-Language header.
// An empty or unparsable header yields Default.
func Match(acceptLanguage string) Language {
	if strings.TrimSpace(acceptLanguage) == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return supported[idx].Code
}

// === Context ===

type contextKey struct{}

// WithLanguage returns a context carrying l.
func WithLanguage(ctx context.Context, l Language) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the language in ctx, or Default.
func FromContext(ctx context.Context) Language {
	if l, ok := ctx.Value(contextKey{}).(Language); ok {
		return l
	}
	return Default
}

// === Selector ===

// StorageKey is the persisted key of the selection.
const StorageKey = "language-storage"

// persisted is the older envelope form {"state":{"language":"es"},"version":0}.
// The selector stores the bare code and still reads this form.
type persisted struct {
	State struct {
		Language Language `json:"language"`
	} `json:"state"`
	Version int `json:"version"`
}

// Selector holds one visitor's current language.
type Selector struct {
	kv storage.Store

	mu      sync.RWMutex
	current Language
}

// NewSelector creates a selector starting at Default.
func NewSelector(kv storage.Store) *Selector {
	return &Selector{kv: kv, current: Default}
}

// Load restores the persisted language. When nothing valid is stored the
// fallback is used and not persisted.
func (s *Selector) Load(ctx context.Context, fallback Language) (Language, error) {
	l := fallback
	if l.Label() == "" {
		l = Default
	}

	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return "", fmt.Errorf("reading language: %w", err)
	}
	if ok {
		if stored, found := decodeStored(raw); found {
			l = stored
		}
	}

	s.mu.Lock()
	s.current = l
	s.mu.Unlock()
	return l, nil
}

// decodeStored reads a bare code ("es") or the envelope form.
func decodeStored(raw string) (Language, bool) {
	if l, err := Parse(raw); err == nil {
		return l, true
	}
	var p persisted
	if json.Unmarshal([]byte(raw), &p) == nil && p.State.Language.Label() != "" {
		return p.State.Language, true
	}
	return "", false
}

// Current returns the selected language.
func (s *Selector) Current() Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set persists and selects l. It reports whether the language changed.
func (s *Selector) Set(ctx context.Context, l Language) (bool, error) {
	if l.Label() == "" {
		return false, fmt.Errorf("unsupported language %q", l)
	}

	if err := s.kv.Set(ctx, StorageKey, string(l)); err != nil {
		return false, fmt.Errorf("storing language: %w", err)
	}

	s.mu.Lock()
	changed := s.current != l
	s.current = l
	s.mu.Unlock()
	return changed, nil
}
