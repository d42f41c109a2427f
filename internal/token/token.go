// Package token persists the customer session token and its expiry.
package token

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/storage"
)

// Persisted keys.
const (
	KeyToken  = "shopify_customer_token"
	KeyExpiry = "shopify_customer_token_expiry"
)

// Store reads and writes the session token. A token at or past its expiry is
// never returned: Get purges it and reports none.
type Store struct {
	kv  storage.Store
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a token store over kv.
func NewStore(kv storage.Store, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set persists token and its expiry. expiresAt is the RFC 3339 string the
// platform returned.
func (s *Store) Set(ctx context.Context, token, expiresAt string) error {
	if err := s.kv.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	if err := s.kv.Set(ctx, KeyExpiry, expiresAt); err != nil {
		return fmt.Errorf("storing token expiry: %w", err)
	}
	return nil
}

// Get returns the stored token, or "" when none is stored, the expiry is
// missing or unparsable, or the token has expired. The last two cases clear
// both keys.
func (s *Store) Get(ctx context.Context) (string, error) {
	token, ok, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	expiry, hasExpiry, err := s.kv.Get(ctx, KeyExpiry)
	if err != nil {
		return "", fmt.Errorf("reading token expiry: %w", err)
	}
	if !ok || token == "" || !hasExpiry || expiry == "" {
		return "", nil
	}

	expiresAt, err := time.Parse(time.RFC3339, expiry)
	if err != nil || !expiresAt.After(s.now()) {
		if err := s.Clear(ctx); err != nil {
			return "", err
		}
		return "", nil
	}
	return token, nil
}

// Clear removes both keys.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyToken, KeyExpiry); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	return nil
}
