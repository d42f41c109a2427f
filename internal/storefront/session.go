// Package storefront wires the per-visitor services together. A Session
// owns one visitor's persisted state (token, locale, cart id) and the
// managers built on it; the catalog is shared by all sessions.
package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/customer"
	"storefront/internal/locale"
	"storefront/internal/shopify"
	"storefront/internal/storage"
	"storefront/internal/token"
)

// Deps are the process-wide dependencies shared by every session.
type Deps struct {
	Storefront *shopify.Storefront
	Catalog    *catalog.Service
	Store      storage.Store
	Logger     *slog.Logger

	CartOrdering             cart.Ordering
	ClearTokenOnFetchFailure bool
}

// Session is one visitor's storefront state.
type Session struct {
	id      string
	logger  *slog.Logger
	tokens  *token.Store
	lang    *locale.Selector
	cust    *customer.Manager
	cart    *cart.Manager
	catalog *catalog.Service

	startMu sync.Mutex
	started bool
}

// NewSession builds a session whose keys live under "visitor:{id}:" in the
// shared store. Nothing is loaded until Start.
func NewSession(id string, d Deps) *Session {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("visitor", id)

	kv := storage.Namespace(d.Store, "visitor:"+id)
	tokens := token.NewStore(kv)
	lang := locale.NewSelector(kv)
	cust := customer.NewManager(d.Storefront, tokens, customer.Options{
		ClearTokenOnFetchFailure: d.ClearTokenOnFetchFailure,
		Logger:                   logger,
	})

	s := &Session{
		id:      id,
		logger:  logger,
		tokens:  tokens,
		lang:    lang,
		cust:    cust,
		cart:    cart.NewManager(d.Storefront, kv, cust, lang, cart.Options{Ordering: d.CartOrdering, Logger: logger}),
		catalog: d.Catalog,
	}
	cust.OnChange(func(ctx context.Context, st customer.Status) {
		logger.Debug("customer status changed", "status", st.String())
		if st == customer.Authenticated {
			s.cart.OnIdentityChange(ctx)
		}
	})
	return s
}

// ID returns the visitor id.
func (s *Session) ID() string { return s.id }

// Customer returns the customer session manager.
func (s *Session) Customer() *customer.Manager { return s.cust }

// Cart returns the cart manager.
func (s *Session) Cart() *cart.Manager { return s.cart }

// Locale returns the current language.
func (s *Session) Locale() locale.Language { return s.lang.Current() }

// Start runs the mount sequence once: restore the language (fallback when
// none is stored), load the customer, then initialize the cart. A failed
// language or customer load is retried by the next call. A cart failure is
// logged only; the session starts without a cart and AddLine creates one.
func (s *Session) Start(ctx context.Context, fallback locale.Language) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return nil
	}

	if _, err := s.lang.Load(ctx, fallback); err != nil {
		return fmt.Errorf("loading language: %w", err)
	}
	if err := s.cust.Load(ctx); err != nil {
		return fmt.Errorf("loading customer: %w", err)
	}
	if err := s.cart.Initialize(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("initializing cart failed", "error", err)
	}
	s.started = true
	return nil
}

// SetLocale persists l. When the language actually changes on a started
// session the cart is refetched once under the new locale.
func (s *Session) SetLocale(ctx context.Context, l locale.Language) error {
	changed, err := s.lang.Set(ctx, l)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.startMu.Lock()
	started := s.started
	s.startMu.Unlock()
	if !started {
		return nil
	}
	return s.cart.Initialize(ctx)
}

// Login signs the customer in. The status listener associates the cart.
func (s *Session) Login(ctx context.Context, email, password string) (*shopify.Customer, error) {
	if _, err := s.cust.Login(ctx, email, password); err != nil {
		return nil, err
	}
	return s.cust.Customer(), nil
}

// Register creates an account and signs in.
func (s *Session) Register(ctx context.Context, in customer.RegisterInput) (*shopify.Customer, error) {
	if _, err := s.cust.Register(ctx, in); err != nil {
		return nil, err
	}
	return s.cust.Customer(), nil
}

// Logout ends the customer session. The cart stays with the visitor.
func (s *Session) Logout(ctx context.Context) error {
	return s.cust.Logout(ctx)
}

// RenewToken extends the customer token. The cart follows the renewed
// token through the status listener.
func (s *Session) RenewToken(ctx context.Context) error {
	return s.cust.Renew(ctx)
}

// Catalog returns catalog queries bound to the session's current locale.
func (s *Session) Catalog() *View {
	return &View{svc: s.catalog, lang: s.lang.Current(), tokens: s.cust}
}
