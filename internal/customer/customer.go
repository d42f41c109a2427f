// Package customer manages the signed-in customer session for one visitor.
package customer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"storefront/internal/model"
	"storefront/internal/shopify"
	"storefront/internal/token"
)

// Status is the session state.
type Status int

const (
	Loading Status = iota
	Unauthenticated
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Options configures a Manager.
type Options struct {
	// ClearTokenOnFetchFailure drops a stored token the platform no longer
	// accepts. Off by default: only expired tokens are cleared.
	ClearTokenOnFetchFailure bool

	Logger *slog.Logger
}

// RegisterInput is the account creation form.
type RegisterInput struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	AcceptsMarketing bool   `json:"acceptsMarketing,omitempty"`
}

// Manager owns one visitor's customer state. Safe for concurrent use; the
// lock is never held across gateway calls.
type Manager struct {
	sf     *shopify.Storefront
	tokens *token.Store
	opts   Options
	logger *slog.Logger

	mu        sync.RWMutex
	status    Status
	customer  *shopify.Customer
	listeners []func(context.Context, Status)
}

// NewManager creates a manager in the Loading state.
func NewManager(sf *shopify.Storefront, tokens *token.Store, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sf:     sf,
		tokens: tokens,
		opts:   opts,
		logger: logger,
		status: Loading,
	}
}

// Status returns the current state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Customer returns the cached customer, or nil unless Authenticated.
func (m *Manager) Customer() *shopify.Customer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.customer == nil {
		return nil
	}
	c := *m.customer
	return &c
}

// IsAuthenticated reports whether a customer is loaded.
func (m *Manager) IsAuthenticated() bool {
	return m.Status() == Authenticated
}

// Token returns the stored, unexpired session token or "".
func (m *Manager) Token(ctx context.Context) (string, error) {
	return m.tokens.Get(ctx)
}

// OnChange registers fn to run after every state transition, including
// transitions to the same state after a new login or a token renewal. fn
// runs on the caller's goroutine with the caller's context.
func (m *Manager) OnChange(fn func(context.Context, Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) setState(ctx context.Context, status Status, c *shopify.Customer) {
	m.mu.Lock()
	m.status = status
	m.customer = c
	listeners := append([]func(context.Context, Status){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, status)
	}
}

// Load resolves the session from the stored token. Fetch failures end in
// Unauthenticated and are logged, not returned; only storage errors are.
func (m *Manager) Load(ctx context.Context) error {
	tok, err := m.tokens.Get(ctx)
	if err != nil {
		m.setState(ctx, Unauthenticated, nil)
		return err
	}
	if tok == "" {
		m.setState(ctx, Unauthenticated, nil)
		return nil
	}

	c, err := m.sf.Customer(ctx, tok)
	if err != nil || c == nil {
		if err != nil {
			m.logger.Warn("fetching customer failed", "error", err)
		}
		if m.opts.ClearTokenOnFetchFailure {
			if err := m.tokens.Clear(ctx); err != nil {
				m.logger.Warn("clearing rejected token failed", "error", err)
			}
		}
		m.setState(ctx, Unauthenticated, nil)
		return nil
	}

	m.setState(ctx, Authenticated, c)
	return nil
}

// Login exchanges credentials for a token, persists it and loads the customer.
func (m *Manager) Login(ctx context.Context, email, password string) (*shopify.CustomerAccessToken, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, model.NewValidationError("email", "required")
	}
	if password == "" {
		return nil, model.NewValidationError("password", "required")
	}

	tok, err := m.sf.CreateCustomerAccessToken(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := m.tokens.Set(ctx, tok.AccessToken, tok.ExpiresAt); err != nil {
		return nil, err
	}

	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	return tok, nil
}

// Register creates an account and signs in with the same password.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (*shopify.Customer, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" {
		return nil, model.NewValidationError("email", "required")
	}
	if in.Password == "" {
		return nil, model.NewValidationError("password", "required")
	}

	c, err := m.sf.CreateCustomer(ctx, shopify.CustomerCreateInput{
		Email:            in.Email,
		Password:         in.Password,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		AcceptsMarketing: in.AcceptsMarketing,
	})
	if err != nil {
		return nil, err
	}

	if _, err := m.Login(ctx, in.Email, in.Password); err != nil {
		return nil, fmt.Errorf("signing in after registration: %w", err)
	}
	return c, nil
}

// Logout invalidates the token server-side when one exists, then clears
// local state. The remote call is best-effort.
func (m *Manager) Logout(ctx context.Context) error {
	tok, err := m.tokens.Get(ctx)
	if err != nil {
		m.logger.Warn("reading token for logout failed", "error", err)
	}
	if tok != "" {
		if err := m.sf.DeleteCustomerAccessToken(ctx, tok); err != nil {
			m.logger.Warn("logout: deleting access token failed", "error", err)
		}
	}

	clearErr := m.tokens.Clear(ctx)
	m.setState(ctx, Unauthenticated, nil)
	return clearErr
}

// Renew extends the stored token and persists whatever token the platform
// returns. Without a stored token it returns model.ErrNotAuthenticated.
func (m *Manager) Renew(ctx context.Context) error {
	tok, err := m.tokens.Get(ctx)
	if err != nil {
		return err
	}
	if tok == "" {
		return model.NewNotAuthenticatedError()
	}

	renewed, err := m.sf.RenewCustomerAccessToken(ctx, tok)
	if err != nil {
		return err
	}
	if err := m.tokens.Set(ctx, renewed.AccessToken, renewed.ExpiresAt); err != nil {
		return err
	}

	m.mu.RLock()
	status, c := m.status, m.customer
	m.mu.RUnlock()
	m.setState(ctx, status, c)
	return nil
}
