// Package cart implements the cart lifecycle for one visitor: a persisted
// cart id, the latest server snapshot, the drawer flag and per-line
// in-flight markers.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"storefront/internal/locale"
	"storefront/internal/model"
	"storefront/internal/shopify"
	"storefront/internal/storage"
)

// =============================================================================
// CART LIFECYCLE
// =============================================================================
//
// The server snapshot is the only source of truth. Every successful mutation
// replaces the whole snapshot with the cart the platform returned; nothing is
// patched locally.
//
// Mutations are NOT serialized. The manager lock guards state only and is
// released across gateway calls, so two overlapping mutations both reach the
// platform. Which response becomes the snapshot depends on Ordering:
//
//   OrderLastResolved  - whichever response arrives last wins (default)
//   OrderIssueSequence - responses carry the sequence number taken when the
//                        call was issued; older-than-applied responses are
//                        dropped
//
// =============================================================================

// KeyCartID is the persisted key of the active cart id.
const KeyCartID = "shopify_cart_id"

// Ordering selects how overlapping mutation responses are applied.
type Ordering int

const (
	OrderLastResolved Ordering = iota
	OrderIssueSequence
)

// ParseOrdering accepts "last-resolved" (or "") and "issue-sequence".
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last-resolved":
		return OrderLastResolved, nil
	case "issue-sequence", "sequence":
		return OrderIssueSequence, nil
	default:
		return 0, fmt.Errorf("unknown cart ordering %q", s)
	}
}

func (o Ordering) String() string {
	if o == OrderIssueSequence {
		return "issue-sequence"
	}
	return "last-resolved"
}

// State is the lifecycle state derived from the snapshot.
type State string

const (
	Initializing  State = "initializing"
	ReadyEmpty    State = "ready-empty"
	ReadyNonEmpty State = "ready-nonempty"
)

// TokenSource yields the current customer session token, or "".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// LocaleSource yields the visitor's current language.
type LocaleSource interface {
	Current() locale.Language
}

// Options configures a Manager.
type Options struct {
	Ordering Ordering
	Logger   *slog.Logger
}

type association struct {
	cartID string
	token  string
}

// Manager owns one visitor's cart.
type Manager struct {
	sf       *shopify.Storefront
	kv       storage.Store
	tokens   TokenSource
	locale   LocaleSource
	ordering Ordering
	logger   *slog.Logger

	mu         sync.Mutex
	cart       *shopify.Cart
	loading    bool
	drawerOpen bool
	updating   map[string]int
	issued     uint64
	applied    uint64
	associated association
}

// NewManager creates a manager in the Initializing state.
func NewManager(sf *shopify.Storefront, kv storage.Store, tokens TokenSource, loc LocaleSource, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sf:       sf,
		kv:       kv,
		tokens:   tokens,
		locale:   loc,
		ordering: opts.Ordering,
		logger:   logger,
		updating: make(map[string]int),
	}
}

// === Snapshot ===

// Snapshot is a point-in-time view for rendering. Cart is shared with the
// manager and must not be modified.
type Snapshot struct {
	State     State         `json:"state"`
	Cart      *shopify.Cart `json:"cart"`
	IsLoading bool          `json:"isLoading"`
	IsOpen    bool          `json:"isOpen"`
	Updating  []string      `json:"updatingLines"`
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		State:     m.stateLocked(),
		Cart:      m.cart,
		IsLoading: m.loading,
		IsOpen:    m.drawerOpen,
		Updating:  m.updatingLocked(),
	}
}

// Cart returns the current snapshot cart, or nil before one exists.
func (m *Manager) Cart() *shopify.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	switch {
	case m.cart == nil:
		return Initializing
	case m.cart.IsEmpty():
		return ReadyEmpty
	default:
		return ReadyNonEmpty
	}
}

// === Drawer ===

// Open shows the cart drawer.
func (m *Manager) Open() { m.setDrawer(true) }

// Close hides the cart drawer.
func (m *Manager) Close() { m.setDrawer(false) }

// IsOpen reports drawer visibility.
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawerOpen
}

func (m *Manager) setDrawer(open bool) {
	m.mu.Lock()
	m.drawerOpen = open
	m.mu.Unlock()
}

// === In-flight lines ===

// IsUpdating reports whether a mutation on lineID is outstanding.
// Display affordance only: it never blocks another call.
func (m *Manager) IsUpdating(lineID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updating[lineID] > 0
}

// UpdatingLines returns the in-flight line ids, sorted.
func (m *Manager) UpdatingLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatingLocked()
}

func (m *Manager) updatingLocked() []string {
	ids := make([]string, 0, len(m.updating))
	for id := range m.updating {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) markUpdating(lineID string) func() {
	m.mu.Lock()
	m.updating[lineID]++
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.updating[lineID]--; m.updating[lineID] <= 0 {
			delete(m.updating, lineID)
		}
	}
}

// === Ordering ===

// issue returns the sequence number for a call about to be sent.
func (m *Manager) issue() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
	return m.issued
}

// apply installs c as the snapshot unless sequence ordering marks it stale.
func (m *Manager) apply(seq uint64, c *shopify.Cart) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ordering == OrderIssueSequence && seq < m.applied {
		m.logger.Debug("discarding stale cart response", "seq", seq, "applied", m.applied)
		return false
	}
	if seq > m.applied {
		m.applied = seq
	}
	m.cart = c
	return true
}

func (m *Manager) cartID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cart == nil {
		return ""
	}
	return m.cart.ID
}

func (m *Manager) lang() string {
	return string(m.locale.Current())
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

// === Lifecycle ===

// Initialize loads the persisted cart or creates one. It runs on first use
// and again after every locale change to refetch under the new locale.
//
// A persisted id the platform no longer knows is discarded and replaced. A
// failed fetch also falls back to a new cart.
func (m *Manager) Initialize(ctx context.Context) error {
	m.setLoading(true)
	defer m.setLoading(false)

	id, ok, err := m.kv.Get(ctx, KeyCartID)
	if err != nil {
		return fmt.Errorf("reading cart id: %w", err)
	}
	if !ok || id == "" {
		_, err := m.createCart(ctx)
		return err
	}

	seq := m.issue()
	c, err := m.sf.Cart(ctx, m.lang(), id)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Warn("fetching cart failed, creating a new one", "cart_id", id, "error", err)
		_, err := m.createCart(ctx)
		return err
	}
	if c == nil {
		m.logger.Info("persisted cart no longer exists", "cart_id", id)
		if err := m.kv.Delete(ctx, KeyCartID); err != nil {
			return fmt.Errorf("discarding cart id: %w", err)
		}
		_, err := m.createCart(ctx)
		return err
	}

	m.apply(seq, c)
	m.associate(ctx, c.ID, false)
	return nil
}

// createCart creates an empty cart, persists its id and associates identity.
func (m *Manager) createCart(ctx context.Context) (*shopify.Cart, error) {
	seq := m.issue()
	c, err := m.sf.CreateCart(ctx, m.lang(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating cart: %w", err)
	}
	if c == nil {
		return nil, errors.New("failed to create cart")
	}
	if err := m.kv.Set(ctx, KeyCartID, c.ID); err != nil {
		return nil, fmt.Errorf("storing cart id: %w", err)
	}

	m.apply(seq, c)
	m.associate(ctx, c.ID, false)
	return c, nil
}

// associate binds cartID to the signed-in customer when a token exists.
// Unless forced, a (cart, token) pair already associated is skipped.
// Failures are logged and leave the cart usable anonymously.
func (m *Manager) associate(ctx context.Context, cartID string, force bool) {
	tok, err := m.tokens.Token(ctx)
	if err != nil {
		m.logger.Warn("reading session token failed", "error", err)
		return
	}
	if tok == "" || cartID == "" {
		return
	}

	pair := association{cartID: cartID, token: tok}
	m.mu.Lock()
	if !force && m.associated == pair {
		m.mu.Unlock()
		return
	}
	m.associated = pair
	m.mu.Unlock()

	seq := m.issue()
	c, err := m.sf.UpdateCartBuyerIdentity(ctx, m.lang(), cartID, tok)
	if err != nil {
		m.logger.Warn("associating cart with customer failed", "cart_id", cartID, "error", err)
		m.mu.Lock()
		if m.associated == pair {
			m.associated = association{}
		}
		m.mu.Unlock()
		return
	}
	if c != nil {
		m.apply(seq, c)
	}
}

// OnIdentityChange re-runs association after the session token changed
// (login, registration). No-op without a cart or a token.
func (m *Manager) OnIdentityChange(ctx context.Context) {
	if id := m.cartID(); id != "" {
		m.associate(ctx, id, false)
	}
}

// === Mutations ===

// AddLine adds quantity units of merchandiseID, creating a cart first when
// none exists. On success the drawer opens.
func (m *Manager) AddLine(ctx context.Context, merchandiseID string, quantity int) error {
	if strings.TrimSpace(merchandiseID) == "" {
		return model.NewValidationError("merchandiseId", "required")
	}
	if quantity < 1 {
		return model.NewValidationError("quantity", "must be at least 1")
	}

	cartID := m.cartID()
	if cartID == "" {
		c, err := m.createCart(ctx)
		if err != nil {
			return err
		}
		cartID = c.ID
	}

	seq := m.issue()
	c, err := m.sf.AddCartLines(ctx, m.lang(), cartID, []shopify.CartLineInput{
		{MerchandiseID: merchandiseID, Quantity: quantity},
	})
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	m.apply(seq, c)
	m.associate(ctx, c.ID, true)
	m.Open()
	return nil
}

// UpdateLine sets a line's quantity. A quantity ≤ 0 removes the line.
// Without a cart it does nothing.
func (m *Manager) UpdateLine(ctx context.Context, lineID string, quantity int) error {
	cartID := m.cartID()
	if cartID == "" {
		return nil
	}
	if quantity <= 0 {
		return m.RemoveLine(ctx, lineID)
	}

	done := m.markUpdating(lineID)
	defer done()

	seq := m.issue()
	c, err := m.sf.UpdateCartLines(ctx, m.lang(), cartID, []shopify.CartLineUpdateInput{
		{ID: lineID, Quantity: quantity},
	})
	if err != nil {
		return err
	}
	if c != nil {
		m.apply(seq, c)
	}
	return nil
}

// RemoveLine deletes a line. Without a cart it does nothing.
func (m *Manager) RemoveLine(ctx context.Context, lineID string) error {
	cartID := m.cartID()
	if cartID == "" {
		return nil
	}

	done := m.markUpdating(lineID)
	defer done()

	seq := m.issue()
	c, err := m.sf.RemoveCartLines(ctx, m.lang(), cartID, []string{lineID})
	if err != nil {
		return err
	}
	if c != nil {
		m.apply(seq, c)
	}
	return nil
}

// Clear abandons the current cart and starts a fresh empty one. The old cart
// is left untouched server-side.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.kv.Delete(ctx, KeyCartID); err != nil {
		return fmt.Errorf("discarding cart id: %w", err)
	}
	_, err := m.createCart(ctx)
	return err
}

// SetLines makes the cart hold exactly the desired lines (by merchandise
// id), issuing at most one remove, one update and one add call. Without a
// cart it creates one seeded with the desired lines.
func (m *Manager) SetLines(ctx context.Context, desired []shopify.CartLineInput) error {
	for _, d := range desired {
		if strings.TrimSpace(d.MerchandiseID) == "" {
			return model.NewValidationError("merchandiseId", "required")
		}
	}

	m.mu.Lock()
	current := m.cart
	m.mu.Unlock()

	if current == nil {
		diff := DiffLines(nil, desired)
		seq := m.issue()
		c, err := m.sf.CreateCart(ctx, m.lang(), diff.ToAdd)
		if err != nil {
			return fmt.Errorf("creating cart: %w", err)
		}
		if c == nil {
			return errors.New("failed to create cart")
		}
		if err := m.kv.Set(ctx, KeyCartID, c.ID); err != nil {
			return fmt.Errorf("storing cart id: %w", err)
		}
		m.apply(seq, c)
		m.associate(ctx, c.ID, false)
		return nil
	}

	diff := DiffLines(current.LineItems(), desired)
	if diff.IsEmpty() {
		return nil
	}

	if len(diff.ToRemove) > 0 {
		seq := m.issue()
		c, err := m.sf.RemoveCartLines(ctx, m.lang(), current.ID, diff.ToRemove)
		if err != nil {
			return fmt.Errorf("removing lines: %w", err)
		}
		if c != nil {
			m.apply(seq, c)
		}
	}
	if len(diff.ToUpdate) > 0 {
		seq := m.issue()
		c, err := m.sf.UpdateCartLines(ctx, m.lang(), current.ID, diff.ToUpdate)
		if err != nil {
			return fmt.Errorf("updating lines: %w", err)
		}
		if c != nil {
			m.apply(seq, c)
		}
	}
	if len(diff.ToAdd) > 0 {
		seq := m.issue()
		c, err := m.sf.AddCartLines(ctx, m.lang(), current.ID, diff.ToAdd)
		if err != nil {
			return fmt.Errorf("adding lines: %w", err)
		}
		if c != nil {
			m.apply(seq, c)
		}
	}
	return nil
}

// === Checkout ===

// CheckoutURL returns the hosted checkout URL. When the visitor is signed in
// the session token is appended as customer_access_token.
func (m *Manager) CheckoutURL(ctx context.Context) (string, error) {
	c := m.Cart()
	if c == nil || c.CheckoutURL == "" {
		return "", model.NewNotFoundError("cart")
	}

	tok, err := m.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return c.CheckoutURL, nil
	}

	u, err := url.Parse(c.CheckoutURL)
	if err != nil {
		return "", fmt.Errorf("parsing checkout url: %w", err)
	}
	q := u.Query()
	q.Set("customer_access_token", tok)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
