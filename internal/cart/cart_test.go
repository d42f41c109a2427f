package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"storefront/internal/locale"
	"storefront/internal/model"
	"storefront/internal/shopify"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestInitializeWithoutPersistedID(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()

	if got := h.mgr.State(); got != Initializing {
		t.Fatalf("State() = %s, want initializing", got)
	}
	if err := h.mgr.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if n := h.mock.CallCount("cartCreate"); n != 1 {
		t.Errorf("cartCreate calls = %d, want 1", n)
	}
	if n := h.mock.CallCount(""); n != 1 {
		t.Errorf("total calls = %d, want 1", n)
	}
	if id := h.persistedID(); id == "" || id != h.mgr.Cart().ID {
		t.Errorf("persisted id = %q, cart id = %q", id, h.mgr.Cart().ID)
	}
	if got := h.mgr.State(); got != ReadyEmpty {
		t.Errorf("State() = %s, want ready-empty", got)
	}
}

func TestInitializeWithStaleID(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()
	h.kv.Set(ctx, KeyCartID, "gid://shopify/Cart/expired")

	if err := h.mgr.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if n := h.mock.CallCount("getCart"); n != 1 {
		t.Errorf("getCart calls = %d, want 1", n)
	}
	if n := h.mock.CallCount("cartCreate"); n != 1 {
		t.Errorf("cartCreate calls = %d, want 1", n)
	}
	if id := h.persistedID(); id == "gid://shopify/Cart/expired" || id == "" {
		t.Errorf("persisted id = %q, want a fresh id", id)
	}
	if h.mgr.Cart().ID != h.persistedID() {
		t.Errorf("snapshot id = %q, persisted = %q", h.mgr.Cart().ID, h.persistedID())
	}
}

func TestInitializeWithExistingCart(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()

	if err := h.mgr.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	id := h.mgr.Cart().ID

	restarted := NewManager(shopify.NewStorefront(h.mock), h.kv, h.tokens, h.lang, Options{})
	h.mock.Reset()
	if err := restarted.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if n := h.mock.CallCount("cartCreate"); n != 0 {
		t.Errorf("cartCreate calls = %d, want 0", n)
	}
	if restarted.Cart().ID != id {
		t.Errorf("cart id = %q, want %q", restarted.Cart().ID, id)
	}
}

func TestInitializeFetchFailureCreatesCart(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()
	h.kv.Set(ctx, KeyCartID, "gid://shopify/Cart/1")
	h.mock.Handle("getCart", func(ctx context.Context, req *shopify.Request) (any, error) {
		return nil, model.NewUpstreamError("Shopify", errors.New("502"))
	})

	if err := h.mgr.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if n := h.mock.CallCount("cartCreate"); n != 1 {
		t.Errorf("cartCreate calls = %d, want 1", n)
	}
}

func TestLocaleChangeRefetchesOnce(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()

	if err := h.mgr.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	h.mock.Reset()

	if _, err := h.lang.Set(ctx, locale.French); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := h.mgr.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	calls := h.mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if op := shopify.OperationName(calls[0].Query); op != "getCart" {
		t.Errorf("operation = %s, want getCart", op)
	}
	if calls[0].Locale != "fr" {
		t.Errorf("locale = %q, want fr", calls[0].Locale)
	}
	if n := h.api.cartCount(); n != 1 {
		t.Errorf("carts on server = %d, want 1", n)
	}
}

func TestAddLineFromEmptyState(t *testing.T) {
	h := newHarness(Options{})

	err := h.mgr.AddLine(context.Background(), "gid://shopify/ProductVariant/1", 2)
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	if n := h.mock.CallCount(""); n != 2 {
		t.Errorf("gateway calls = %d, want 2", n)
	}
	if n := h.mock.CallCount("cartCreate"); n != 1 {
		t.Errorf("cartCreate calls = %d, want 1", n)
	}
	if n := h.mock.CallCount("cartLinesAdd"); n != 1 {
		t.Errorf("cartLinesAdd calls = %d, want 1", n)
	}
	if got := h.mgr.Cart().TotalQuantity; got != 2 {
		t.Errorf("TotalQuantity = %d, want 2", got)
	}
	if !h.mgr.IsOpen() {
		t.Error("drawer should open after adding a line")
	}
	if got := h.mgr.State(); got != ReadyNonEmpty {
		t.Errorf("State() = %s, want ready-nonempty", got)
	}
}

func TestAddLineValidation(t *testing.T) {
	tests := []struct {
		name     string
		merch    string
		quantity int
	}{
		{"zero quantity", "gid://shopify/ProductVariant/1", 0},
		{"negative quantity", "gid://shopify/ProductVariant/1", -3},
		{"missing merchandise", "", 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(Options{})
			err := h.mgr.AddLine(context.Background(), tc.merch, tc.quantity)
			if !errors.Is(err, model.ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
			if n := h.mock.CallCount(""); n != 0 {
				t.Errorf("gateway calls = %d, want 0", n)
			}
		})
	}
}

func TestAddLineUserError(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()
	h.mgr.Initialize(ctx)
	h.mock.Handle("cartLinesAdd", func(ctx context.Context, req *shopify.Request) (any, error) {
		return shopify.CartPayload("cartLinesAdd", nil, shopify.UserError{Message: "The merchandise is out of stock"}), nil
	})

	err := h.mgr.AddLine(ctx, "gid://shopify/ProductVariant/9", 1)
	if got := model.Message(err); got != "The merchandise is out of stock" {
		t.Errorf("message = %q", got)
	}
	if h.mgr.IsOpen() {
		t.Error("drawer must stay closed on failure")
	}
	if h.mgr.State() != ReadyEmpty {
		t.Errorf("snapshot should be unchanged, state = %s", h.mgr.State())
	}
}

func TestUpdateLineNonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -1} {
		h := newHarness(Options{})
		ctx := context.Background()
		if err := h.mgr.AddLine(ctx, "gid://shopify/ProductVariant/1", 2); err != nil {
			t.Fatalf("AddLine: %v", err)
		}
		lineID := h.mgr.Cart().LineItems()[0].ID

		ref := newHarness(Options{})
		ref.mgr.AddLine(ctx, "gid://shopify/ProductVariant/1", 2)
		if err := ref.mgr.RemoveLine(ctx, ref.mgr.Cart().LineItems()[0].ID); err != nil {
			t.Fatalf("RemoveLine: %v", err)
		}

		h.mock.Reset()
		if err := h.mgr.UpdateLine(ctx, lineID, qty); err != nil {
			t.Fatalf("UpdateLine(%d): %v", qty, err)
		}

		if n := h.mock.CallCount("cartLinesUpdate"); n != 0 {
			t.Errorf("qty %d: cartLinesUpdate calls = %d, want 0", qty, n)
		}
		calls := h.mock.Calls()
		if len(calls) != 1 || shopify.OperationName(calls[0].Query) != "cartLinesRemove" {
			t.Fatalf("qty %d: calls = %v, want one cartLinesRemove", qty, calls)
		}
		if diff := cmp.Diff([]string{lineID}, calls[0].Variables["lineIds"]); diff != "" {
			t.Errorf("qty %d: lineIds mismatch (-want +got):\n%s", qty, diff)
		}
		if diff := cmp.Diff(ref.mgr.Cart().LineItems(), h.mgr.Cart().LineItems()); diff != "" {
			t.Errorf("qty %d: cart differs from RemoveLine result (-remove +update):\n%s", qty, diff)
		}
	}
}

func TestUpdateAndRemoveWithoutCart(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()

	if err := h.mgr.UpdateLine(ctx, "gid://shopify/CartLine/1", 3); err != nil {
		t.Errorf("UpdateLine: %v", err)
	}
	if err := h.mgr.RemoveLine(ctx, "gid://shopify/CartLine/1"); err != nil {
		t.Errorf("RemoveLine: %v", err)
	}
	if n := h.mock.CallCount(""); n != 0 {
		t.Errorf("gateway calls = %d, want 0", n)
	}
}

// overlappingUpdates issues two UpdateLine calls on the same line: the first
// (qty 2) resolves after the second (qty 3). It returns the final quantity.
func overlappingUpdates(t *testing.T, ordering Ordering) int {
	t.Helper()
	h := newHarness(Options{Ordering: ordering})
	ctx := context.Background()
	if err := h.mgr.AddLine(ctx, "gid://shopify/ProductVariant/1", 1); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	lineID := h.mgr.Cart().LineItems()[0].ID
	cartID := h.mgr.Cart().ID

	entered := make(chan int)
	gates := map[int]chan struct{}{2: make(chan struct{}), 3: make(chan struct{})}
	h.mock.Handle("cartLinesUpdate", func(ctx context.Context, req *shopify.Request) (any, error) {
		q := req.Variables["lines"].([]shopify.CartLineUpdateInput)[0].Quantity
		entered <- q
		<-gates[q]
		return shopify.CartPayload("cartLinesUpdate", shopify.NewTestCart(cartID,
			shopify.CartLineInput{MerchandiseID: "gid://shopify/ProductVariant/1", Quantity: q})), nil
	})

	done := make(chan error, 2)
	go func() { done <- h.mgr.UpdateLine(ctx, lineID, 2) }()
	if q := <-entered; q != 2 {
		t.Fatalf("first in flight = %d, want 2", q)
	}
	go func() { done <- h.mgr.UpdateLine(ctx, lineID, 3) }()
	if q := <-entered; q != 3 {
		t.Fatalf("second in flight = %d, want 3", q)
	}

	if !h.mgr.IsUpdating(lineID) {
		t.Error("line should be marked in flight")
	}
	if diff := cmp.Diff([]string{lineID}, h.mgr.UpdatingLines()); diff != "" {
		t.Errorf("UpdatingLines mismatch (-want +got):\n%s", diff)
	}

	close(gates[3])
	if err := <-done; err != nil {
		t.Fatalf("UpdateLine(3): %v", err)
	}
	if !h.mgr.IsUpdating(lineID) {
		t.Error("line should stay marked while the first call is outstanding")
	}
	close(gates[2])
	if err := <-done; err != nil {
		t.Fatalf("UpdateLine(2): %v", err)
	}

	if h.mgr.IsUpdating(lineID) {
		t.Error("no call in flight, line should not be marked")
	}
	return h.mgr.Cart().TotalQuantity
}

func TestOverlappingMutationsLastResolvedWins(t *testing.T) {
	// The call issued first resolves last, so its stale quantity wins.
	if got := overlappingUpdates(t, OrderLastResolved); got != 2 {
		t.Errorf("final quantity = %d, want 2 (last response to resolve)", got)
	}
}

func TestOverlappingMutationsIssueSequence(t *testing.T) {
	if got := overlappingUpdates(t, OrderIssueSequence); got != 3 {
		t.Errorf("final quantity = %d, want 3 (last call issued)", got)
	}
}

func TestAssociation(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()
	h.tokens.set("token-a")

	if err := h.mgr.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if n := h.mock.CallCount("cartBuyerIdentityUpdate"); n != 1 {
		t.Fatalf("association calls after init = %d, want 1", n)
	}

	h.mgr.OnIdentityChange(ctx)
	if n := h.mock.CallCount("cartBuyerIdentityUpdate"); n != 1 {
		t.Errorf("same (cart, token) pair re-associated: calls = %d", n)
	}

	h.tokens.set("token-b")
	h.mgr.OnIdentityChange(ctx)
	if n := h.mock.CallCount("cartBuyerIdentityUpdate"); n != 2 {
		t.Errorf("new token should re-associate: calls = %d, want 2", n)
	}

	h.api.mu.Lock()
	buyer := h.api.buyers[h.mgr.Cart().ID]
	h.api.mu.Unlock()
	if buyer != "token-b" {
		t.Errorf("buyer token = %q, want token-b", buyer)
	}

	if err := h.mgr.AddLine(ctx, "gid://shopify/ProductVariant/1", 1); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if n := h.mock.CallCount("cartBuyerIdentityUpdate"); n != 3 {
		t.Errorf("AddLine should force re-association: calls = %d, want 3", n)
	}
}

func TestAssociationFailureIsNonFatal(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()
	h.tokens.set("token-a")
	h.mock.Handle("cartBuyerIdentityUpdate", func(ctx context.Context, req *shopify.Request) (any, error) {
		return nil, model.NewGraphQLError("Internal error")
	})

	if err := h.mgr.Initialize(ctx); err != nil {
		t.Fatalf("Initialize should not fail on association error: %v", err)
	}
	if h.mgr.Cart() == nil {
		t.Fatal("cart should be usable anonymously")
	}

	h.mgr.OnIdentityChange(ctx)
	if n := h.mock.CallCount("cartBuyerIdentityUpdate"); n != 2 {
		t.Errorf("failed association should be retried: calls = %d, want 2", n)
	}
}

func TestClearAbandonsCart(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()
	h.mgr.AddLine(ctx, "gid://shopify/ProductVariant/1", 1)
	oldID := h.mgr.Cart().ID
	h.mock.Reset()

	if err := h.mgr.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if n := h.mock.CallCount("cartLinesRemove"); n != 0 {
		t.Errorf("Clear must not empty the old cart server-side, remove calls = %d", n)
	}
	if n := h.mock.CallCount("cartCreate"); n != 1 {
		t.Errorf("cartCreate calls = %d, want 1", n)
	}
	if h.mgr.Cart().ID == oldID || h.persistedID() == oldID {
		t.Error("old cart id still active")
	}
	if h.mgr.State() != ReadyEmpty {
		t.Errorf("State() = %s, want ready-empty", h.mgr.State())
	}
}

func TestDrawer(t *testing.T) {
	h := newHarness(Options{})
	if h.mgr.IsOpen() {
		t.Error("drawer should start closed")
	}
	h.mgr.Open()
	if !h.mgr.Snapshot().IsOpen {
		t.Error("Open() did not open the drawer")
	}
	h.mgr.Close()
	if h.mgr.IsOpen() {
		t.Error("Close() did not close the drawer")
	}
}

func TestSetLines(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()

	err := h.mgr.SetLines(ctx, []shopify.CartLineInput{
		{MerchandiseID: "v1", Quantity: 1},
		{MerchandiseID: "v2", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("SetLines (create): %v", err)
	}
	if n := h.mock.CallCount(""); n != 1 {
		t.Errorf("seeding a new cart should take one call, got %d", n)
	}
	h.mock.Reset()

	err = h.mgr.SetLines(ctx, []shopify.CartLineInput{
		{MerchandiseID: "v2", Quantity: 5},
		{MerchandiseID: "v3", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("SetLines (reconcile): %v", err)
	}

	var ops []string
	for _, c := range h.mock.Calls() {
		ops = append(ops, shopify.OperationName(c.Query))
	}
	if diff := cmp.Diff([]string{"cartLinesRemove", "cartLinesUpdate", "cartLinesAdd"}, ops); diff != "" {
		t.Errorf("operation order mismatch (-want +got):\n%s", diff)
	}

	got := map[string]int{}
	for _, l := range h.mgr.Cart().LineItems() {
		got[l.Merchandise.ID] = l.Quantity
	}
	if diff := cmp.Diff(map[string]int{"v2": 5, "v3": 1}, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	h.mock.Reset()
	if err := h.mgr.SetLines(ctx, []shopify.CartLineInput{{MerchandiseID: "v2", Quantity: 5}, {MerchandiseID: "v3", Quantity: 1}}); err != nil {
		t.Fatalf("SetLines (noop): %v", err)
	}
	if n := h.mock.CallCount(""); n != 0 {
		t.Errorf("unchanged lines should not call the gateway, got %d", n)
	}
}

func TestCheckoutURL(t *testing.T) {
	h := newHarness(Options{})
	ctx := context.Background()

	if _, err := h.mgr.CheckoutURL(ctx); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound without a cart", err)
	}

	h.mgr.Initialize(ctx)
	base := h.mgr.Cart().CheckoutURL

	got, err := h.mgr.CheckoutURL(ctx)
	if err != nil || got != base {
		t.Errorf("anonymous CheckoutURL() = (%q, %v), want %q", got, err, base)
	}

	h.tokens.set("tok en")
	got, err = h.mgr.CheckoutURL(ctx)
	if err != nil {
		t.Fatalf("CheckoutURL: %v", err)
	}
	if want := base + "?customer_access_token=tok+en"; got != want {
		t.Errorf("CheckoutURL() = %q, want %q", got, want)
	}
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		in      string
		want    Ordering
		wantErr bool
	}{
		{"", OrderLastResolved, false},
		{"last-resolved", OrderLastResolved, false},
		{"Issue-Sequence", OrderIssueSequence, false},
		{"fifo", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseOrdering(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseOrdering(%q) = (%v, %v)", tc.in, got, err)
		}
	}
}
