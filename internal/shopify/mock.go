package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"storefront/internal/model"
)

// HandlerFunc returns the "data" payload for one operation. The value is
// JSON round-tripped into the caller's output, so maps and the typed structs
// of this package both work.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

// Mock implements Gateway for testing.
// Handlers are looked up by operation name (e.g. "cartCreate"); DoFunc is
// the fallback. Calls are recorded in order.
type Mock struct {
	Handlers map[string]HandlerFunc
	DoFunc   HandlerFunc

	mu    sync.Mutex
	calls []Request
}

// Handle registers fn for an operation name.
func (m *Mock) Handle(operation string, fn HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Handlers == nil {
		m.Handlers = make(map[string]HandlerFunc)
	}
	m.Handlers[operation] = fn
}

// Do records the call and dispatches to the configured handler.
func (m *Mock) Do(ctx context.Context, req *Request, out any) error {
	op := OperationName(req.Query)

	m.mu.Lock()
	m.calls = append(m.calls, *req)
	fn := m.Handlers[op]
	m.mu.Unlock()

	if fn == nil {
		fn = m.DoFunc
	}
	if fn == nil {
		return model.NewInternalError(fmt.Errorf("mock: no handler for %s", op))
	}

	resp, err := fn(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || resp == nil {
		return nil
	}

	var raw []byte
	switch v := resp.(type) {
	case json.RawMessage:
		raw = v
	case string:
		raw = []byte(v)
	default:
		raw, err = json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("mock: marshaling %s response: %w", op, err)
		}
	}
	return json.Unmarshal(raw, out)
}

// Calls returns a copy of the recorded requests.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many calls were made to operation, or to all
// operations when operation is empty.
func (m *Mock) CallCount(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if operation == "" {
		return len(m.calls)
	}
	n := 0
	for _, c := range m.calls {
		if OperationName(c.Query) == operation {
			n++
		}
	}
	return n
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// === Fixtures ===

// NewTestCart builds a cart snapshot with one line per input. Line ids are
// "gid://shopify/CartLine/{n}" in input order and every unit costs 10.00 USD.
func NewTestCart(id string, lines ...CartLineInput) *Cart {
	cart := &Cart{
		ID:          id,
		CheckoutURL: "https://shop.example.com/cart/c/" + id,
		Lines:       Connection[CartLine]{Edges: []Edge[CartLine]{}},
	}
	total := 0
	for i, in := range lines {
		var line CartLine
		line.ID = "gid://shopify/CartLine/" + strconv.Itoa(i+1)
		line.Quantity = in.Quantity
		line.Cost.TotalAmount = Money{Amount: strconv.Itoa(10*in.Quantity) + ".00", CurrencyCode: "USD"}
		line.Merchandise = CartMerchandise{
			ID:      in.MerchandiseID,
			Title:   "Default Title",
			PriceV2: Money{Amount: "10.00", CurrencyCode: "USD"},
			Product: CartProduct{ID: "gid://shopify/Product/" + strconv.Itoa(i+1), Title: "Product", Handle: "product"},
		}
		cart.Lines.Edges = append(cart.Lines.Edges, Edge[CartLine]{Node: line})
		total += in.Quantity
	}
	cart.TotalQuantity = total
	amount := Money{Amount: strconv.Itoa(10*total) + ".00", CurrencyCode: "USD"}
	cart.Cost = CartCost{TotalAmount: amount, SubtotalAmount: amount}
	return cart
}

// CartPayload wraps a cart as the data of a cart mutation named root.
func CartPayload(root string, cart *Cart, userErrors ...UserError) map[string]any {
	if userErrors == nil {
		userErrors = []UserError{}
	}
	return map[string]any{root: map[string]any{"cart": cart, "userErrors": userErrors}}
}
