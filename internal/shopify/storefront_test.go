package shopify

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/model"
)

func TestCreateCustomerAccessToken(t *testing.T) {
	tests := []struct {
		name      string
		payload   map[string]any
		wantToken string
		wantMsg   string
	}{
		{
			name: "success",
			payload: map[string]any{
				"customerAccessToken": map[string]any{"accessToken": "abc", "expiresAt": "2030-01-01T00:00:00Z"},
				"customerUserErrors":  []any{},
			},
			wantToken: "abc",
		},
		{
			name: "first user error wins",
			payload: map[string]any{
				"customerAccessToken": nil,
				"customerUserErrors": []map[string]any{
					{"code": "UNIDENTIFIED_CUSTOMER", "field": []string{"input"}, "message": "Unidentified customer"},
					{"message": "second"},
				},
			},
			wantMsg: "Unidentified customer",
		},
		{
			name: "missing token",
			payload: map[string]any{
				"customerAccessToken": nil,
				"customerUserErrors":  []any{},
			},
			wantMsg: "failed to create access token",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &Mock{}
			m.Handle("customerAccessTokenCreate", func(ctx context.Context, req *Request) (any, error) {
				return map[string]any{"customerAccessTokenCreate": tc.payload}, nil
			})

			tok, err := NewStorefront(m).CreateCustomerAccessToken(context.Background(), "a@b.c", "pw")
			if tc.wantMsg != "" {
				if err == nil {
					t.Fatal("expected error")
				}
				if got := model.Message(err); got != tc.wantMsg {
					t.Errorf("message = %q, want %q", got, tc.wantMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tok.AccessToken != tc.wantToken {
				t.Errorf("AccessToken = %q, want %q", tok.AccessToken, tc.wantToken)
			}
		})
	}
}

func TestCartMutationUserError(t *testing.T) {
	m := &Mock{}
	m.Handle("cartLinesAdd", func(ctx context.Context, req *Request) (any, error) {
		return CartPayload("cartLinesAdd", nil, UserError{Field: []string{"lines", "0", "quantity"}, Message: "Merchandise is sold out"}), nil
	})

	_, err := NewStorefront(m).AddCartLines(context.Background(), "en", "gid://shopify/Cart/1", []CartLineInput{{MerchandiseID: "v1", Quantity: 1}})
	if !errors.Is(err, model.ErrUserError) {
		t.Fatalf("err = %v, want ErrUserError", err)
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Field != "quantity" {
		t.Errorf("field = %+v, want quantity", apiErr)
	}
}

func TestCartMutationPassesLocaleAndVariables(t *testing.T) {
	m := &Mock{}
	m.Handle("cartLinesRemove", func(ctx context.Context, req *Request) (any, error) {
		return CartPayload("cartLinesRemove", NewTestCart("gid://shopify/Cart/1")), nil
	})

	cart, err := NewStorefront(m).RemoveCartLines(context.Background(), "es", "gid://shopify/Cart/1", []string{"line-1"})
	if err != nil {
		t.Fatalf("RemoveCartLines: %v", err)
	}
	if !cart.IsEmpty() {
		t.Errorf("cart should be empty, has %d lines", len(cart.Lines.Edges))
	}

	calls := m.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0].Locale != "es" {
		t.Errorf("Locale = %q, want es", calls[0].Locale)
	}
	ids, _ := calls[0].Variables["lineIds"].([]string)
	if len(ids) != 1 || ids[0] != "line-1" {
		t.Errorf("lineIds = %v, want [line-1]", calls[0].Variables["lineIds"])
	}
}

func TestCartNotFound(t *testing.T) {
	m := &Mock{}
	m.Handle("getCart", func(ctx context.Context, req *Request) (any, error) {
		return `{"cart":null}`, nil
	})

	cart, err := NewStorefront(m).Cart(context.Background(), "en", "gid://shopify/Cart/expired")
	if err != nil {
		t.Fatalf("Cart: %v", err)
	}
	if cart != nil {
		t.Errorf("cart = %+v, want nil", cart)
	}
}

func TestCreateCartSendsEmptyLines(t *testing.T) {
	m := &Mock{}
	m.Handle("cartCreate", func(ctx context.Context, req *Request) (any, error) {
		return CartPayload("cartCreate", NewTestCart("gid://shopify/Cart/new")), nil
	})

	if _, err := NewStorefront(m).CreateCart(context.Background(), "en", nil); err != nil {
		t.Fatalf("CreateCart: %v", err)
	}

	input, _ := m.Calls()[0].Variables["input"].(map[string]any)
	lines, ok := input["lines"].([]CartLineInput)
	if !ok || lines == nil || len(lines) != 0 {
		t.Errorf("input.lines = %#v, want empty non-nil slice", input["lines"])
	}
}

func TestArticleByHandleMissingBlog(t *testing.T) {
	m := &Mock{}
	m.Handle("GetArticleByHandle", func(ctx context.Context, req *Request) (any, error) {
		return `{"blogByHandle":null}`, nil
	})

	a, err := NewStorefront(m).ArticleByHandle(context.Background(), "en", "news", "hello")
	if err != nil || a != nil {
		t.Errorf("ArticleByHandle = (%v, %v), want (nil, nil)", a, err)
	}
}

func TestNewTestCart(t *testing.T) {
	cart := NewTestCart("c1", CartLineInput{MerchandiseID: "v1", Quantity: 2}, CartLineInput{MerchandiseID: "v2", Quantity: 1})

	if cart.TotalQuantity != 3 {
		t.Errorf("TotalQuantity = %d, want 3", cart.TotalQuantity)
	}
	total, err := cart.Cost.TotalAmount.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if total.Cents() != 3000 {
		t.Errorf("total cents = %d, want 3000", total.Cents())
	}
	if lines := cart.LineItems(); lines[1].ID != "gid://shopify/CartLine/2" {
		t.Errorf("line id = %q", lines[1].ID)
	}
}
