package shopify

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
)

// Storefront wraps a Gateway with one typed method per GraphQL operation.
// Queries return (nil, nil) when the requested root object is null; callers
// decide whether that is a not-found or a validation error.
type Storefront struct {
	gw Gateway
}

// NewStorefront creates typed operations over gw.
func NewStorefront(gw Gateway) *Storefront {
	return &Storefront{gw: gw}
}

// firstUserError converts the first user error, if any, into model.APIError.
func firstUserError(errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	return model.NewUserError(errs[0].Message, errs[0].Field)
}

// === Catalog ===

// ProductsParams selects a page of products.
type ProductsParams struct {
	First int
	After string
	Query string
}

func (p ProductsParams) variables() map[string]any {
	v := map[string]any{"first": p.First}
	if p.After != "" {
		v["after"] = p.After
	}
	if p.Query != "" {
		v["query"] = p.Query
	}
	return v
}

// Products lists products.
func (s *Storefront) Products(ctx context.Context, locale string, p ProductsParams) (*Connection[Product], error) {
	var data struct {
		Products *Connection[Product] `json:"products"`
	}
	req := &Request{Query: queryProducts, Variables: p.variables(), Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Products, nil
}

// ProductByHandle fetches a product by its URL handle.
func (s *Storefront) ProductByHandle(ctx context.Context, locale, handle string) (*Product, error) {
	var data struct {
		Product *Product `json:"productByHandle"`
	}
	req := &Request{Query: queryProductByHandle, Variables: map[string]any{"handle": handle}, Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Product, nil
}

// ProductByID fetches a product by its global id.
func (s *Storefront) ProductByID(ctx context.Context, locale, id string) (*Product, error) {
	var data struct {
		Product *Product `json:"product"`
	}
	req := &Request{Query: queryProductByID, Variables: map[string]any{"id": id}, Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Product, nil
}

// PageParams selects a page of a connection.
type PageParams struct {
	First int
	After string
}

func (p PageParams) variables() map[string]any {
	v := map[string]any{"first": p.First}
	if p.After != "" {
		v["after"] = p.After
	}
	return v
}

// Collections lists collections with a small product preview each.
func (s *Storefront) Collections(ctx context.Context, locale string, p PageParams) (*Connection[Collection], error) {
	var data struct {
		Collections *Connection[Collection] `json:"collections"`
	}
	req := &Request{Query: queryCollections, Variables: p.variables(), Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Collections, nil
}

// CollectionByHandle fetches a collection and a page of its products.
func (s *Storefront) CollectionByHandle(ctx context.Context, locale, handle string, p PageParams) (*Collection, error) {
	var data struct {
		Collection *Collection `json:"collectionByHandle"`
	}
	vars := p.variables()
	vars["handle"] = handle
	req := &Request{Query: queryCollectionByHandle, Variables: vars, Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Collection, nil
}

// CollectionByID fetches a collection by global id and a page of its products.
func (s *Storefront) CollectionByID(ctx context.Context, locale, id string, p PageParams) (*Collection, error) {
	var data struct {
		Collection *Collection `json:"collection"`
	}
	vars := p.variables()
	vars["id"] = id
	req := &Request{Query: queryCollectionByID, Variables: vars, Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Collection, nil
}

// === Content ===

// Blogs lists blogs.
func (s *Storefront) Blogs(ctx context.Context, locale string, p PageParams) (*Connection[Blog], error) {
	var data struct {
		Blogs *Connection[Blog] `json:"blogs"`
	}
	req := &Request{Query: queryBlogs, Variables: p.variables(), Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Blogs, nil
}

// BlogByHandle fetches a blog and a page of its articles.
func (s *Storefront) BlogByHandle(ctx context.Context, locale, handle string, p PageParams) (*Blog, error) {
	var data struct {
		Blog *Blog `json:"blogByHandle"`
	}
	vars := p.variables()
	vars["handle"] = handle
	req := &Request{Query: queryBlogByHandle, Variables: vars, Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Blog, nil
}

// Articles lists articles across blogs, optionally filtered by a search query.
func (s *Storefront) Articles(ctx context.Context, locale string, p ProductsParams) (*Connection[Article], error) {
	var data struct {
		Articles *Connection[Article] `json:"articles"`
	}
	req := &Request{Query: queryArticles, Variables: p.variables(), Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Articles, nil
}

// ArticleByHandle fetches one article of a blog.
func (s *Storefront) ArticleByHandle(ctx context.Context, locale, blogHandle, articleHandle string) (*Article, error) {
	var data struct {
		Blog *struct {
			Article *Article `json:"articleByHandle"`
		} `json:"blogByHandle"`
	}
	req := &Request{
		Query:     queryArticleByHandle,
		Variables: map[string]any{"blogHandle": blogHandle, "articleHandle": articleHandle},
		Locale:    locale,
	}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	if data.Blog == nil {
		return nil, nil
	}
	return data.Blog.Article, nil
}

// ArticleByID fetches an article by global id.
func (s *Storefront) ArticleByID(ctx context.Context, locale, id string) (*Article, error) {
	var data struct {
		Article *Article `json:"article"`
	}
	req := &Request{Query: queryArticleByID, Variables: map[string]any{"id": id}, Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Article, nil
}

// ArticleTags fetches one page of article tag lists.
func (s *Storefront) ArticleTags(ctx context.Context, locale string, p PageParams) (*Connection[Article], error) {
	var data struct {
		Articles *Connection[Article] `json:"articles"`
	}
	req := &Request{Query: queryArticleTags, Variables: p.variables(), Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Articles, nil
}

// Page fetches an online store page.
func (s *Storefront) Page(ctx context.Context, locale, handle string) (*Page, error) {
	var data struct {
		Page *Page `json:"page"`
	}
	req := &Request{Query: queryPageByHandle, Variables: map[string]any{"handle": handle}, Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Page, nil
}

// Menu fetches a navigation menu.
func (s *Storefront) Menu(ctx context.Context, locale, handle string) (*Menu, error) {
	var data struct {
		Menu *Menu `json:"menu"`
	}
	req := &Request{Query: queryMenuByHandle, Variables: map[string]any{"handle": handle}, Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Menu, nil
}

// === Customer ===

// CreateCustomerAccessToken exchanges credentials for a session token.
func (s *Storefront) CreateCustomerAccessToken(ctx context.Context, email, password string) (*CustomerAccessToken, error) {
	var data struct {
		Payload struct {
			Token      *CustomerAccessToken `json:"customerAccessToken"`
			UserErrors []UserError          `json:"customerUserErrors"`
		} `json:"customerAccessTokenCreate"`
	}
	req := &Request{
		Query: mutationCustomerAccessTokenCreate,
		Variables: map[string]any{
			"input": map[string]any{"email": email, "password": password},
		},
	}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	if err := firstUserError(data.Payload.UserErrors); err != nil {
		return nil, err
	}
	if data.Payload.Token == nil {
		return nil, errors.New("failed to create access token")
	}
	return data.Payload.Token, nil
}

// CreateCustomer registers a new customer account.
func (s *Storefront) CreateCustomer(ctx context.Context, input CustomerCreateInput) (*Customer, error) {
	var data struct {
		Payload struct {
			Customer   *Customer   `json:"customer"`
			UserErrors []UserError `json:"customerUserErrors"`
		} `json:"customerCreate"`
	}
	req := &Request{Query: mutationCustomerCreate, Variables: map[string]any{"input": input}}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	if err := firstUserError(data.Payload.UserErrors); err != nil {
		return nil, err
	}
	if data.Payload.Customer == nil {
		return nil, errors.New("failed to create customer")
	}
	return data.Payload.Customer, nil
}

// Customer fetches the customer a token belongs to. A rejected token yields
// (nil, nil).
func (s *Storefront) Customer(ctx context.Context, accessToken string) (*Customer, error) {
	var data struct {
		Customer *Customer `json:"customer"`
	}
	req := &Request{Query: queryCustomer, Variables: map[string]any{"customerAccessToken": accessToken}}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Customer, nil
}

// RenewCustomerAccessToken extends a token's lifetime. The returned token may
// differ from the one passed in.
func (s *Storefront) RenewCustomerAccessToken(ctx context.Context, accessToken string) (*CustomerAccessToken, error) {
	var data struct {
		Payload struct {
			Token      *CustomerAccessToken `json:"customerAccessToken"`
			UserErrors []UserError          `json:"userErrors"`
		} `json:"customerAccessTokenRenew"`
	}
	req := &Request{Query: mutationCustomerAccessTokenRenew, Variables: map[string]any{"customerAccessToken": accessToken}}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	if err := firstUserError(data.Payload.UserErrors); err != nil {
		return nil, err
	}
	if data.Payload.Token == nil {
		return nil, errors.New("failed to renew access token")
	}
	return data.Payload.Token, nil
}

// DeleteCustomerAccessToken invalidates a token server-side.
func (s *Storefront) DeleteCustomerAccessToken(ctx context.Context, accessToken string) error {
	var data struct {
		Payload struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"customerAccessTokenDelete"`
	}
	req := &Request{Query: mutationCustomerAccessTokenDelete, Variables: map[string]any{"customerAccessToken": accessToken}}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return err
	}
	return firstUserError(data.Payload.UserErrors)
}

// CustomerOrders fetches a page of the customer's orders, newest first.
// A rejected token yields (nil, nil).
func (s *Storefront) CustomerOrders(ctx context.Context, locale, accessToken string, p PageParams) (*Connection[Order], error) {
	var data struct {
		Customer *struct {
			ID     string             `json:"id"`
			Orders *Connection[Order] `json:"orders"`
		} `json:"customer"`
	}
	vars := p.variables()
	vars["customerAccessToken"] = accessToken
	req := &Request{Query: queryCustomerOrders, Variables: vars, Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	if data.Customer == nil {
		return nil, nil
	}
	return data.Customer.Orders, nil
}

// CustomerOrder fetches a single order of the customer.
func (s *Storefront) CustomerOrder(ctx context.Context, locale, accessToken, orderID string) (*Order, error) {
	var data struct {
		Customer *struct {
			Order *Order `json:"order"`
		} `json:"customer"`
	}
	req := &Request{
		Query:     queryCustomerOrder,
		Variables: map[string]any{"customerAccessToken": accessToken, "orderId": orderID},
		Locale:    locale,
	}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	if data.Customer == nil {
		return nil, nil
	}
	return data.Customer.Order, nil
}

// === Cart ===

// cartPayload is the common shape of every cart mutation payload.
type cartPayload struct {
	Cart       *Cart       `json:"cart"`
	UserErrors []UserError `json:"userErrors"`
}

func (s *Storefront) cartMutation(ctx context.Context, root string, req *Request) (*Cart, error) {
	var data map[string]cartPayload
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	payload, ok := data[root]
	if !ok {
		return nil, fmt.Errorf("%s: payload missing from response", root)
	}
	if err := firstUserError(payload.UserErrors); err != nil {
		return nil, err
	}
	return payload.Cart, nil
}

// CreateCart creates a cart, optionally with initial lines.
func (s *Storefront) CreateCart(ctx context.Context, locale string, lines []CartLineInput) (*Cart, error) {
	if lines == nil {
		lines = []CartLineInput{}
	}
	req := &Request{
		Query:     mutationCartCreate,
		Variables: map[string]any{"input": map[string]any{"lines": lines}},
		Locale:    locale,
	}
	return s.cartMutation(ctx, "cartCreate", req)
}

// Cart fetches a cart by id. An unknown or expired id yields (nil, nil).
func (s *Storefront) Cart(ctx context.Context, locale, cartID string) (*Cart, error) {
	var data struct {
		Cart *Cart `json:"cart"`
	}
	req := &Request{Query: queryCart, Variables: map[string]any{"cartId": cartID}, Locale: locale}
	if err := s.gw.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.Cart, nil
}

// AddCartLines appends lines to a cart.
func (s *Storefront) AddCartLines(ctx context.Context, locale, cartID string, lines []CartLineInput) (*Cart, error) {
	req := &Request{
		Query:     mutationCartLinesAdd,
		Variables: map[string]any{"cartId": cartID, "lines": lines},
		Locale:    locale,
	}
	return s.cartMutation(ctx, "cartLinesAdd", req)
}

// UpdateCartLines sets line quantities.
func (s *Storefront) UpdateCartLines(ctx context.Context, locale, cartID string, lines []CartLineUpdateInput) (*Cart, error) {
	req := &Request{
		Query:     mutationCartLinesUpdate,
		Variables: map[string]any{"cartId": cartID, "lines": lines},
		Locale:    locale,
	}
	return s.cartMutation(ctx, "cartLinesUpdate", req)
}

// RemoveCartLines deletes lines by id.
func (s *Storefront) RemoveCartLines(ctx context.Context, locale, cartID string, lineIDs []string) (*Cart, error) {
	req := &Request{
		Query:     mutationCartLinesRemove,
		Variables: map[string]any{"cartId": cartID, "lineIds": lineIDs},
		Locale:    locale,
	}
	return s.cartMutation(ctx, "cartLinesRemove", req)
}

// UpdateCartBuyerIdentity associates a cart with a signed-in customer.
func (s *Storefront) UpdateCartBuyerIdentity(ctx context.Context, locale, cartID, customerAccessToken string) (*Cart, error) {
	req := &Request{
		Query: mutationCartBuyerIdentityUpdate,
		Variables: map[string]any{
			"cartId":        cartID,
			"buyerIdentity": map[string]any{"customerAccessToken": customerAccessToken},
		},
		Locale: locale,
	}
	return s.cartMutation(ctx, "cartBuyerIdentityUpdate", req)
}
