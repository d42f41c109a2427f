package shopify

import (
	"storefront/internal/model"
)

// === Generic Connection Types ===

// Edge is one element of a Relay-style connection.
type Edge[T any] struct {
	Cursor string `json:"cursor,omitempty"`
	Node   T      `json:"node"`
}

// Connection is a Relay-style paginated list.
type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// Nodes returns the nodes in edge order.
func (c Connection[T]) Nodes() []T {
	nodes := make([]T, 0, len(c.Edges))
	for _, e := range c.Edges {
		nodes = append(nodes, e.Node)
	}
	return nodes
}

// PageInfo carries cursor pagination state.
type PageInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
}

// === Shared Types ===

// Money is a MoneyV2 value: decimal string amount plus ISO currency code.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// Parse converts the wire value to model.Money.
func (m Money) Parse() (model.Money, error) {
	return model.ParseMoney(m.Amount, m.CurrencyCode)
}

// Image is a storefront image reference.
type Image struct {
	URL     string  `json:"url"`
	AltText *string `json:"altText"`
	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
}

// UserError is a structured validation error returned by mutations.
// customerUserErrors additionally carry a code.
type UserError struct {
	Code    string   `json:"code,omitempty"`
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
}

// === Catalog ===

// PriceRange is the min/max variant price of a product.
type PriceRange struct {
	MinVariantPrice Money  `json:"minVariantPrice"`
	MaxVariantPrice *Money `json:"maxVariantPrice,omitempty"`
}

// ProductVariant is a purchasable unit (merchandise).
type ProductVariant struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Price             Money  `json:"price"`
	AvailableForSale  bool   `json:"availableForSale"`
	QuantityAvailable *int   `json:"quantityAvailable,omitempty"`
}

// Product is a catalog product.
type Product struct {
	ID               string                      `json:"id"`
	Title            string                      `json:"title"`
	Description      string                      `json:"description"`
	Handle           string                      `json:"handle"`
	AvailableForSale bool                        `json:"availableForSale"`
	PriceRange       PriceRange                  `json:"priceRange"`
	Images           Connection[Image]           `json:"images"`
	Variants         *Connection[ProductVariant] `json:"variants,omitempty"`
	Tags             []string                    `json:"tags,omitempty"`
}

// Collection is a product collection. Products is only populated by the
// queries that select it.
type Collection struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Handle      string               `json:"handle"`
	Image       *Image               `json:"image"`
	Products    *Connection[Product] `json:"products,omitempty"`
}

// === Content ===

// BlogRef identifies the blog an article belongs to.
type BlogRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// Blog is a blog with an optional page of articles.
type Blog struct {
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Handle   string               `json:"handle"`
	Articles *Connection[Article] `json:"articles,omitempty"`
}

// Author is an article author.
type Author struct {
	Name string `json:"name"`
}

// Article is a blog article.
type Article struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Handle      string   `json:"handle"`
	Excerpt     *string  `json:"excerpt"`
	ExcerptHTML *string  `json:"excerptHtml,omitempty"`
	Content     *string  `json:"content,omitempty"`
	ContentHTML *string  `json:"contentHtml,omitempty"`
	PublishedAt string   `json:"publishedAt"`
	Author      Author   `json:"author"`
	Image       *Image   `json:"image"`
	Tags        []string `json:"tags"`
	Blog        *BlogRef `json:"blog,omitempty"`
}

// Page is an online store page.
type Page struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	BodySummary string `json:"bodySummary"`
}

// Menu is a navigation menu.
type Menu struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Items []MenuItem `json:"items"`
}

// MenuItem is one navigation entry; Items nests one level.
type MenuItem struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	URL   string     `json:"url"`
	Type  string     `json:"type"`
	Items []MenuItem `json:"items,omitempty"`
}

// === Customer ===

// Customer is the signed-in customer's identity record.
type Customer struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	DisplayName string  `json:"displayName"`
	Phone       *string `json:"phone,omitempty"`
}

// CustomerAccessToken is a bearer token and its RFC 3339 expiry.
type CustomerAccessToken struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
}

// CustomerCreateInput is the customerCreate mutation input.
type CustomerCreateInput struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	AcceptsMarketing bool   `json:"acceptsMarketing"`
}

// MailingAddress is an order shipping address.
type MailingAddress struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Address1  *string `json:"address1"`
	Address2  *string `json:"address2"`
	City      *string `json:"city"`
	Province  *string `json:"province"`
	Country   *string `json:"country"`
	Zip       *string `json:"zip"`
}

// OrderLineItem is one purchased line of an order.
type OrderLineItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Variant  *struct {
		Title string `json:"title"`
		Price Money  `json:"price"`
		Image *Image `json:"image"`
	} `json:"variant"`
}

// Order is a past customer order.
type Order struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	OrderNumber        int                       `json:"orderNumber"`
	ProcessedAt        string                    `json:"processedAt"`
	FinancialStatus    *string                   `json:"financialStatus"`
	FulfillmentStatus  string                    `json:"fulfillmentStatus"`
	TotalPrice         Money                     `json:"totalPrice"`
	SubtotalPrice      *Money                    `json:"subtotalPrice"`
	TotalShippingPrice Money                     `json:"totalShippingPrice"`
	TotalTax           *Money                    `json:"totalTax"`
	LineItems          Connection[OrderLineItem] `json:"lineItems"`
	ShippingAddress    *MailingAddress           `json:"shippingAddress"`
}

// === Cart ===

// Cart is a complete cart snapshot. Every cart mutation returns one.
type Cart struct {
	ID            string               `json:"id"`
	CheckoutURL   string               `json:"checkoutUrl"`
	TotalQuantity int                  `json:"totalQuantity"`
	Cost          CartCost             `json:"cost"`
	Lines         Connection[CartLine] `json:"lines"`
}

// CartCost holds the aggregate cart amounts. Tax may be absent.
type CartCost struct {
	TotalAmount    Money  `json:"totalAmount"`
	SubtotalAmount Money  `json:"subtotalAmount"`
	TotalTaxAmount *Money `json:"totalTaxAmount,omitempty"`
}

// CartLine is one row of a cart.
type CartLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Cost     struct {
		TotalAmount Money `json:"totalAmount"`
	} `json:"cost"`
	Merchandise CartMerchandise `json:"merchandise"`
}

// CartMerchandise is the product variant a line references.
type CartMerchandise struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	PriceV2 Money       `json:"priceV2"`
	Product CartProduct `json:"product"`
}

// CartProduct is the product summary embedded in a cart line.
type CartProduct struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Handle        string `json:"handle"`
	FeaturedImage *Image `json:"featuredImage"`
}

// LineItems returns the cart lines in order.
func (c *Cart) LineItems() []CartLine {
	if c == nil {
		return nil
	}
	return c.Lines.Nodes()
}

// IsEmpty reports whether the cart has no lines.
// An empty cart still exists server-side and keeps its checkout URL.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines.Edges) == 0
}

// CartLineInput adds merchandise to a cart.
type CartLineInput struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

// CartLineUpdateInput changes the quantity of an existing line.
type CartLineUpdateInput struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}
