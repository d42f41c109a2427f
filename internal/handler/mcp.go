// MCP transport for the storefront using the official MCP Go SDK.
// Exposes catalog search and cart operations as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/cart"
	"storefront/internal/locale"
	"storefront/internal/model"
	"storefront/internal/shopify"
	"storefront/internal/storefront"
)

// === MCP Meta Types ===
// meta carries what the cookie and Accept-Language carry over HTTP:
// - storefront_visitor cookie → meta["visitor-id"]
// - Accept-Language header → meta["locale"]

// MCPMeta represents request metadata in MCP requests.
type MCPMeta struct {
	VisitorID string `json:"visitor-id"`
	Locale    string `json:"locale,omitempty"`
}

// === MCP Tool Input/Output Types ===

// SearchProductsInput is the input schema for search_products.
type SearchProductsInput struct {
	Meta  MCPMeta `json:"meta" jsonschema:"request metadata,required"`
	Query string  `json:"query" jsonschema:"search text of at least 2 characters,required"`
	First int     `json:"first,omitempty" jsonschema:"maximum number of suggestions"`
}

// GetProductInput is the input schema for get_product.
type GetProductInput struct {
	Meta   MCPMeta `json:"meta" jsonschema:"request metadata,required"`
	Handle string  `json:"handle,omitempty" jsonschema:"product handle"`
	ID     string  `json:"id,omitempty" jsonschema:"product global ID, used when handle is empty"`
}

// CartInput is the input schema for tools that only need the visitor.
type CartInput struct {
	Meta MCPMeta `json:"meta" jsonschema:"request metadata,required"`
}

// AddToCartInput is the input schema for add_to_cart.
type AddToCartInput struct {
	Meta          MCPMeta `json:"meta" jsonschema:"request metadata,required"`
	MerchandiseID string  `json:"merchandise_id" jsonschema:"product variant global ID,required"`
	Quantity      int     `json:"quantity" jsonschema:"quantity to add,required"`
}

// UpdateCartLineInput is the input schema for update_cart_line.
type UpdateCartLineInput struct {
	Meta     MCPMeta `json:"meta" jsonschema:"request metadata,required"`
	LineID   string  `json:"line_id" jsonschema:"cart line ID,required"`
	Quantity int     `json:"quantity" jsonschema:"new quantity; zero removes the line,required"`
}

// RemoveCartLineInput is the input schema for remove_cart_line.
type RemoveCartLineInput struct {
	Meta   MCPMeta `json:"meta" jsonschema:"request metadata,required"`
	LineID string  `json:"line_id" jsonschema:"cart line ID,required"`
}

// SetCartLinesInput is the input schema for set_cart_lines.
// Full PUT semantics: lines is the complete desired cart content.
type SetCartLinesInput struct {
	Meta  MCPMeta                 `json:"meta" jsonschema:"request metadata,required"`
	Lines []shopify.CartLineInput `json:"lines" jsonschema:"complete desired lines (empty array = empty cart),required"`
}

// CheckoutURLOutput is the result of get_checkout_url.
type CheckoutURLOutput struct {
	URL string `json:"url"`
}

// NewMCPServer creates an MCP server with storefront tools registered.
// The server exposes a subset of the REST API via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront - product search and cart operations for a Shopify store. " +
				"Pass a stable visitor-id in meta so cart state carries across calls.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_products",
		Description: "Search products by title or description. Queries shorter than 2 characters return nothing.",
	}, h.mcpSearchProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_product",
		Description: "Get a product with its variants by handle or global ID.",
	}, h.mcpGetProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the visitor's cart.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add a product variant to the cart, creating the cart if needed.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_cart_line",
		Description: "Change the quantity of a cart line. Zero or less removes it.",
	}, h.mcpUpdateCartLine)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_cart_line",
		Description: "Remove a line from the cart.",
	}, h.mcpRemoveCartLine)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_cart_lines",
		Description: "Replace the cart contents. Requires the full desired line set.",
	}, h.mcpSetCartLines)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_checkout_url",
		Description: "Get the hosted checkout URL for the cart, signed in when the visitor is.",
	}, h.mcpCheckoutURL)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpSearchProducts(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchProductsInput,
) (*mcp.CallToolResult, *shopify.Connection[shopify.Product], error) {
	s, err := h.mcpSession(ctx, &input.Meta)
	if err != nil {
		return nil, nil, err
	}
	v, err := mcpView(s, &input.Meta)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	res, err := v.SearchProducts(ctx, input.Query, input.First)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, res, nil
}

func (h *Handler) mcpGetProduct(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetProductInput,
) (*mcp.CallToolResult, *shopify.Product, error) {
	s, err := h.mcpSession(ctx, &input.Meta)
	if err != nil {
		return nil, nil, err
	}
	v, err := mcpView(s, &input.Meta)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	var p *shopify.Product
	switch {
	case input.Handle != "":
		p, err = v.ProductByHandle(ctx, input.Handle)
	case input.ID != "":
		p, err = v.ProductByID(ctx, input.ID)
	default:
		return nil, nil, fmt.Errorf("handle or id is required")
	}
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, p, nil
}

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CartInput,
) (*mcp.CallToolResult, *cart.Snapshot, error) {
	s, err := h.mcpSession(ctx, &input.Meta)
	if err != nil {
		return nil, nil, err
	}
	snap := s.Cart().Snapshot()
	return nil, &snap, nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, *cart.Snapshot, error) {
	s, err := h.mcpSession(ctx, &input.Meta)
	if err != nil {
		return nil, nil, err
	}

	if err := s.Cart().AddLine(ctx, input.MerchandiseID, input.Quantity); err != nil {
		return nil, nil, h.mcpError(err)
	}
	snap := s.Cart().Snapshot()
	return nil, &snap, nil
}

func (h *Handler) mcpUpdateCartLine(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input UpdateCartLineInput,
) (*mcp.CallToolResult, *cart.Snapshot, error) {
	s, err := h.mcpSession(ctx, &input.Meta)
	if err != nil {
		return nil, nil, err
	}

	if input.LineID == "" {
		return nil, nil, fmt.Errorf("line_id is required")
	}

	if err := s.Cart().UpdateLine(ctx, input.LineID, input.Quantity); err != nil {
		return nil, nil, h.mcpError(err)
	}
	snap := s.Cart().Snapshot()
	return nil, &snap, nil
}

func (h *Handler) mcpRemoveCartLine(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RemoveCartLineInput,
) (*mcp.CallToolResult, *cart.Snapshot, error) {
	s, err := h.mcpSession(ctx, &input.Meta)
	if err != nil {
		return nil, nil, err
	}

	if input.LineID == "" {
		return nil, nil, fmt.Errorf("line_id is required")
	}

	if err := s.Cart().RemoveLine(ctx, input.LineID); err != nil {
		return nil, nil, h.mcpError(err)
	}
	snap := s.Cart().Snapshot()
	return nil, &snap, nil
}

func (h *Handler) mcpSetCartLines(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SetCartLinesInput,
) (*mcp.CallToolResult, *cart.Snapshot, error) {
	s, err := h.mcpSession(ctx, &input.Meta)
	if err != nil {
		return nil, nil, err
	}

	if err := s.Cart().SetLines(ctx, input.Lines); err != nil {
		return nil, nil, h.mcpError(err)
	}
	snap := s.Cart().Snapshot()
	return nil, &snap, nil
}

func (h *Handler) mcpCheckoutURL(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CartInput,
) (*mcp.CallToolResult, *CheckoutURLOutput, error) {
	s, err := h.mcpSession(ctx, &input.Meta)
	if err != nil {
		return nil, nil, err
	}

	u, err := s.Cart().CheckoutURL(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &CheckoutURLOutput{URL: u}, nil
}

// mcpError converts domain errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}

// mcpSession resolves and starts the session named by meta.visitor-id.
// The id must be a UUID, the same shape the visitor cookie carries.
func (h *Handler) mcpSession(ctx context.Context, meta *MCPMeta) (*storefront.Session, error) {
	if meta == nil || meta.VisitorID == "" {
		return nil, h.mcpError(model.NewValidationError("meta.visitor-id", "required in MCP requests"))
	}
	if _, err := uuid.Parse(meta.VisitorID); err != nil {
		return nil, h.mcpError(model.NewValidationError("meta.visitor-id", "must be a UUID"))
	}

	fallback := locale.Default
	if meta.Locale != "" {
		l, err := locale.Parse(meta.Locale)
		if err != nil {
			return nil, h.mcpError(model.NewValidationError("meta.locale", err.Error()))
		}
		fallback = l
	}

	s := h.sessions.Get(meta.VisitorID)
	if err := s.Start(ctx, fallback); err != nil {
		return nil, h.mcpError(err)
	}
	return s, nil
}

// mcpView applies meta.locale to the catalog view.
func mcpView(s *storefront.Session, meta *MCPMeta) (*storefront.View, error) {
	v := s.Catalog()
	if meta.Locale == "" {
		return v, nil
	}
	l, err := locale.Parse(meta.Locale)
	if err != nil {
		return nil, model.NewValidationError("meta.locale", err.Error())
	}
	return v.In(l), nil
}
