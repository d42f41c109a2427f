// Package handler provides HTTP handlers for the storefront API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/locale"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/storefront"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	sessions *storefront.Registry
	logger   *slog.Logger
}

// New creates a Handler serving visitors from the given registry.
func New(sessions *storefront.Registry, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Catalog
	mux.HandleFunc("GET /api/home", h.handleHome)
	mux.HandleFunc("GET /api/products", h.handleProducts)
	mux.HandleFunc("GET /api/products/{handle}", h.handleProduct)
	mux.HandleFunc("GET /api/search", h.handleSearch)
	mux.HandleFunc("GET /api/collections", h.handleCollections)
	mux.HandleFunc("GET /api/collections/{handle}", h.handleCollection)
	mux.HandleFunc("GET /api/blogs", h.handleBlogs)
	mux.HandleFunc("GET /api/blogs/{handle}", h.handleBlog)
	mux.HandleFunc("GET /api/blogs/{blog}/articles/{handle}", h.handleBlogArticle)
	mux.HandleFunc("GET /api/articles", h.handleArticles)
	mux.HandleFunc("GET /api/articles/tags", h.handleArticleTags)
	mux.HandleFunc("GET /api/articles/{id}", h.handleArticle)
	mux.HandleFunc("GET /api/pages/{handle}", h.handlePage)
	mux.HandleFunc("GET /api/menus/{handle}", h.handleMenu)

	// Cart
	mux.HandleFunc("GET /api/cart", h.handleGetCart)
	mux.HandleFunc("POST /api/cart/lines", h.handleAddLine)
	mux.HandleFunc("PUT /api/cart/lines", h.handleSetLines)
	mux.HandleFunc("PATCH /api/cart/lines/{id}", h.handleUpdateLine)
	mux.HandleFunc("DELETE /api/cart/lines/{id}", h.handleRemoveLine)
	mux.HandleFunc("POST /api/cart/clear", h.handleClearCart)
	mux.HandleFunc("POST /api/cart/drawer", h.handleDrawer)
	mux.HandleFunc("GET /api/cart/checkout", h.handleCheckout)

	// Customer
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.HandleFunc("GET /api/account", h.handleAccount)
	mux.HandleFunc("GET /api/account/orders", h.handleOrders)
	mux.HandleFunc("GET /api/account/orders/{id}", h.handleOrder)

	// Locale and contact
	mux.HandleFunc("GET /api/locale", h.handleGetLocale)
	mux.HandleFunc("PUT /api/locale", h.handleSetLocale)
	mux.HandleFunc("POST /api/contact", h.handleContact)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// session returns the started session of the request's visitor.
func (h *Handler) session(r *http.Request) (*storefront.Session, error) {
	id := middleware.VisitorID(r.Context())
	if id == "" {
		return nil, model.NewValidationError("visitor", "missing visitor id")
	}
	s := h.sessions.Get(id)
	if err := s.Start(r.Context(), locale.FromContext(r.Context())); err != nil {
		return nil, err
	}
	return s, nil
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Sessions: h.sessions.Len()})
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			h.logger.Warn("upstream failure", slog.String("code", apiErr.Code), slog.String("error", err.Error()))
		}
	} else {
		// Wrap unexpected errors
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Field:   apiErr.Field,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}
