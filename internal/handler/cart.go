package handler

import (
	"log/slog"
	"net/http"

	"storefront/internal/cart"
	"storefront/internal/shopify"
)

// AddLineRequest is the body of POST /api/cart/lines.
type AddLineRequest struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

// UpdateLineRequest is the body of PATCH /api/cart/lines/{id}.
type UpdateLineRequest struct {
	Quantity int `json:"quantity"`
}

// SetLinesRequest is the body of PUT /api/cart/lines: the complete desired
// line set.
type SetLinesRequest struct {
	Lines []shopify.CartLineInput `json:"lines"`
}

// DrawerRequest is the body of POST /api/cart/drawer.
type DrawerRequest struct {
	Open bool `json:"open"`
}

// handleGetCart returns the cart snapshot.
// GET /api/cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Cart().Snapshot())
}

// handleAddLine adds merchandise to the cart.
// POST /api/cart/lines
func (h *Handler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req AddLineRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "adding cart line",
		slog.String("merchandise_id", req.MerchandiseID),
		slog.Int("quantity", req.Quantity),
	)

	if err := s.Cart().AddLine(ctx, req.MerchandiseID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Cart().Snapshot())
}

// handleSetLines replaces the cart contents with the desired line set.
// PUT /api/cart/lines
func (h *Handler) handleSetLines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req SetLinesRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "setting cart lines", slog.Int("lines", len(req.Lines)))

	if err := s.Cart().SetLines(ctx, req.Lines); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Cart().Snapshot())
}

// handleUpdateLine changes a line quantity; zero or less removes it.
// PATCH /api/cart/lines/{id}
func (h *Handler) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req UpdateLineRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	lineID := r.PathValue("id")
	h.logger.InfoContext(ctx, "updating cart line",
		slog.String("line_id", lineID),
		slog.Int("quantity", req.Quantity),
	)

	if err := s.Cart().UpdateLine(ctx, lineID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Cart().Snapshot())
}

// handleRemoveLine removes a line.
// DELETE /api/cart/lines/{id}
func (h *Handler) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := s.Cart().RemoveLine(ctx, r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Cart().Snapshot())
}

// handleClearCart abandons the cart and starts an empty one.
// POST /api/cart/clear
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := s.Cart().Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Cart().Snapshot())
}

// handleDrawer opens or closes the cart drawer.
// POST /api/cart/drawer
func (h *Handler) handleDrawer(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req DrawerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Open {
		s.Cart().Open()
	} else {
		s.Cart().Close()
	}
	h.writeJSON(w, http.StatusOK, s.Cart().Snapshot())
}

// handleCheckout redirects to the hosted checkout.
// GET /api/cart/checkout
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if s.Cart().State() == cart.ReadyEmpty {
		h.logger.InfoContext(r.Context(), "checkout requested for an empty cart")
	}

	target, err := s.Cart().CheckoutURL(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
