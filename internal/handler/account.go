package handler

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"storefront/internal/customer"
	"storefront/internal/locale"
	"storefront/internal/model"
	"storefront/internal/shopify"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	AcceptsMarketing bool   `json:"acceptsMarketing"`
}

// AccountResponse describes the customer session.
type AccountResponse struct {
	Status   string            `json:"status"`
	Customer *shopify.Customer `json:"customer"`
}

// LocaleRequest is the body of PUT /api/locale.
type LocaleRequest struct {
	Language string `json:"language"`
}

// LocaleResponse lists the current and available languages.
type LocaleResponse struct {
	Language  locale.Language `json:"language"`
	Supported []locale.Info   `json:"supported"`
}

// ContactRequest is the body of POST /api/contact.
type ContactRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Reason    string `json:"reason"`
}

// Validate checks the contact form fields.
func (c *ContactRequest) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(c.FirstName)) < 2 {
		return model.NewValidationError("firstName", "must be at least 2 characters")
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.LastName)) < 2 {
		return model.NewValidationError("lastName", "must be at least 2 characters")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil || strings.ContainsAny(c.Email, "<> ") {
		return model.NewValidationError("email", "must be a valid email address")
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.Reason)) < 10 {
		return model.NewValidationError("reason", "must be at least 10 characters")
	}
	return nil
}

func (h *Handler) account(w http.ResponseWriter, mgr *customer.Manager) {
	h.writeJSON(w, http.StatusOK, AccountResponse{
		Status:   mgr.Status().String(),
		Customer: mgr.Customer(),
	})
}

// handleLogin signs the visitor in.
// POST /api/auth/login
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if _, err := s.Login(ctx, req.Email, req.Password); err != nil {
		h.logger.InfoContext(ctx, "login failed", slog.String("error", model.Message(err)))
		h.writeError(w, err)
		return
	}
	h.account(w, s.Customer())
}

// handleRegister creates an account and signs in.
// POST /api/auth/register
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	_, err = s.Register(ctx, customer.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		AcceptsMarketing: req.AcceptsMarketing,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.account(w, s.Customer())
}

// handleLogout ends the customer session.
// POST /api/auth/logout
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := s.Logout(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.account(w, s.Customer())
}

// handleAccount returns the customer session state.
// GET /api/account
func (h *Handler) handleAccount(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.account(w, s.Customer())
}

// GET /api/account/orders
func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	p, err := pageQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	v, err := view(r, s)
	if err != nil {
		h.writeError(w, err)
		return
	}
	orders, err := v.Orders(r.Context(), p)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// GET /api/account/orders/{id}
func (h *Handler) handleOrder(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	v, err := view(r, s)
	if err != nil {
		h.writeError(w, err)
		return
	}
	order, err := v.Order(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// GET /api/locale
func (h *Handler) handleGetLocale(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, LocaleResponse{Language: s.Locale(), Supported: locale.Supported()})
}

// handleSetLocale switches the visitor's language and refetches the cart.
// PUT /api/locale
func (h *Handler) handleSetLocale(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req LocaleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	l, err := locale.Parse(req.Language)
	if err != nil {
		h.writeError(w, model.NewValidationError("language", err.Error()))
		return
	}

	if err := s.SetLocale(r.Context(), l); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, LocaleResponse{Language: s.Locale(), Supported: locale.Supported()})
}

// handleContact accepts a contact form submission. Submissions are logged.
// POST /api/contact
func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "contact form submitted",
		slog.String("email", req.Email),
		slog.String("first_name", req.FirstName),
		slog.String("last_name", req.LastName),
		slog.Int("reason_length", utf8.RuneCountInString(req.Reason)),
	)
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}
