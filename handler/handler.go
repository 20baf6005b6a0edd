package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"minishop/logx"
	"minishop/service"
	"minishop/session"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Handler is the HTTP layer that talks to service.Service
type Handler struct {
	svc      service.ServiceInterface
	sessions session.Store
	log      zerolog.Logger
}

// NewHandler returns a Handler instance
func NewHandler(s service.ServiceInterface, sessions session.Store) *Handler {
	return &Handler{svc: s, sessions: sessions, log: logx.Component("http")}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Sessions
	r.HandleFunc("/sessions", h.Login).Methods("POST")
	r.HandleFunc("/sessions", h.authed(h.Logout)).Methods("DELETE")

	// Products
	r.HandleFunc("/products/list", h.ListProducts).Methods("GET")

	// Cart
	r.HandleFunc("/cart/list", h.authed(h.ListCart)).Methods("GET")
	r.HandleFunc("/cart/add", h.authed(h.AddToCart)).Methods("POST")
	r.HandleFunc("/cart/remove", h.authed(h.RemoveLine)).Methods("POST")
	r.HandleFunc("/cart/quantity", h.authed(h.SetQuantity)).Methods("POST")
	r.HandleFunc("/cart/clear", h.authed(h.Clear)).Methods("POST")

	// Checkout
	r.HandleFunc("/checkout/quote", h.authed(h.Quote)).Methods("POST")
	r.HandleFunc("/checkout/all", h.authed(h.PurchaseAll)).Methods("POST")
	r.HandleFunc("/checkout/selected", h.authed(h.PurchaseSelected)).Methods("POST")

	// Account
	r.HandleFunc("/account", h.authed(h.Account)).Methods("GET")
	r.HandleFunc("/account/charge", h.authed(h.Charge)).Methods("POST")
}

// --- request / response shapes ---
type loginReq struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

// cartLineReq names a line by product id or by its number in the last listing.
type cartLineReq struct {
	ProductID int64 `json:"product_id,omitempty"`
	No        int   `json:"no,omitempty"`
	Quantity  int   `json:"quantity,omitempty"` // ignored by remove
}

type checkoutReq struct {
	ProductIDs    []int64 `json:"product_ids,omitempty"`
	Nos           []int   `json:"nos,omitempty"`
	Confirm       bool    `json:"confirm"`
	ExpectedTotal *int64  `json:"expected_total,omitempty"`
}

type chargeReq struct {
	Amount int64 `json:"amount"`
}

type errorResp struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	Shortfall int64  `json:"shortfall,omitempty"`
	State     string `json:"state,omitempty"`
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResp{Error: http.StatusText(code), Message: msg})
}

// statusFor maps a service error kind to its HTTP status.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindEmptyPurchase:
		return http.StatusUnprocessableEntity
	case service.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case service.KindLineNotInCart, service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidQuantity:
		return http.StatusBadRequest
	case service.KindUserCancelled:
		return http.StatusConflict
	case service.KindPersistenceFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceErr(w http.ResponseWriter, err error) {
	var e *service.Error
	if !errors.As(err, &e) {
		h.log.Error().Err(err).Msg("unexpected error")
		writeErr(w, http.StatusInternalServerError, "internal server error")
		return
	}
	resp := errorResp{
		Error:     e.Kind.String(),
		Message:   e.Message,
		ProductID: e.ProductID,
		Shortfall: e.Shortfall,
	}
	if e.State != service.StateIdle {
		resp.State = e.State.String()
	}
	if e.Kind == service.KindPersistenceFailure {
		h.log.Error().Err(e.Err).Msg(e.Message)
	}
	writeJSON(w, statusFor(e.Kind), resp)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// authed loads the bearer session, runs next and saves the session again so
// a new cart listing's numbering is kept for the following request.
func (h *Handler) authed(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeErr(w, http.StatusUnauthorized, "bearer token required")
			return
		}
		sess, err := h.sessions.Load(r.Context(), token)
		if errors.Is(err, session.ErrNotFound) {
			writeErr(w, http.StatusUnauthorized, "session expired")
			return
		}
		if err != nil {
			h.log.Error().Err(err).Msg("failed to load session")
			writeErr(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}

		next(w, r, sess)

		if r.Method == http.MethodDelete {
			return
		}
		if err := h.sessions.Save(context.WithoutCancel(r.Context()), sess); err != nil {
			h.log.Warn().Err(err).Str("token", sess.Token).Msg("failed to save session")
		}
	}
}

// resolve turns a cartLineReq into a product id.
func (h *Handler) resolve(ctx context.Context, sess *session.Session, req cartLineReq) (int64, error) {
	if req.No > 0 {
		return h.svc.ResolveDisplayNumber(ctx, sess, req.No)
	}
	return req.ProductID, nil
}

// --- Handler ---

// Login handles POST /sessions
// body: { "login_id": "...", "password": "..." }
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decode(w, r, &req) {
		return
	}
	if req.LoginID == "" {
		writeErr(w, http.StatusBadRequest, "login_id is required")
		return
	}
	sess, err := h.svc.Login(r.Context(), req.LoginID, req.Password)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.log.Error().Err(err).Msg("failed to save session")
		writeErr(w, http.StatusServiceUnavailable, "session store unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":       sess.Token,
		"customer_id": sess.CustomerID,
		"nickname":    sess.NickName,
	})
}

// Logout handles DELETE /sessions
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := h.sessions.Delete(r.Context(), sess.Token); err != nil {
		h.log.Error().Err(err).Msg("failed to delete session")
		writeErr(w, http.StatusServiceUnavailable, "session store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// ListProducts handles GET /products/list
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// ListCart handles GET /cart/list
func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	l, err := h.svc.ListCart(r.Context(), sess)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// AddToCart handles POST /cart/add
// body: { "product_id": 1, "quantity": 2 }
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req cartLineReq
	if !decode(w, r, &req) {
		return
	}
	if req.ProductID == 0 {
		writeErr(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if err := h.svc.AddToCart(r.Context(), sess, req.ProductID, req.Quantity); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

// RemoveLine handles POST /cart/remove
// body: { "product_id": 1 } or { "no": 2 }
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req cartLineReq
	if !decode(w, r, &req) {
		return
	}
	productID, err := h.resolve(r.Context(), sess, req)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	n, err := h.svc.RemoveLine(r.Context(), sess, productID)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// SetQuantity handles POST /cart/quantity
// body: { "product_id": 1, "quantity": 3 } or { "no": 2, "quantity": 3 }
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req cartLineReq
	if !decode(w, r, &req) {
		return
	}
	productID, err := h.resolve(r.Context(), sess, req)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	n, err := h.svc.SetQuantity(r.Context(), sess, productID, req.Quantity)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// Clear handles POST /cart/clear
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	n, err := h.svc.Clear(r.Context(), sess)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// selection resolves the product ids and display numbers of a checkout request.
func (h *Handler) selection(ctx context.Context, sess *session.Session, req checkoutReq) ([]int64, error) {
	ids := append([]int64(nil), req.ProductIDs...)
	for _, no := range req.Nos {
		id, err := h.svc.ResolveDisplayNumber(ctx, sess, no)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Quote handles POST /checkout/quote
// body: {} for the whole cart, or { "product_ids": [1, 2] }
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req checkoutReq
	if !decode(w, r, &req) {
		return
	}
	ids, err := h.selection(r.Context(), sess, req)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	q, err := h.svc.Quote(r.Context(), sess, ids)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// requestConfirmer accepts a quote only when the client confirmed and the
// total it saw is still the total.
type requestConfirmer struct {
	confirm       bool
	expectedTotal *int64
}

func (c requestConfirmer) Confirm(_ context.Context, q service.Quote) (bool, error) {
	return c.confirm && c.expectedTotal != nil && *c.expectedTotal == q.Total, nil
}

// PurchaseAll handles POST /checkout/all
// body: { "confirm": true, "expected_total": 7000 }
func (h *Handler) PurchaseAll(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req checkoutReq
	if !decode(w, r, &req) {
		return
	}
	receipt, err := h.svc.PurchaseAll(r.Context(), sess, requestConfirmer{req.Confirm, req.ExpectedTotal})
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// PurchaseSelected handles POST /checkout/selected
// body: { "product_ids": [1], "confirm": true, "expected_total": 2000 }
func (h *Handler) PurchaseSelected(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req checkoutReq
	if !decode(w, r, &req) {
		return
	}
	ids, err := h.selection(r.Context(), sess, req)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	receipt, err := h.svc.PurchaseSelected(r.Context(), sess, ids, requestConfirmer{req.Confirm, req.ExpectedTotal})
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// Account handles GET /account
func (h *Handler) Account(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	a, err := h.svc.Account(r.Context(), sess)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Charge handles POST /account/charge
// body: { "amount": 10000 }
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req chargeReq
	if !decode(w, r, &req) {
		return
	}
	a, err := h.svc.Charge(r.Context(), sess, req.Amount)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
