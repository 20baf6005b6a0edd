package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"minishop/model"
	"minishop/service"
	"minishop/session"

	"github.com/gorilla/mux"
)

// ---- fakeService implementing service.ServiceInterface for tests ----
type fakeService struct {
	ListProductsFn     func(ctx context.Context) ([]model.Product, error)
	ListCartFn         func(ctx context.Context, sess *session.Session) (service.Listing, error)
	ResolveFn          func(ctx context.Context, sess *session.Session, n int) (int64, error)
	AddToCartFn        func(ctx context.Context, sess *session.Session, productID int64, qty int) error
	RemoveLineFn       func(ctx context.Context, sess *session.Session, productID int64) (int64, error)
	SetQuantityFn      func(ctx context.Context, sess *session.Session, productID int64, qty int) (int64, error)
	ClearFn            func(ctx context.Context, sess *session.Session) (int64, error)
	QuoteFn            func(ctx context.Context, sess *session.Session, productIDs []int64) (service.Quote, error)
	PurchaseAllFn      func(ctx context.Context, sess *session.Session, c service.Confirmer) (service.Receipt, error)
	PurchaseSelectedFn func(ctx context.Context, sess *session.Session, productIDs []int64, c service.Confirmer) (service.Receipt, error)
	LoginFn            func(ctx context.Context, loginID, password string) (*session.Session, error)
	AccountFn          func(ctx context.Context, sess *session.Session) (model.Account, error)
	ChargeFn           func(ctx context.Context, sess *session.Session, amount int64) (model.Account, error)
}

func (f *fakeService) ListProducts(ctx context.Context) ([]model.Product, error) {
	return f.ListProductsFn(ctx)
}
func (f *fakeService) ListCart(ctx context.Context, sess *session.Session) (service.Listing, error) {
	return f.ListCartFn(ctx, sess)
}
func (f *fakeService) ResolveDisplayNumber(ctx context.Context, sess *session.Session, n int) (int64, error) {
	return f.ResolveFn(ctx, sess, n)
}
func (f *fakeService) AddToCart(ctx context.Context, sess *session.Session, productID int64, qty int) error {
	return f.AddToCartFn(ctx, sess, productID, qty)
}
func (f *fakeService) RemoveLine(ctx context.Context, sess *session.Session, productID int64) (int64, error) {
	return f.RemoveLineFn(ctx, sess, productID)
}
func (f *fakeService) SetQuantity(ctx context.Context, sess *session.Session, productID int64, qty int) (int64, error) {
	return f.SetQuantityFn(ctx, sess, productID, qty)
}
func (f *fakeService) Clear(ctx context.Context, sess *session.Session) (int64, error) {
	return f.ClearFn(ctx, sess)
}
func (f *fakeService) Quote(ctx context.Context, sess *session.Session, productIDs []int64) (service.Quote, error) {
	return f.QuoteFn(ctx, sess, productIDs)
}
func (f *fakeService) PurchaseAll(ctx context.Context, sess *session.Session, c service.Confirmer) (service.Receipt, error) {
	return f.PurchaseAllFn(ctx, sess, c)
}
func (f *fakeService) PurchaseSelected(ctx context.Context, sess *session.Session, productIDs []int64, c service.Confirmer) (service.Receipt, error) {
	return f.PurchaseSelectedFn(ctx, sess, productIDs, c)
}
func (f *fakeService) Login(ctx context.Context, loginID, password string) (*session.Session, error) {
	return f.LoginFn(ctx, loginID, password)
}
func (f *fakeService) Account(ctx context.Context, sess *session.Session) (model.Account, error) {
	return f.AccountFn(ctx, sess)
}
func (f *fakeService) Charge(ctx context.Context, sess *session.Session, amount int64) (model.Account, error) {
	return f.ChargeFn(ctx, sess, amount)
}

// ---- helpers ----

func newRouter(svc *fakeService, sessions session.Store) *mux.Router {
	r := mux.NewRouter()
	NewHandler(svc, sessions).RegisterRoutes(r)
	return r
}

func loggedIn(t *testing.T, sessions session.Store) *session.Session {
	t.Helper()
	sess := session.New(1, "kim", "Kim")
	if err := sessions.Save(context.Background(), sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return sess
}

func do(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// ---- Tests ----

func TestAuthRequired(t *testing.T) {
	r := newRouter(&fakeService{}, session.NewMemoryStore())

	if rr := do(r, "GET", "/cart/list", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	if rr := do(r, "GET", "/cart/list", "nope", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", rr.Code)
	}
}

func TestLoginStoresSession(t *testing.T) {
	sessions := session.NewMemoryStore()
	svc := &fakeService{
		LoginFn: func(_ context.Context, loginID, password string) (*session.Session, error) {
			if password != "secret" {
				return nil, &service.Error{Kind: service.KindNotFound}
			}
			return session.New(3, loginID, "Kim"), nil
		},
	}
	r := newRouter(svc, sessions)

	rr := do(r, "POST", "/sessions", "", loginReq{LoginID: "kim", Password: "bad"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for bad password, got %d", rr.Code)
	}

	rr = do(r, "POST", "/sessions", "", loginReq{LoginID: "kim", Password: "secret"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := sessions.Load(context.Background(), resp.Token); err != nil {
		t.Fatalf("session not stored: %v", err)
	}

	if rr := do(r, "DELETE", "/sessions", resp.Token, nil); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on logout, got %d", rr.Code)
	}
	if _, err := sessions.Load(context.Background(), resp.Token); err == nil {
		t.Fatalf("session still present after logout")
	}
}

func TestListCartPersistsIndex(t *testing.T) {
	sessions := session.NewMemoryStore()
	sess := loggedIn(t, sessions)
	svc := &fakeService{
		ListCartFn: func(_ context.Context, s *session.Session) (service.Listing, error) {
			s.Index = model.NewDisplayIndex(s.CustomerID, []model.CartLine{{ProductID: 5}})
			return service.Listing{Index: s.Index}, nil
		},
		RemoveLineFn: func(_ context.Context, _ *session.Session, productID int64) (int64, error) {
			if productID != 5 {
				t.Fatalf("expected product 5, got %d", productID)
			}
			return 1, nil
		},
		ResolveFn: func(_ context.Context, s *session.Session, n int) (int64, error) {
			id, ok := s.Index.Lookup(n)
			if !ok {
				return 0, &service.Error{Kind: service.KindNotFound}
			}
			return id, nil
		},
	}
	r := newRouter(svc, sessions)

	if rr := do(r, "GET", "/cart/list", sess.Token, nil); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := do(r, "POST", "/cart/remove", sess.Token, cartLineReq{No: 1}); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on remove by number, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := do(r, "POST", "/cart/remove", sess.Token, cartLineReq{No: 2}); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown number, got %d", rr.Code)
	}
}

func TestCheckoutConfirmation(t *testing.T) {
	sessions := session.NewMemoryStore()
	sess := loggedIn(t, sessions)
	svc := &fakeService{
		PurchaseAllFn: func(ctx context.Context, _ *session.Session, c service.Confirmer) (service.Receipt, error) {
			ok, err := c.Confirm(ctx, service.Quote{Total: 7000})
			if err != nil || !ok {
				return service.Receipt{}, &service.Error{Kind: service.KindUserCancelled, State: service.StateAborted}
			}
			return service.Receipt{Total: 7000, State: service.StateCommitted}, nil
		},
	}
	r := newRouter(svc, sessions)

	stale := int64(6000)
	current := int64(7000)
	cases := []struct {
		name string
		req  checkoutReq
		code int
	}{
		{"no confirm", checkoutReq{ExpectedTotal: &current}, http.StatusConflict},
		{"no expected total", checkoutReq{Confirm: true}, http.StatusConflict},
		{"stale total", checkoutReq{Confirm: true, ExpectedTotal: &stale}, http.StatusConflict},
		{"confirmed", checkoutReq{Confirm: true, ExpectedTotal: &current}, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(r, "POST", "/checkout/all", sess.Token, tc.req)
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestQuoteResolvesDisplayNumbers(t *testing.T) {
	sessions := session.NewMemoryStore()
	sess := loggedIn(t, sessions)
	sess.Index = model.NewDisplayIndex(sess.CustomerID, []model.CartLine{{ProductID: 4}, {ProductID: 8}})
	if err := sessions.Save(context.Background(), sess); err != nil {
		t.Fatalf("save session: %v", err)
	}

	var quoted []int64
	svc := &fakeService{
		ResolveFn: func(_ context.Context, s *session.Session, n int) (int64, error) {
			id, ok := s.Index.Lookup(n)
			if !ok {
				return 0, &service.Error{Kind: service.KindNotFound}
			}
			return id, nil
		},
		QuoteFn: func(_ context.Context, _ *session.Session, ids []int64) (service.Quote, error) {
			quoted = ids
			if len(ids) == 0 {
				return service.Quote{Mode: service.ModeAll, Total: 9000}, nil
			}
			return service.Quote{Mode: service.ModeSelected, Total: 3000}, nil
		},
	}
	r := newRouter(svc, sessions)

	rr := do(r, "POST", "/checkout/quote", sess.Token, checkoutReq{ProductIDs: []int64{1}, Nos: []int{2}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(quoted) != 2 || quoted[0] != 1 || quoted[1] != 8 {
		t.Fatalf("expected ids [1 8], got %v", quoted)
	}
	var q service.Quote
	if err := json.NewDecoder(rr.Body).Decode(&q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Total != 3000 || q.Mode != service.ModeSelected {
		t.Fatalf("unexpected quote %+v", q)
	}

	rr = do(r, "POST", "/checkout/quote", sess.Token, checkoutReq{})
	if rr.Code != http.StatusOK || len(quoted) != 0 {
		t.Fatalf("expected whole-cart quote, got %d with ids %v", rr.Code, quoted)
	}

	rr = do(r, "POST", "/checkout/quote", sess.Token, checkoutReq{Nos: []int{3}})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown number, got %d", rr.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := map[service.Kind]int{
		service.KindEmptyPurchase:      http.StatusUnprocessableEntity,
		service.KindInsufficientFunds:  http.StatusPaymentRequired,
		service.KindLineNotInCart:      http.StatusNotFound,
		service.KindInvalidQuantity:    http.StatusBadRequest,
		service.KindUserCancelled:      http.StatusConflict,
		service.KindPersistenceFailure: http.StatusServiceUnavailable,
		service.KindNotFound:           http.StatusNotFound,
	}
	for kind, want := range cases {
		if got := statusFor(kind); got != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, got)
		}
	}
}

func TestSelectedCheckoutErrorBody(t *testing.T) {
	sessions := session.NewMemoryStore()
	sess := loggedIn(t, sessions)
	svc := &fakeService{
		PurchaseSelectedFn: func(_ context.Context, _ *session.Session, ids []int64, _ service.Confirmer) (service.Receipt, error) {
			return service.Receipt{}, &service.Error{Kind: service.KindLineNotInCart, ProductID: ids[0], State: service.StateAborted}
		},
	}
	r := newRouter(svc, sessions)

	rr := do(r, "POST", "/checkout/selected", sess.Token, checkoutReq{ProductIDs: []int64{9}})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var body errorResp
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "LineNotInCart" || body.ProductID != 9 || body.State != "Aborted" {
		t.Fatalf("unexpected body %+v", body)
	}
}
