package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"marketplace-checkout/internal/cart"
	"marketplace-checkout/internal/checkout"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/metrics"
	"marketplace-checkout/internal/money"
	"marketplace-checkout/internal/notify"
	cartsvc "marketplace-checkout/internal/service/cart"
	customersvc "marketplace-checkout/internal/service/customer"
	"marketplace-checkout/internal/zone"
)

type memoryBackend struct{}

// UpdateQuantity confirms only the quantity, the rest of the line is kept.
func (memoryBackend) UpdateQuantity(_ context.Context, _ string, q int) (domain.CartItem, error) {
	return domain.CartItem{Quantity: q}, nil
}

func (memoryBackend) RemoveItem(context.Context, string) error { return nil }

func (memoryBackend) Clear(context.Context) error { return nil }

type stubCarts struct {
	mu      sync.Mutex
	snaps   map[string]domain.CartSnapshot
	carts   map[string]*cart.Cart
	queues  *notify.Queues
	evicted []string
}

func newStubCarts(queues *notify.Queues, snaps ...domain.CartSnapshot) *stubCarts {
	s := &stubCarts{snaps: map[string]domain.CartSnapshot{}, carts: map[string]*cart.Cart{}, queues: queues}
	for _, snap := range snaps {
		s.snaps[snap.ID] = snap
	}
	return s
}

func (s *stubCarts) Create(_ context.Context, in cartsvc.CreateInput) (*cart.Cart, error) {
	if in.Currency == "" {
		return nil, cartsvc.ErrCurrencyRequired
	}
	snap := domain.CartSnapshot{ID: "cart-new", Currency: in.Currency}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.ID] = snap
	c := cart.New(snap, memoryBackend{})
	s.carts[snap.ID] = c
	return c, nil
}

func (s *stubCarts) Get(_ context.Context, id string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[id]; ok {
		return c, nil
	}
	snap, ok := s.snaps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := cart.New(snap, memoryBackend{}, cart.WithNotifier(s.queues.For(id)))
	s.carts[id] = c
	return c, nil
}

func (s *stubCarts) Snapshot(_ context.Context, id string) (domain.CartSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[id]
	if !ok {
		return domain.CartSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (s *stubCarts) Evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evicted = append(s.evicted, id)
	delete(s.carts, id)
}

type stubReference struct{}

func (stubReference) Load(context.Context) (checkout.ReferenceData, error) {
	return checkout.ReferenceData{
		Countries:         []domain.Country{{ID: "MW", Name: "Malawi"}, {ID: "ZA", Name: "South Africa"}},
		PaymentGateways:   []domain.PaymentGateway{{ID: "airtel-money", DisplayName: "Airtel Money"}},
		DomesticCountryID: "MW",
		Registry:          zone.Default(),
	}, nil
}

type stubCustomers struct {
	customer *domain.Customer
	authErr  error
	meErr    error
}

func (s *stubCustomers) Signup(_ context.Context, in customersvc.SignupInput) (*domain.Customer, error) {
	return &domain.Customer{ID: "cust-new", Email: in.Email}, nil
}

func (s *stubCustomers) Authenticate(context.Context, string, string) (string, error) {
	return "access-token", s.authErr
}

func (s *stubCustomers) LookupByToken(context.Context, string) (*domain.Customer, error) {
	return s.customer, s.meErr
}

func (s *stubCustomers) Logout(context.Context, string) error { return nil }

func (s *stubCustomers) AccessTTLSeconds() int { return 3600 }

type fixture struct {
	router    *gin.Engine
	carts     *stubCarts
	sessions  *checkout.Manager
	queues    *notify.Queues
	customers *stubCustomers
	metrics   *metrics.Metrics
	submitted []checkout.Payload
	submitErr error
}

func demoCart() domain.CartSnapshot {
	return domain.CartSnapshot{
		ID:       "cart-1",
		Currency: "MWK",
		Shipping: 2500,
		Items: []domain.CartItem{
			{ID: "l1", ProductRef: "p1", Name: "Chitenje", UnitPrice: 12000, Quantity: 2, InStock: true},
			{ID: "l2", ProductRef: "p2", Name: "Basket", UnitPrice: 8000, Quantity: 1, InStock: true},
		},
		Total: 34500,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		queues:    notify.NewQueues(16),
		sessions:  checkout.NewManager(),
		customers: &stubCustomers{},
		metrics:   metrics.New(),
	}
	f.carts = newStubCarts(f.queues, demoCart())
	gateway := checkout.GatewayFunc(func(_ context.Context, p checkout.Payload) (checkout.Receipt, error) {
		if f.submitErr != nil {
			return checkout.Receipt{}, f.submitErr
		}
		f.submitted = append(f.submitted, p)
		return checkout.Receipt{OrderID: "order-1", Status: "pending"}, nil
	})
	router, err := buildRouter(zerolog.Nop(), nil, Deps{
		Carts:                 f.carts,
		Sessions:              f.sessions,
		Reference:             stubReference{},
		Gateway:               gateway,
		Customers:             f.customers,
		Notifications:         f.queues,
		Metrics:               f.metrics,
		Currency:              money.Currency{Code: "MWK", Symbol: "MK"},
		FreeShippingThreshold: 50000,
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	f.router = router
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

// sessionView is the subset of checkout.View the tests read back. Addresses
// are flat maps on the wire.
type sessionView struct {
	ID               string             `json:"id"`
	State            checkout.State     `json:"state"`
	CustomerID       string             `json:"customer_id"`
	PaymentGatewayID string             `json:"payment_gateway_id"`
	CanSubmit        bool               `json:"can_submit"`
	Notes            string             `json:"notes"`
	Billing          map[string]any     `json:"billing"`
	Shipping         map[string]any     `json:"shipping"`
	Errors           domain.FieldErrors `json:"errors"`
	GeneralErrors    []string           `json:"general_errors"`
}

type sessionErrorBody struct {
	Error   string             `json:"error"`
	Fields  domain.FieldErrors `json:"fields"`
	Session sessionView        `json:"session"`
}
