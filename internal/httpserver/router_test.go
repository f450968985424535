package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil, requestIDHeader, "req-42")
	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		db   Pinger
		want int
	}{
		{"no db", nil, http.StatusServiceUnavailable},
		{"db down", stubPinger{err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable},
		{"db up", stubPinger{}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/readyz", readyHandler(tc.db))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/carts/cart-1", nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `checkout_http_requests_total{method="GET",route="/carts/:cartId",status="200"} 1`) {
		t.Fatalf("request counter missing from metrics output:\n%s", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/carts/cart-1", nil)
	req.Header.Set("Origin", "https://shop.example.mw")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestBuildRouterRequiresDeps(t *testing.T) {
	if _, err := buildRouter(zerolog.Nop(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}
