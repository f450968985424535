package httpserver

import (
	"context"
	"errors"
	"time"

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
)

type cartService interface {
	Create(ctx context.Context, in cartsvc.CreateInput) (*cart.Cart, error)
	Get(ctx context.Context, cartID string) (*cart.Cart, error)
	Snapshot(ctx context.Context, cartID string) (domain.CartSnapshot, error)
	Evict(cartID string)
}

type referenceLoader interface {
	Load(ctx context.Context) (checkout.ReferenceData, error)
}

type customerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	LookupByToken(ctx context.Context, token string) (*domain.Customer, error)
	Logout(ctx context.Context, token string) error
	AccessTTLSeconds() int
}

// Deps holds the collaborators the routes call.
type Deps struct {
	Carts         cartService
	Sessions      *checkout.Manager
	Reference     referenceLoader
	Gateway       checkout.Gateway
	Customers     customerService
	Notifications *notify.Queues
	Metrics       *metrics.Metrics

	Currency              money.Currency
	FreeShippingThreshold int64
	GeolocationTimeout    time.Duration
	AllowedOrigins        []string
}

func (d Deps) validate() error {
	switch {
	case d.Carts == nil:
		return errors.New("httpserver: cart service required")
	case d.Sessions == nil:
		return errors.New("httpserver: session manager required")
	case d.Reference == nil:
		return errors.New("httpserver: reference loader required")
	case d.Gateway == nil:
		return errors.New("httpserver: submission gateway required")
	case d.Customers == nil:
		return errors.New("httpserver: customer service required")
	case d.Notifications == nil:
		return errors.New("httpserver: notification queues required")
	}
	return nil
}

type handlers struct {
	deps   Deps
	logger zerolog.Logger
}

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, db Pinger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	h := &handlers{deps: deps, logger: logger}
	useJSONFieldNames()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestID(), requestLogger(logger), gin.Recovery(), corsMiddleware(deps.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(metricsMiddleware(deps.Metrics))
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	carts := router.Group("/carts")
	carts.POST("", h.createCart)
	carts.GET("/:cartId", h.getCart)
	carts.DELETE("/:cartId", h.clearCart)
	carts.PATCH("/:cartId/items/:itemId", h.setQuantity)
	carts.DELETE("/:cartId/items/:itemId", h.removeItem)
	carts.POST("/:cartId/coupon", h.applyCoupon)
	carts.GET("/:cartId/free-shipping", h.freeShipping)

	sessions := router.Group("/checkout/sessions")
	sessions.POST("", h.openSession)
	sessions.GET("/:id", h.getSession)
	sessions.PATCH("/:id", h.patchSession)
	sessions.POST("/:id/submit", h.submitSession)
	sessions.POST("/:id/city-selection", h.beginCitySelection)
	sessions.PATCH("/:id/city-selection", h.noteCitySelection)
	sessions.POST("/:id/city-selection/location", h.locateCitySelection)
	sessions.POST("/:id/city-selection/confirm", h.confirmCitySelection)
	sessions.DELETE("/:id/city-selection", h.cancelCitySelection)

	router.POST("/login", h.login)
	router.POST("/logout", h.logout)
	router.POST("/signup", h.signup)
	router.GET("/me", h.me)

	router.GET("/notifications", h.notifications)
	router.DELETE("/notifications/:notificationId", h.dismissNotification)

	return router, nil
}
