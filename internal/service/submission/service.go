// Package submission places checkout orders. It re-validates the payload
// against the server's reference data and the confirmed cart, then stores
// the order and its order.submitted event in one transaction.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"marketplace-checkout/internal/address"
	"marketplace-checkout/internal/checkout"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/events"
)

const StatusPending = "pending"

const (
	msgCartMissing    = "Your cart could not be found."
	msgCartEmpty      = "Your cart is empty."
	msgAlreadyOrdered = "An order has already been placed for this cart."
	msgSelectCountry  = "Select a country."
	msgSelectGateway  = "Select a payment method."
	msgGatewayGone    = "This payment method is not available."
)

type cartReader interface {
	GetSnapshot(ctx context.Context, cartID string) (*domain.CartSnapshot, error)
}

type orderWriter interface {
	Create(ctx context.Context, o domain.Order, event func(domain.Order) (events.Event, error)) (*domain.Order, error)
}

type referenceLoader interface {
	Load(ctx context.Context) (checkout.ReferenceData, error)
}

// Service implements checkout.Gateway.
type Service struct {
	carts  cartReader
	orders orderWriter
	ref    referenceLoader
	logger zerolog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(carts cartReader, orders orderWriter, ref referenceLoader, opts ...Option) *Service {
	s := &Service{carts: carts, orders: orders, ref: ref, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ checkout.Gateway = (*Service)(nil)

// Submit returns *checkout.ValidationError when the payload is rejected.
// Any other error means the order was not stored.
func (s *Service) Submit(ctx context.Context, p checkout.Payload) (checkout.Receipt, error) {
	ref, err := s.ref.Load(ctx)
	if err != nil {
		return checkout.Receipt{}, fmt.Errorf("load reference data: %w", err)
	}

	errs := validate(p, ref)
	snap, err := s.carts.GetSnapshot(ctx, p.CartID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		errs.Add("cart", msgCartMissing)
	case err != nil:
		return checkout.Receipt{}, fmt.Errorf("load cart %s: %w", p.CartID, err)
	case len(snap.Items) == 0:
		errs.Add("cart", msgCartEmpty)
	}
	if !errs.Empty() {
		s.logger.Info().Str("cart_id", p.CartID).Strs("fields", errs.Fields()).Msg("submission: rejected")
		return checkout.Receipt{}, &checkout.ValidationError{Fields: errs}
	}

	o, err := s.order(p, *snap)
	if err != nil {
		return checkout.Receipt{}, err
	}
	created, err := s.orders.Create(ctx, o, func(created domain.Order) (events.Event, error) {
		return events.NewEvent(created.ID, events.TypeOrderSubmitted, events.OrderSubmitted{
			OrderID:          created.ID,
			CartID:           created.CartID,
			CustomerID:       p.CustomerID,
			PaymentGatewayID: created.PaymentGatewayID,
			ShippingCityID:   p.Shipping.CityID(),
			Currency:         created.Currency,
			Total:            created.TotalCents,
			CreateAccount:    created.CreateAccount,
			SubmittedAt:      s.now().UTC(),
		})
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return checkout.Receipt{}, &checkout.ValidationError{Message: msgAlreadyOrdered}
	}
	if err != nil {
		return checkout.Receipt{}, fmt.Errorf("store order: %w", err)
	}

	s.logger.Info().
		Str("order_id", created.ID).
		Str("cart_id", created.CartID).
		Int64("total", created.TotalCents).
		Str("payment_gateway_id", created.PaymentGatewayID).
		Msg("submission: order placed")
	return checkout.Receipt{OrderID: created.ID, Status: created.Status}, nil
}

// validate applies the same rules as the checkout session, against the
// server's own reference data.
func validate(p checkout.Payload, ref checkout.ReferenceData) domain.FieldErrors {
	errs := address.ValidateBilling(p.Billing, ref.DomesticCountryID, ref.Registry)
	if p.Billing.CountryID != "" && !ref.HasCountry(p.Billing.CountryID) {
		errs.Add("billing.country_id", msgSelectCountry)
	}
	errs.Merge(address.ValidateShipping(p.Shipping, ref.Registry))
	switch {
	case strings.TrimSpace(p.PaymentGatewayID) == "":
		errs.Add("payment_gateway_id", msgSelectGateway)
	case !ref.HasGateway(p.PaymentGatewayID):
		errs.Add("payment_gateway_id", msgGatewayGone)
	}
	return errs
}

func (s *Service) order(p checkout.Payload, snap domain.CartSnapshot) (domain.Order, error) {
	billing, err := json.Marshal(p.Billing)
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal billing: %w", err)
	}
	shipping, err := json.Marshal(p.Shipping)
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal shipping: %w", err)
	}
	var customerID *string
	if id := strings.TrimSpace(p.CustomerID); id != "" {
		customerID = &id
	}
	return domain.Order{
		CartID:           snap.ID,
		CustomerID:       customerID,
		PaymentGatewayID: p.PaymentGatewayID,
		Billing:          billing,
		Shipping:         shipping,
		Notes:            strings.TrimSpace(p.Notes),
		CreateAccount:    p.CreateAccount,
		Currency:         snap.Currency,
		TotalCents:       snap.Total,
		Status:           StatusPending,
	}, nil
}
