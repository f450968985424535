// Package seed fills an empty database with reference lists and a demo cart
// for manual testing.
package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"marketplace-checkout/internal/domain"
	cartrepo "marketplace-checkout/internal/repository/cart"
	"marketplace-checkout/internal/zone"
)

type referenceWriter interface {
	UpsertCountries(ctx context.Context, countries []domain.Country) error
	UpsertPaymentGateways(ctx context.Context, gateways []domain.PaymentGateway) error
	UpsertDeliveryCities(ctx context.Context, cities []domain.DeliveryCity) (int, error)
}

type cartCreator interface {
	Create(ctx context.Context, in cartrepo.CreateCartInput) (*domain.CartSnapshot, error)
}

var countries = []domain.Country{
	{ID: "MW", Name: "Malawi"},
	{ID: "ZA", Name: "South Africa"},
	{ID: "GB", Name: "United Kingdom"},
	{ID: "US", Name: "United States"},
}

var gateways = []domain.PaymentGateway{
	{ID: "airtel-money", Code: "airtel_money", DisplayName: "Airtel Money", Description: "Pay from your Airtel Money wallet"},
	{ID: "tnm-mpamba", Code: "tnm_mpamba", DisplayName: "TNM Mpamba", Description: "Pay from your Mpamba wallet"},
	{ID: "card", Code: "card", DisplayName: "Card", Description: "Visa or Mastercard"},
}

func demoCart(currency string) cartrepo.CreateCartInput {
	variant := "black-l"
	return cartrepo.CreateCartInput{
		Currency: currency,
		Shipping: 2500,
		Lines: []cartrepo.LineInput{
			{ProductRef: "chitenje-wrap", Name: "Chitenje wrap", SellerName: "Zomba Textiles", UnitPrice: 12000, Quantity: 2, InStock: true},
			{ProductRef: "canvas-tote", VariantRef: &variant, Name: "Canvas tote", SellerName: "Lilongwe Leather", UnitPrice: 8000, Quantity: 1, InStock: true},
			{ProductRef: "clay-pot", Name: "Clay cooking pot", SellerName: "Dedza Pottery", UnitPrice: 6500, Quantity: 1, InStock: false},
		},
	}
}

// Apply upserts the reference lists and creates one demo cart. Reference data
// is idempotent via ON CONFLICT; every run adds a new cart.
func Apply(ctx context.Context, ref referenceWriter, carts cartCreator, currency string, logger zerolog.Logger) (*domain.CartSnapshot, error) {
	if err := ref.UpsertCountries(ctx, countries); err != nil {
		return nil, fmt.Errorf("upsert countries: %w", err)
	}
	if err := ref.UpsertPaymentGateways(ctx, gateways); err != nil {
		return nil, fmt.Errorf("upsert payment gateways: %w", err)
	}
	changed, err := ref.UpsertDeliveryCities(ctx, zone.Default().List())
	if err != nil {
		return nil, fmt.Errorf("upsert delivery cities: %w", err)
	}
	logger.Info().
		Int("countries", len(countries)).
		Int("gateways", len(gateways)).
		Int("cities_changed", changed).
		Msg("seed: reference data")

	snap, err := carts.Create(ctx, demoCart(currency))
	if err != nil {
		return nil, fmt.Errorf("create demo cart: %w", err)
	}
	logger.Info().Str("cart_id", snap.ID).Int64("total", snap.Total).Msg("seed: demo cart")
	return snap, nil
}
