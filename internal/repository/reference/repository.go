package reference

import (
	"context"

	"marketplace-checkout/internal/domain"
)

// Repository reads and writes the checkout reference lists.
type Repository interface {
	ListCountries(ctx context.Context) ([]domain.Country, error)
	ListPaymentGateways(ctx context.Context) ([]domain.PaymentGateway, error)
	ListDeliveryCities(ctx context.Context) ([]domain.DeliveryCity, error)

	UpsertCountries(ctx context.Context, countries []domain.Country) error
	UpsertPaymentGateways(ctx context.Context, gateways []domain.PaymentGateway) error
	UpsertDeliveryCities(ctx context.Context, cities []domain.DeliveryCity) (int, error)
}
