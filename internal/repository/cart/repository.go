package cart

import (
	"context"

	"marketplace-checkout/internal/domain"
)

type LineInput struct {
	ProductRef string
	VariantRef *string
	Name       string
	SellerName string
	UnitPrice  int64
	Quantity   int
	InStock    bool
}

type CreateCartInput struct {
	CustomerID *string
	Currency   string
	Shipping   int64
	Lines      []LineInput
}

// Repository persists carts and their lines. Amounts are minor units and cart
// totals are recomputed in the same transaction as every line change.
type Repository interface {
	Create(ctx context.Context, in CreateCartInput) (*domain.CartSnapshot, error)
	GetSnapshot(ctx context.Context, cartID string) (*domain.CartSnapshot, error)
	UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
	SetCoupon(ctx context.Context, cartID, code string) (*domain.CartSnapshot, error)
}
