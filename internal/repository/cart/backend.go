package cart

import (
	"context"
	"errors"
	"strings"

	"marketplace-checkout/internal/cart"
	"marketplace-checkout/internal/domain"
)

// Backend binds a Repository to one cart so it can confirm the aggregate's
// mutations and coupon codes.
type Backend struct {
	repo   Repository
	cartID string
}

func NewBackend(repo Repository, cartID string) *Backend {
	return &Backend{repo: repo, cartID: cartID}
}

func (b *Backend) UpdateQuantity(ctx context.Context, itemID string, quantity int) (domain.CartItem, error) {
	item, err := b.repo.UpdateQuantity(ctx, b.cartID, itemID, quantity)
	if err != nil {
		return domain.CartItem{}, err
	}
	if item == nil {
		return domain.CartItem{ID: itemID}, nil
	}
	return *item, nil
}

// RemoveItem treats an already-deleted line as removed.
func (b *Backend) RemoveItem(ctx context.Context, itemID string) error {
	err := b.repo.RemoveItem(ctx, b.cartID, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (b *Backend) Clear(ctx context.Context) error {
	return b.repo.Clear(ctx, b.cartID)
}

// PriceCoupon records the code and reports the cart's current pricing.
func (b *Backend) PriceCoupon(ctx context.Context, cartID, code string) (cart.Pricing, error) {
	if cartID != b.cartID || strings.TrimSpace(code) == "" {
		return cart.Pricing{}, cart.ErrCouponRejected
	}
	snap, err := b.repo.SetCoupon(ctx, cartID, code)
	if err != nil {
		return cart.Pricing{}, err
	}
	return cart.Pricing{Shipping: snap.Shipping, Discount: snap.DiscountAmount}, nil
}
