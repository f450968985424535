// Package cart is the shopper's cart aggregate: line items, derived totals and
// the quantity/remove/clear mutations that are confirmed by a cart backend.
//
// A Cart allows one in-flight mutation per line item. Mutations on different
// items run concurrently; backend calls are made without holding the lock and
// each confirmed result is merged into its own item only.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/notify"
)

var (
	ErrNegativeQuantity  = errors.New("quantity must not be negative")
	ErrMutationInFlight  = errors.New("a change to this item is already in progress")
	ErrClearNotConfirmed = errors.New("clearing the cart requires confirmation")
	ErrEmptyCoupon       = errors.New("coupon code required")
	ErrItemNotFound      = errors.New("cart item not found")
	ErrCouponRejected    = errors.New("coupon rejected")
)

const notifySource = "cart"

// Backend confirms cart mutations. Implementations return the item state as
// persisted after the update.
type Backend interface {
	UpdateQuantity(ctx context.Context, itemID string, quantity int) (domain.CartItem, error)
	RemoveItem(ctx context.Context, itemID string) error
	Clear(ctx context.Context) error
}

// Pricing is the externally computed shipping and discount for a cart.
type Pricing struct {
	Shipping int64
	Discount int64
}

// CouponPricer validates a coupon and returns the resulting pricing. It
// returns ErrCouponRejected (possibly wrapped) for codes it refuses.
type CouponPricer interface {
	PriceCoupon(ctx context.Context, cartID, code string) (Pricing, error)
}

type CouponStatus string

const (
	CouponNone      CouponStatus = ""
	CouponApplied   CouponStatus = "applied"
	CouponConfirmed CouponStatus = "confirmed"
	CouponRejected  CouponStatus = "rejected"
)

type Coupon struct {
	Code   string       `json:"code"`
	Status CouponStatus `json:"status"`
}

// LineItem is one product variant in the cart. Prices are minor units.
type LineItem struct {
	ID         string  `json:"id"`
	ProductRef string  `json:"product_ref"`
	VariantRef *string `json:"variant_ref,omitempty"`
	Name       string  `json:"name"`
	UnitPrice  int64   `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	InStock    bool    `json:"in_stock"`
	SellerName string  `json:"seller_name,omitempty"`
}

func (li LineItem) LineTotal() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

func lineItemFrom(it domain.CartItem) LineItem {
	return LineItem{
		ID:         it.ID,
		ProductRef: it.ProductRef,
		VariantRef: it.VariantRef,
		Name:       it.Name,
		UnitPrice:  it.UnitPrice,
		Quantity:   it.Quantity,
		InStock:    it.InStock,
		SellerName: it.SellerName,
	}
}

type Option func(*Cart)

// WithNotifier routes success and failure notices to sink.
func WithNotifier(sink notify.Sink) Option {
	return func(c *Cart) {
		if sink != nil {
			c.sink = sink
		}
	}
}

func WithCouponPricer(p CouponPricer) Option {
	return func(c *Cart) { c.pricer = p }
}

// WithObserver is called once per finished mutation with the operation name
// ("update", "remove", "clear", "coupon") and its outcome.
func WithObserver(fn func(op, outcome string)) Option {
	return func(c *Cart) { c.observe = fn }
}

type Cart struct {
	mu       sync.Mutex
	id       string
	currency string
	items    []LineItem
	shipping int64
	discount int64
	coupon   Coupon
	inFlight map[string]bool
	clearing bool

	backend Backend
	pricer  CouponPricer
	sink    notify.Sink
	observe func(op, outcome string)
}

// New builds a cart from a backend snapshot. Snapshot totals are ignored and
// recomputed from the items; shipping and discount are taken as given.
func New(snap domain.CartSnapshot, backend Backend, opts ...Option) *Cart {
	c := &Cart{
		id:       snap.ID,
		currency: snap.Currency,
		shipping: snap.Shipping,
		discount: snap.DiscountAmount,
		inFlight: make(map[string]bool),
		backend:  backend,
		sink:     notify.Discard,
	}
	if code := strings.TrimSpace(snap.CouponCode); code != "" {
		c.coupon = Coupon{Code: code, Status: CouponConfirmed}
	}
	for _, it := range snap.Items {
		c.items = append(c.items, lineItemFrom(it))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cart) ID() string { return c.id }

// InFlight reports whether a mutation for itemID is awaiting confirmation.
func (c *Cart) InFlight(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[itemID] || c.clearing
}

// Busy reports whether any line mutation or a clear is awaiting the backend.
func (c *Cart) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight) > 0 || c.clearing
}

// SetPricing replaces the externally supplied shipping and discount amounts.
func (c *Cart) SetPricing(p Pricing) {
	c.mu.Lock()
	c.shipping = p.Shipping
	c.discount = p.Discount
	c.mu.Unlock()
}

// SetQuantity changes an item's quantity. Zero removes the item; setting the
// current quantity succeeds without a backend call.
func (c *Cart) SetQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity < 0 {
		c.notify(notify.Error(notifySource, "Quantity cannot be negative."))
		return ErrNegativeQuantity
	}
	if quantity == 0 {
		return c.Remove(ctx, itemID)
	}

	c.mu.Lock()
	idx := c.indexOf(itemID)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", itemID, ErrItemNotFound)
	}
	if c.inFlight[itemID] || c.clearing {
		c.mu.Unlock()
		return ErrMutationInFlight
	}
	if c.items[idx].Quantity == quantity {
		c.mu.Unlock()
		return nil
	}
	c.inFlight[itemID] = true
	c.mu.Unlock()

	confirmed, err := c.backend.UpdateQuantity(ctx, itemID, quantity)

	c.mu.Lock()
	delete(c.inFlight, itemID)
	if err == nil {
		c.mergeItem(itemID, confirmed)
	}
	c.mu.Unlock()

	if err != nil {
		c.finish("update", err, "Could not update the quantity. Please try again.")
		return fmt.Errorf("update quantity: %w", err)
	}
	c.finish("update", nil, "Cart updated.")
	return nil
}

// Remove deletes an item. Removing an item that is no longer in the cart is a
// no-op success.
func (c *Cart) Remove(ctx context.Context, itemID string) error {
	c.mu.Lock()
	if c.inFlight[itemID] || c.clearing {
		c.mu.Unlock()
		return ErrMutationInFlight
	}
	if c.indexOf(itemID) < 0 {
		c.mu.Unlock()
		return nil
	}
	c.inFlight[itemID] = true
	c.mu.Unlock()

	err := c.backend.RemoveItem(ctx, itemID)

	c.mu.Lock()
	delete(c.inFlight, itemID)
	if err == nil {
		if idx := c.indexOf(itemID); idx >= 0 {
			c.items = append(c.items[:idx], c.items[idx+1:]...)
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.finish("remove", err, "Could not remove the item. Please try again.")
		return fmt.Errorf("remove item: %w", err)
	}
	c.finish("remove", nil, "Item removed from cart.")
	return nil
}

// Clear empties the cart. confirmed must be true; the caller is expected to
// have asked the shopper first.
func (c *Cart) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrClearNotConfirmed
	}
	c.mu.Lock()
	if c.clearing || len(c.inFlight) > 0 {
		c.mu.Unlock()
		return ErrMutationInFlight
	}
	c.clearing = true
	c.mu.Unlock()

	err := c.backend.Clear(ctx)

	c.mu.Lock()
	c.clearing = false
	if err == nil {
		c.items = nil
		c.shipping = 0
		c.discount = 0
		c.coupon = Coupon{}
	}
	c.mu.Unlock()

	if err != nil {
		c.finish("clear", err, "Could not clear the cart. Please try again.")
		return fmt.Errorf("clear cart: %w", err)
	}
	c.finish("clear", nil, "Cart cleared.")
	return nil
}

// ApplyCoupon records code as applied. With a CouponPricer configured the code
// is forwarded and its answer decides between confirmed and rejected; without
// one the code stays applied and totals are unchanged.
func (c *Cart) ApplyCoupon(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		c.notify(notify.Error(notifySource, "Enter a coupon code."))
		return ErrEmptyCoupon
	}

	c.mu.Lock()
	c.coupon = Coupon{Code: code, Status: CouponApplied}
	pricer := c.pricer
	c.mu.Unlock()

	if pricer == nil {
		c.finish("coupon", nil, "Coupon applied.")
		return nil
	}

	pricing, err := pricer.PriceCoupon(ctx, c.id, code)
	c.mu.Lock()
	if c.coupon.Code != code {
		// superseded by a newer code
		c.mu.Unlock()
		return err
	}
	switch {
	case err == nil:
		c.coupon.Status = CouponConfirmed
		c.shipping = pricing.Shipping
		c.discount = pricing.Discount
	case errors.Is(err, ErrCouponRejected):
		c.coupon.Status = CouponRejected
	}
	c.mu.Unlock()

	switch {
	case err == nil:
		c.finish("coupon", nil, "Coupon applied.")
		return nil
	case errors.Is(err, ErrCouponRejected):
		c.finish("coupon", err, "This coupon is not valid for your cart.")
		return err
	default:
		c.finish("coupon", err, "Could not apply the coupon. Please try again.")
		return fmt.Errorf("apply coupon: %w", err)
	}
}

func (c *Cart) indexOf(itemID string) int {
	for i := range c.items {
		if c.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// mergeItem replaces only the confirmed item. An item removed meanwhile stays
// removed.
func (c *Cart) mergeItem(itemID string, confirmed domain.CartItem) {
	idx := c.indexOf(itemID)
	if idx < 0 {
		return
	}
	li := lineItemFrom(confirmed)
	if li.ID == "" {
		li = c.items[idx]
		li.Quantity = confirmed.Quantity
	}
	if li.Quantity <= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
		return
	}
	c.items[idx] = li
}

func (c *Cart) finish(op string, err error, msg string) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		c.notify(notify.Error(notifySource, msg))
	} else {
		c.notify(notify.Success(notifySource, msg))
	}
	if c.observe != nil {
		c.observe(op, outcome)
	}
}

func (c *Cart) notify(n notify.Notification) {
	c.sink.Notify(n)
}
