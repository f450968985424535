package cart

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// State is a point-in-time view of the cart. Totals are computed from the
// items on every call.
type State struct {
	ID             string          `json:"id"`
	Currency       string          `json:"currency"`
	Items          []LineItemState `json:"items"`
	Subtotal       int64           `json:"subtotal"`
	Shipping       int64           `json:"shipping"`
	DiscountAmount int64           `json:"discount_amount"`
	Total          int64           `json:"total"`
	ItemCount      int             `json:"item_count"`
	Coupon         *Coupon         `json:"coupon,omitempty"`
	InFlight       map[string]bool `json:"in_flight"`
	Clearing       bool            `json:"clearing"`
}

type LineItemState struct {
	LineItem
	LineTotal int64 `json:"line_total"`
	Pending   bool  `json:"pending"`
}

// FreeShippingProgress is how far the subtotal is from the free-shipping
// threshold. It is advisory; the shipping amount itself comes from pricing.
type FreeShippingProgress struct {
	Threshold       int64   `json:"threshold"`
	AmountRemaining int64   `json:"amount_remaining"`
	ProgressPercent float64 `json:"progress_percent"`
	Qualified       bool    `json:"qualified"`
}

func (c *Cart) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		ID:             c.id,
		Currency:       c.currency,
		Items:          make([]LineItemState, 0, len(c.items)),
		Shipping:       c.shipping,
		DiscountAmount: c.discount,
		InFlight:       make(map[string]bool, len(c.inFlight)),
		Clearing:       c.clearing,
	}
	for _, li := range c.items {
		st.Items = append(st.Items, LineItemState{
			LineItem:  li,
			LineTotal: li.LineTotal(),
			Pending:   c.inFlight[li.ID] || c.clearing,
		})
		st.Subtotal += li.LineTotal()
		st.ItemCount += li.Quantity
	}
	for id, v := range c.inFlight {
		st.InFlight[id] = v
	}
	st.Total = st.Subtotal - st.DiscountAmount + st.Shipping
	if c.coupon.Code != "" {
		cp := c.coupon
		st.Coupon = &cp
	}
	return st
}

func (c *Cart) Subtotal() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtotalLocked()
}

func (c *Cart) subtotalLocked() int64 {
	var sum int64
	for _, li := range c.items {
		sum += li.LineTotal()
	}
	return sum
}

func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtotalLocked() - c.discount + c.shipping
}

func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, li := range c.items {
		n += li.Quantity
	}
	return n
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// FreeShipping computes progress towards threshold. A non-positive threshold
// counts as already reached.
func (c *Cart) FreeShipping(threshold int64) FreeShippingProgress {
	return FreeShippingFor(c.Subtotal(), threshold)
}

func FreeShippingFor(subtotal, threshold int64) FreeShippingProgress {
	if threshold <= 0 {
		return FreeShippingProgress{Threshold: threshold, ProgressPercent: 100, Qualified: true}
	}
	p := FreeShippingProgress{Threshold: threshold}
	if remaining := threshold - subtotal; remaining > 0 {
		p.AmountRemaining = remaining
	}
	// two decimals, clamped to [0, 100]
	pct := decimal.NewFromInt(subtotal).Mul(hundred).DivRound(decimal.NewFromInt(threshold), 2)
	pct = decimal.Min(decimal.Max(pct, decimal.Zero), hundred)
	p.ProgressPercent = pct.InexactFloat64()
	p.Qualified = p.AmountRemaining == 0
	return p
}
