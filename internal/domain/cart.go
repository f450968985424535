package domain

// CartSnapshot is the cart state as confirmed by the cart backend.
// Amounts are minor currency units.
type CartSnapshot struct {
	ID             string     `json:"id"`
	Currency       string     `json:"currency"`
	Items          []CartItem `json:"items"`
	Subtotal       int64      `json:"subtotal"`
	Shipping       int64      `json:"shipping"`
	DiscountAmount int64      `json:"discount_amount"`
	Total          int64      `json:"total"`
	ItemCount      int        `json:"item_count"`
	CouponCode     string     `json:"coupon_code,omitempty"`
}

type CartItem struct {
	ID         string  `json:"id"`
	ProductRef string  `json:"product_ref"`
	VariantRef *string `json:"variant_ref,omitempty"`
	Name       string  `json:"name"`
	UnitPrice  int64   `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	LineTotal  int64   `json:"line_total"`
	InStock    bool    `json:"in_stock"`
	SellerName string  `json:"seller_name,omitempty"`
}
