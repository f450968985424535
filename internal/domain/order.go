package domain

import (
	"encoding/json"
	"time"
)

// Order is a submitted checkout as persisted by the submission gateway.
type Order struct {
	ID               string          `json:"id"`
	CartID           string          `json:"cart_id"`
	CustomerID       *string         `json:"customer_id,omitempty"`
	PaymentGatewayID string          `json:"payment_gateway_id"`
	Billing          json.RawMessage `json:"billing"`
	Shipping         json.RawMessage `json:"shipping"`
	Notes            string          `json:"notes,omitempty"`
	CreateAccount    bool            `json:"create_account"`
	Currency         string          `json:"currency"`
	TotalCents       int64           `json:"total"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}
