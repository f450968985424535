package checkout

import (
	"marketplace-checkout/internal/address"
	"marketplace-checkout/internal/domain"
)

// View is the renderable state of a session.
type View struct {
	ID               string                  `json:"id"`
	State            State                   `json:"state"`
	CartID           string                  `json:"cart_id"`
	Currency         string                  `json:"currency"`
	CartTotal        int64                   `json:"cart_total"`
	CustomerID       string                  `json:"customer_id,omitempty"`
	BillingMode      address.Kind            `json:"billing_mode"`
	Billing          address.Address         `json:"billing"`
	Shipping         address.Shipping        `json:"shipping"`
	ShippingDiffers  bool                    `json:"shipping_differs_from_billing"`
	PaymentGatewayID string                  `json:"payment_gateway_id"`
	Notes            string                  `json:"notes"`
	CreateAccount    bool                    `json:"create_account"`
	CanSubmit        bool                    `json:"can_submit"`
	Errors           domain.FieldErrors      `json:"errors"`
	GeneralErrors    []string                `json:"general_errors"`
	CitySelection    *SelectionView          `json:"city_selection,omitempty"`
	Receipt          *Receipt                `json:"receipt,omitempty"`
	Countries        []domain.Country        `json:"countries"`
	PaymentGateways  []domain.PaymentGateway `json:"payment_gateways"`
	DeliveryCities   []domain.DeliveryCity   `json:"delivery_cities"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:               s.id,
		State:            s.state,
		CartID:           s.cart.ID,
		Currency:         s.cart.Currency,
		CartTotal:        s.cart.Total,
		CustomerID:       s.customerID,
		BillingMode:      s.billing.Kind(),
		Billing:          s.billing,
		Shipping:         s.shipping,
		ShippingDiffers:  !s.shipping.SameAsBilling,
		PaymentGatewayID: s.paymentGatewayID,
		Notes:            s.notes,
		CreateAccount:    s.createAccount,
		CanSubmit:        s.canSubmitLocked(),
		Errors:           make(domain.FieldErrors, len(s.errors)),
		GeneralErrors:    append([]string{}, s.general...),
		Countries:        s.ref.Countries,
		PaymentGateways:  s.ref.PaymentGateways,
		DeliveryCities:   s.ref.Registry.List(),
	}
	v.Errors.Merge(s.errors)
	if s.selection != nil {
		sv := s.selection.View()
		v.CitySelection = &sv
	}
	if s.receipt != nil {
		r := *s.receipt
		v.Receipt = &r
	}
	return v
}
