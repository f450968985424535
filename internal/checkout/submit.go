package checkout

import (
	"context"
	"errors"
	"fmt"

	"marketplace-checkout/internal/address"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/notify"
)

// Payload is everything the submission gateway needs to place an order.
type Payload struct {
	CartID           string           `json:"cart_id"`
	CustomerID       string           `json:"customer_id,omitempty"`
	Billing          address.Address  `json:"billing"`
	Shipping         address.Shipping `json:"shipping"`
	PaymentGatewayID string           `json:"payment_gateway_id"`
	Notes            string           `json:"notes,omitempty"`
	CreateAccount    bool             `json:"create_account"`
}

type Receipt struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Gateway places the order. Field-level rejections are returned as
// *ValidationError; any other error is treated as a transport failure.
type Gateway interface {
	Submit(ctx context.Context, p Payload) (Receipt, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, p Payload) (Receipt, error)

func (f GatewayFunc) Submit(ctx context.Context, p Payload) (Receipt, error) {
	return f(ctx, p)
}

const (
	msgFixFields      = "Please correct the highlighted fields."
	msgSubmitFailed   = "We could not place your order. Please try again."
	msgOrderPlaced    = "Your order has been placed."
	msgChooseGateway  = "Select a payment method."
	msgUnknownGateway = "This payment method is not available."
)

// Submit validates the form and hands it to the gateway. While a submission is
// running further calls return ErrSubmitInProgress without side effects.
func (s *Session) Submit(ctx context.Context) (Receipt, error) {
	s.mu.Lock()
	switch s.state {
	case StateSucceeded:
		s.mu.Unlock()
		return Receipt{}, ErrSessionClosed
	case StateSubmitting:
		s.mu.Unlock()
		return Receipt{}, ErrSubmitInProgress
	}
	if !s.canSubmitLocked() {
		s.mu.Unlock()
		s.done("disabled")
		return Receipt{}, ErrSubmitDisabled
	}

	s.general = nil
	if errs := s.validateLocked(); !errs.Empty() {
		s.reconcileLocalErrors(errs)
		s.state = StateFailed
		s.mu.Unlock()
		s.sink.Notify(notify.Error(notifySource, msgFixFields))
		s.done("invalid")
		return Receipt{}, &ValidationError{Fields: errs}
	}

	s.reconcileLocalErrors(domain.FieldErrors{})
	s.state = StateSubmitting
	p := s.payloadLocked()
	s.mu.Unlock()

	receipt, err := s.gateway.Submit(ctx, p)

	s.mu.Lock()
	var verr *ValidationError
	switch {
	case err == nil:
		s.state = StateSucceeded
		s.receipt = &receipt
		s.errors = domain.FieldErrors{}
		s.rejected = map[string]bool{}
		s.selection = nil
	case errors.As(err, &verr):
		s.state = StateFailed
		s.mergeGatewayErrors(verr)
	default:
		s.state = StateFailed
		s.general = append(s.general, msgSubmitFailed)
	}
	s.mu.Unlock()

	switch {
	case err == nil:
		s.sink.Notify(notify.Success(notifySource, msgOrderPlaced))
		s.done("succeeded")
		return receipt, nil
	case verr != nil:
		s.sink.Notify(notify.Error(notifySource, msgFixFields))
		s.done("rejected")
		return Receipt{}, err
	default:
		s.sink.Notify(notify.Error(notifySource, msgSubmitFailed))
		s.done("error")
		return Receipt{}, fmt.Errorf("submit checkout: %w", err)
	}
}

// reconcileLocalErrors replaces the locally detected errors with errs. Gateway
// rejections stay until the field is edited or a later gateway response
// supersedes them.
func (s *Session) reconcileLocalErrors(errs domain.FieldErrors) {
	for k := range s.errors {
		if _, still := errs[k]; !still && !s.rejected[k] {
			delete(s.errors, k)
		}
	}
	for k, msg := range errs {
		if s.rejected[k] {
			continue
		}
		s.errors[k] = msg
	}
}

// mergeGatewayErrors replaces errors per field. Keys that match no form field
// are shown in the general summary.
func (s *Session) mergeGatewayErrors(verr *ValidationError) {
	for _, k := range verr.Fields.Fields() {
		msg := verr.Fields[k]
		if knownField(k) {
			s.errors[k] = msg
			s.rejected[k] = true
			continue
		}
		s.general = append(s.general, msg)
	}
	if verr.Message != "" {
		s.general = append(s.general, verr.Message)
	}
}

func (s *Session) validateLocked() domain.FieldErrors {
	errs := address.ValidateBilling(s.billing, s.ref.DomesticCountryID, s.ref.Registry)
	if s.billing.CountryID != "" && !s.ref.HasCountry(s.billing.CountryID) {
		errs.Add("billing.country_id", "Select a country.")
	}
	errs.Merge(address.ValidateShipping(s.shipping, s.ref.Registry))
	switch {
	case s.paymentGatewayID == "":
		errs.Add("payment_gateway_id", msgChooseGateway)
	case !s.ref.HasGateway(s.paymentGatewayID):
		errs.Add("payment_gateway_id", msgUnknownGateway)
	}
	return errs
}

func (s *Session) payloadLocked() Payload {
	shipping := s.shipping
	if shipping.SameAsBilling {
		// recipient fields are ignored when shipping to the billing contact
		shipping.Recipient.FirstName = s.billing.FirstName
		shipping.Recipient.LastName = s.billing.LastName
		shipping.Recipient.Phone = s.billing.Phone
	}
	if shipping.Coordinate != nil {
		c := *shipping.Coordinate
		shipping.Coordinate = &c
	}
	return Payload{
		CartID:           s.cart.ID,
		CustomerID:       s.customerID,
		Billing:          s.billing,
		Shipping:         shipping,
		PaymentGatewayID: s.paymentGatewayID,
		Notes:            s.notes,
		CreateAccount:    s.createAccount,
	}
}

func (s *Session) done(outcome string) {
	if s.observe != nil {
		s.observe(outcome)
	}
}

// Receipt returns the order receipt once the session has succeeded.
func (s *Session) Receipt() (Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.receipt == nil {
		return Receipt{}, false
	}
	return *s.receipt, true
}
