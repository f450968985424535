// Package checkout is the checkout form state machine. A Session composes the
// billing and shipping addresses, the delivery city selection, the payment
// method and the cart reference into one submittable form, and owns the
// field-level errors shown next to each input.
package checkout

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"marketplace-checkout/internal/address"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/notify"
	"marketplace-checkout/internal/zone"
)

type State string

const (
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

const notifySource = "checkout"

// ReferenceData is the read-only lookup data a session validates against.
type ReferenceData struct {
	Countries         []domain.Country
	PaymentGateways   []domain.PaymentGateway
	DomesticCountryID string
	Registry          *zone.Registry
}

func (r ReferenceData) HasCountry(id string) bool {
	for _, c := range r.Countries {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (r ReferenceData) HasGateway(id string) bool {
	for _, g := range r.PaymentGateways {
		if g.ID == id {
			return true
		}
	}
	return false
}

// Prefill seeds a session for a signed-in customer.
type Prefill struct {
	Customer *domain.Customer
}

type Option func(*Session)

func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

func WithNotifier(sink notify.Sink) Option {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithObserver receives the outcome of every Submit call.
func WithObserver(fn func(outcome string)) Option {
	return func(s *Session) { s.observe = fn }
}

func WithPrefill(p Prefill) Option {
	return func(s *Session) { s.prefill = p }
}

type Session struct {
	mu      sync.Mutex
	patchMu sync.Mutex

	id      string
	ref     ReferenceData
	cart    domain.CartSnapshot
	gateway Gateway
	sink    notify.Sink
	observe func(outcome string)
	prefill Prefill

	state            State
	customerID       string
	billing          address.Address
	shipping         address.Shipping
	paymentGatewayID string
	notes            string
	createAccount    bool

	errors    domain.FieldErrors
	rejected  map[string]bool // keys whose current message came from the gateway
	general   []string
	selection *CitySelection
	receipt   *Receipt
}

// New opens a session for cart. Billing starts in the domestic country and the
// first payment gateway is preselected.
func New(ref ReferenceData, cart domain.CartSnapshot, gateway Gateway, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		ref:      ref,
		cart:     cart,
		gateway:  gateway,
		sink:     notify.Discard,
		state:    StateEditing,
		billing:  address.New(ref.DomesticCountryID, ref.DomesticCountryID),
		shipping: address.NewShipping(ref.DomesticCountryID),
		errors:   domain.FieldErrors{},
		rejected: map[string]bool{},
	}
	if len(ref.PaymentGateways) > 0 {
		s.paymentGatewayID = ref.PaymentGateways[0].ID
	}
	for _, opt := range opts {
		opt(s)
	}
	s.applyPrefill()
	return s
}

func (s *Session) applyPrefill() {
	c := s.prefill.Customer
	if c == nil {
		return
	}
	s.customerID = c.ID
	domestic := s.ref.DomesticCountryID

	if saved, ok := c.Address(c.DefaultBillingAddressID); ok && s.ref.HasCountry(saved.CountryID) {
		s.billing = address.FromSaved(saved, domestic)
		if id := s.billing.CityID(); id != "" && !s.ref.Registry.Contains(id) {
			s.billing.Mode = address.Structured{}
		}
	}
	if s.billing.FirstName == "" {
		s.billing.FirstName = c.FirstName
	}
	if s.billing.LastName == "" {
		s.billing.LastName = c.LastName
	}
	if s.billing.Phone == "" {
		s.billing.Phone = c.Phone
	}
	s.billing.Email = c.Email

	if saved, ok := c.Address(c.DefaultShippingAddressID); ok && saved.CountryID == domestic {
		if city, found := s.ref.Registry.FindByID(saved.CityID); found {
			_ = s.shipping.Recipient.SetCity(city)
			s.shipping.DeliveryNote = strings.TrimSpace(strings.Join([]string{saved.Line1, saved.Line2}, " "))
		}
		if saved.FirstName != c.FirstName || saved.LastName != c.LastName {
			s.shipping.SameAsBilling = false
			s.shipping.Recipient.FirstName = saved.FirstName
			s.shipping.Recipient.LastName = saved.LastName
			s.shipping.Recipient.Phone = saved.Phone
		}
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CartID is the cart this session checks out.
func (s *Session) CartID() string { return s.cart.ID }

// editable must be called with mu held. A failed session returns to editing on
// the first change.
func (s *Session) editable() error {
	switch s.state {
	case StateSucceeded:
		return ErrSessionClosed
	case StateSubmitting:
		return ErrSubmitInProgress
	case StateFailed:
		s.state = StateEditing
	}
	return nil
}

// resolve drops the error for a field the shopper just edited.
func (s *Session) resolve(keys ...string) {
	for _, k := range keys {
		delete(s.errors, k)
		delete(s.rejected, k)
	}
}

// SetBillingField updates one billing contact or free-text address field.
func (s *Session) SetBillingField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if err := s.billing.Set(field, value); err != nil {
		return err
	}
	s.resolve("billing." + field)
	return nil
}

// SetBillingCountry re-resolves the billing address mode. Shipping is not
// affected.
func (s *Session) SetBillingCountry(countryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	countryID = strings.TrimSpace(countryID)
	if !s.ref.HasCountry(countryID) {
		return fmt.Errorf("%s: %w", countryID, ErrUnknownCountry)
	}
	before := s.billing.Kind()
	s.billing.SetCountry(countryID, s.ref.DomesticCountryID)
	s.resolve("billing.country_id")
	if before != s.billing.Kind() {
		for k := range s.errors {
			field := strings.TrimPrefix(k, "billing.")
			if field != k && !contactField(field) {
				s.resolve(k)
			}
		}
	}
	return nil
}

// SetBillingCity selects a delivery city for a domestic billing address.
func (s *Session) SetBillingCity(cityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	city, ok := s.ref.Registry.FindByID(cityID)
	if !ok {
		return fmt.Errorf("%s: %w", cityID, ErrUnknownCity)
	}
	if err := s.billing.SetCity(city); err != nil {
		return err
	}
	s.resolve("billing.city_id")
	return nil
}

// SetShippingField updates a shipping recipient field or the delivery note.
// The shipping city can only change through ConfirmCitySelection.
func (s *Session) SetShippingField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	switch field {
	case "delivery_note":
		s.shipping.DeliveryNote = strings.TrimSpace(value)
	case "first_name", "last_name", "phone":
		if err := s.shipping.Recipient.Set(field, value); err != nil {
			return err
		}
	case "city_id", "city", "state":
		return ErrCityNeedsConfirm
	default:
		return fmt.Errorf("shipping.%s: %w", field, address.ErrUnknownField)
	}
	s.resolve("shipping." + field)
	return nil
}

// ToggleShippingDiffersFromBilling switches whether the shipping recipient is
// collected separately. When off, recipient fields are ignored on submit.
func (s *Session) ToggleShippingDiffersFromBilling(differs bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.shipping.SameAsBilling = !differs
	if !differs {
		s.resolve("shipping.first_name", "shipping.last_name", "shipping.phone")
	}
	return nil
}

func (s *Session) SetPaymentGateway(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if !s.ref.HasGateway(id) {
		return fmt.Errorf("%s: %w", id, ErrUnknownGateway)
	}
	s.paymentGatewayID = id
	s.resolve("payment_gateway_id")
	return nil
}

func (s *Session) SetNotes(notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.notes = strings.TrimSpace(notes)
	s.resolve("notes")
	return nil
}

func (s *Session) SetCreateAccount(create bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.createAccount = create
	s.resolve("create_account")
	return nil
}

// CanSubmit reports whether the submit control is enabled.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSubmitLocked()
}

func (s *Session) canSubmitLocked() bool {
	if s.state == StateSubmitting || s.state == StateSucceeded {
		return false
	}
	if len(s.ref.PaymentGateways) == 0 {
		return false
	}
	return address.ValidShippingCity(s.shipping, s.ref.Registry)
}

// Errors returns a copy of the current field errors.
func (s *Session) Errors() domain.FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(domain.FieldErrors, len(s.errors))
	out.Merge(s.errors)
	return out
}

func contactField(f string) bool {
	switch f {
	case "first_name", "last_name", "phone", "email", "country_id":
		return true
	}
	return false
}
