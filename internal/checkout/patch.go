package checkout

import (
	"maps"
	"slices"

	"marketplace-checkout/internal/address"
	"marketplace-checkout/internal/domain"
)

type formState struct {
	state            State
	billing          address.Address
	shipping         address.Shipping
	paymentGatewayID string
	notes            string
	createAccount    bool
	errors           domain.FieldErrors
	rejected         map[string]bool
	general          []string
	selection        *CitySelection
}

// Patch runs a batch of edits. When fn fails the form is put back as it was
// before the batch, unless a submission has started in the meantime.
func (s *Session) Patch(fn func() error) error {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()

	s.mu.Lock()
	saved := s.saveLocked()
	s.mu.Unlock()

	err := fn()
	if err == nil {
		return nil
	}
	s.mu.Lock()
	if s.state != StateSubmitting && s.state != StateSucceeded {
		s.restoreLocked(saved)
	}
	s.mu.Unlock()
	return err
}

func (s *Session) saveLocked() formState {
	shipping := s.shipping
	if shipping.Coordinate != nil {
		c := *shipping.Coordinate
		shipping.Coordinate = &c
	}
	return formState{
		state:            s.state,
		billing:          s.billing,
		shipping:         shipping,
		paymentGatewayID: s.paymentGatewayID,
		notes:            s.notes,
		createAccount:    s.createAccount,
		errors:           maps.Clone(s.errors),
		rejected:         maps.Clone(s.rejected),
		general:          slices.Clone(s.general),
		selection:        s.selection,
	}
}

func (s *Session) restoreLocked(f formState) {
	s.state = f.state
	s.billing = f.billing
	s.shipping = f.shipping
	s.paymentGatewayID = f.paymentGatewayID
	s.notes = f.notes
	s.createAccount = f.createAccount
	s.errors = f.errors
	s.rejected = f.rejected
	s.general = f.general
	s.selection = f.selection
}
