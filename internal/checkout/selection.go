package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/geo"
)

// CitySelection is the pending delivery instructions exchange: a chosen city,
// an optional landmark note and an optional coordinate. Nothing here touches
// the session's shipping address until it is confirmed.
type CitySelection struct {
	mu         sync.Mutex
	city       domain.DeliveryCity
	note       string
	coordinate *geo.Coordinate
	capture    geo.Snapshot
}

// SelectionView is a copy of a CitySelection's fields.
type SelectionView struct {
	City       domain.DeliveryCity `json:"city"`
	Note       string              `json:"note"`
	Coordinate *geo.Coordinate     `json:"coordinate,omitempty"`
	Location   geo.Snapshot        `json:"location"`
}

func (cs *CitySelection) SetNote(note string) {
	cs.mu.Lock()
	cs.note = strings.TrimSpace(note)
	cs.mu.Unlock()
}

func (cs *CitySelection) AttachCoordinate(c geo.Coordinate) {
	cs.mu.Lock()
	cs.coordinate = &c
	cs.capture = geo.Snapshot{State: geo.StateCaptured, Coordinate: &c}
	cs.mu.Unlock()
}

func (cs *CitySelection) ClearCoordinate() {
	cs.mu.Lock()
	cs.coordinate = nil
	cs.capture = geo.Snapshot{State: geo.StateIdle}
	cs.mu.Unlock()
}

// Capture runs a location request and attaches the result. A failed request
// leaves the coordinate unset and the landmark note as the only locator; the
// error is returned for display, it does not block checkout.
func (cs *CitySelection) Capture(ctx context.Context, c *geo.Capture) error {
	coord, err := c.Request(ctx)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.capture = c.Snapshot()
	if err != nil {
		cs.coordinate = nil
		return err
	}
	cs.coordinate = &coord
	return nil
}

func (cs *CitySelection) View() SelectionView {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	v := SelectionView{City: cs.city, Note: cs.note, Location: cs.capture}
	if cs.coordinate != nil {
		c := *cs.coordinate
		v.Coordinate = &c
	}
	if v.Location.State == "" {
		v.Location.State = geo.StateIdle
	}
	return v
}

// BeginCitySelection opens the delivery instructions step for cityID, which
// must be a registry city. A previous pending selection is discarded.
func (s *Session) BeginCitySelection(cityID string) (*CitySelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return nil, err
	}
	city, ok := s.ref.Registry.FindByID(strings.TrimSpace(cityID))
	if !ok {
		return nil, fmt.Errorf("%s: %w", cityID, ErrUnknownCity)
	}
	sel := &CitySelection{city: city, note: s.shipping.DeliveryNote}
	if s.shipping.CityID() == city.ID && s.shipping.Coordinate != nil {
		c := *s.shipping.Coordinate
		sel.coordinate = &c
		sel.capture = geo.Snapshot{State: geo.StateCaptured, Coordinate: &c}
	}
	s.selection = sel
	return sel, nil
}

// CitySelection returns the pending selection, if any.
func (s *Session) CitySelection() (*CitySelection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection, s.selection != nil
}

// ConfirmCitySelection commits the selection's city, note and coordinate to
// the shipping address in one step.
func (s *Session) ConfirmCitySelection(sel *CitySelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if s.selection == nil {
		return ErrNoCitySelection
	}
	if sel != s.selection {
		return ErrStaleSelection
	}
	v := sel.View()
	if !s.ref.Registry.Contains(v.City.ID) {
		return fmt.Errorf("%s: %w", v.City.ID, ErrUnknownCity)
	}
	if err := s.shipping.Recipient.SetCity(v.City); err != nil {
		return err
	}
	s.shipping.DeliveryNote = v.Note
	s.shipping.Coordinate = v.Coordinate
	s.selection = nil
	s.resolve("shipping.city_id", "shipping.city", "shipping.state", "shipping.delivery_note")
	return nil
}

// CancelCitySelection drops the pending selection. The committed shipping
// address is unchanged.
func (s *Session) CancelCitySelection() {
	s.mu.Lock()
	s.selection = nil
	s.mu.Unlock()
}
