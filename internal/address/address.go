package address

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/geo"
)

var (
	ErrUnknownField   = errors.New("unknown address field")
	ErrFieldNotInMode = errors.New("field does not apply to the current address mode")
)

// Address is one billing or shipping address. Mode holds whichever of the
// structured or free-text fields is authoritative for CountryID.
type Address struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	CountryID string
	Mode      Mode
}

// New returns an empty address for countryID.
func New(countryID, domesticCountryID string) Address {
	return Address{CountryID: countryID, Mode: emptyMode(ResolveMode(countryID, domesticCountryID))}
}

// Kind reports the active mode, defaulting to free text.
func (a Address) Kind() Kind {
	if a.Mode == nil {
		return KindFreeText
	}
	return a.Mode.Kind()
}

// SetCountry changes the country and, when the resolved mode changes, discards
// every field of the previous mode.
func (a *Address) SetCountry(countryID, domesticCountryID string) {
	a.CountryID = countryID
	k := ResolveMode(countryID, domesticCountryID)
	if a.Mode == nil || a.Mode.Kind() != k {
		a.Mode = emptyMode(k)
	}
}

// SetCity selects a delivery city. Only valid in structured mode.
func (a *Address) SetCity(city domain.DeliveryCity) error {
	if a.Kind() != KindStructured {
		return fmt.Errorf("city_id: %w", ErrFieldNotInMode)
	}
	a.Mode = Structured{CityID: city.ID, City: city.Name, Region: city.RegionName}
	return nil
}

// CityID returns the structured city id, or "" in free-text mode.
func (a Address) CityID() string {
	if s, ok := a.Mode.(Structured); ok {
		return s.CityID
	}
	return ""
}

// Set updates a contact or free-text field by its wire name. city_id and
// country_id are not settable here because they need reference data.
func (a *Address) Set(field, value string) error {
	value = strings.TrimSpace(value)
	switch field {
	case "first_name":
		a.FirstName = value
		return nil
	case "last_name":
		a.LastName = value
		return nil
	case "phone":
		a.Phone = value
		return nil
	case "email":
		a.Email = value
		return nil
	}

	ft, ok := a.Mode.(FreeText)
	if !ok {
		switch field {
		case "address_line_1", "address_line_2", "city", "state", "postal_code":
			return fmt.Errorf("%s: %w", field, ErrFieldNotInMode)
		}
		return fmt.Errorf("%s: %w", field, ErrUnknownField)
	}
	switch field {
	case "address_line_1":
		ft.Line1 = value
	case "address_line_2":
		ft.Line2 = value
	case "city":
		ft.City = value
	case "state":
		ft.Region = value
	case "postal_code":
		ft.PostalCode = value
	default:
		return fmt.Errorf("%s: %w", field, ErrUnknownField)
	}
	a.Mode = ft
	return nil
}

// Fields flattens the address into its wire representation. Only the active
// mode's fields are present.
func (a Address) Fields() map[string]string {
	out := map[string]string{
		"first_name": a.FirstName,
		"last_name":  a.LastName,
		"phone":      a.Phone,
		"email":      a.Email,
		"country_id": a.CountryID,
	}
	switch m := a.Mode.(type) {
	case Structured:
		out["city_id"] = m.CityID
		out["city"] = m.City
		out["state"] = m.Region
	case FreeText:
		out["address_line_1"] = m.Line1
		out["address_line_2"] = m.Line2
		out["city"] = m.City
		out["state"] = m.Region
		out["postal_code"] = m.PostalCode
	}
	return out
}

func (a Address) MarshalJSON() ([]byte, error) {
	fields := a.Fields()
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["mode"] = a.Kind()
	return json.Marshal(out)
}

// FromSaved converts a saved customer address into a checkout address.
func FromSaved(s domain.CustomerAddress, domesticCountryID string) Address {
	a := New(s.CountryID, domesticCountryID)
	a.FirstName = s.FirstName
	a.LastName = s.LastName
	a.Phone = s.Phone
	switch a.Kind() {
	case KindStructured:
		a.Mode = Structured{CityID: s.CityID, City: s.City, Region: s.Region}
	default:
		a.Mode = FreeText{Line1: s.Line1, Line2: s.Line2, City: s.City, Region: s.Region, PostalCode: s.PostalCode}
	}
	return a
}

// Shipping is the delivery destination. It is always structured: the
// marketplace only delivers to registry cities whatever the billing country.
type Shipping struct {
	Recipient     Address
	SameAsBilling bool
	DeliveryNote  string
	Coordinate    *geo.Coordinate
}

// NewShipping returns an empty domestic shipping destination.
func NewShipping(domesticCountryID string) Shipping {
	return Shipping{
		Recipient:     Address{CountryID: domesticCountryID, Mode: Structured{}},
		SameAsBilling: true,
	}
}

func (s Shipping) CityID() string {
	return s.Recipient.CityID()
}

func (s Shipping) MarshalJSON() ([]byte, error) {
	fields := s.Recipient.Fields()
	out := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		out[k] = v
	}
	out["same_as_billing"] = s.SameAsBilling
	out["delivery_note"] = s.DeliveryNote
	if s.Coordinate != nil {
		out["latitude"] = s.Coordinate.Lat
		out["longitude"] = s.Coordinate.Lng
	}
	return json.Marshal(out)
}
