package address

import (
	"net/mail"
	"strings"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/zone"
)

const (
	msgRequired     = "This field is required."
	msgInvalidEmail = "Enter a valid email address."
	msgInvalidPhone = "Enter a valid phone number."
	msgSelectCity   = "Select a delivery city."
	msgUnknownCity  = "We do not deliver to this city."
	msgNoteRequired = "Describe a landmark or directions for the delivery."
	msgModeMismatch = "Address does not match the selected country."
)

// ValidateBilling checks a billing address for the given domestic country.
// Structured billing must reference a registry city; free-text billing needs a
// first address line and a city.
func ValidateBilling(a Address, domesticCountryID string, reg *zone.Registry) domain.FieldErrors {
	errs := domain.FieldErrors{}
	validateContact(errs, "billing", a, true)

	if strings.TrimSpace(a.CountryID) == "" {
		errs.Add("billing.country_id", msgRequired)
		return errs
	}
	if a.Kind() != ResolveMode(a.CountryID, domesticCountryID) {
		errs.Add("billing.country_id", msgModeMismatch)
		return errs
	}

	switch m := a.Mode.(type) {
	case Structured:
		validateCity(errs, "billing.city_id", m.CityID, reg)
	case FreeText:
		if m.Line1 == "" {
			errs.Add("billing.address_line_1", msgRequired)
		}
		if m.City == "" {
			errs.Add("billing.city", msgRequired)
		}
	}
	return errs
}

// ValidateShipping checks the delivery destination. Recipient contact fields
// are only checked when shipping differs from billing.
func ValidateShipping(s Shipping, reg *zone.Registry) domain.FieldErrors {
	errs := domain.FieldErrors{}
	if !s.SameAsBilling {
		validateContact(errs, "shipping", s.Recipient, false)
	}
	validateCity(errs, "shipping.city_id", s.CityID(), reg)
	if strings.TrimSpace(s.DeliveryNote) == "" {
		errs.Add("shipping.delivery_note", msgNoteRequired)
	}
	return errs
}

// ValidShippingCity reports whether the shipping destination resolves in reg.
func ValidShippingCity(s Shipping, reg *zone.Registry) bool {
	return s.CityID() != "" && reg.Contains(s.CityID())
}

func validateCity(errs domain.FieldErrors, field, cityID string, reg *zone.Registry) {
	if cityID == "" {
		errs.Add(field, msgSelectCity)
		return
	}
	if !reg.Contains(cityID) {
		errs.Add(field, msgUnknownCity)
	}
}

func validateContact(errs domain.FieldErrors, prefix string, a Address, withEmail bool) {
	if a.FirstName == "" {
		errs.Add(prefix+".first_name", msgRequired)
	}
	if a.LastName == "" {
		errs.Add(prefix+".last_name", msgRequired)
	}
	switch {
	case a.Phone == "":
		errs.Add(prefix+".phone", msgRequired)
	case !validPhone(a.Phone):
		errs.Add(prefix+".phone", msgInvalidPhone)
	}
	if !withEmail {
		return
	}
	switch {
	case a.Email == "":
		errs.Add(prefix+".email", msgRequired)
	case !validEmail(a.Email):
		errs.Add(prefix+".email", msgInvalidEmail)
	}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, "@")
}

func validPhone(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}
