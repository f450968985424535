package domain

import "time"

// CustomerAddress stores a saved address offered as checkout prefill.
type CustomerAddress struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"address_line_1,omitempty"`
	Line2      string `json:"address_line_2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	CountryID  string `json:"country_id,omitempty"`
	CityID     string `json:"city_id,omitempty"`
}

// Customer represents a registered shopper.
type Customer struct {
	ID                       string            `json:"id"`
	Email                    string            `json:"email"`
	PasswordHash             string            `json:"-"`
	FirstName                string            `json:"first_name,omitempty"`
	LastName                 string            `json:"last_name,omitempty"`
	Phone                    string            `json:"phone,omitempty"`
	Addresses                []CustomerAddress `json:"addresses,omitempty"`
	DefaultShippingAddressID string            `json:"default_shipping_address_id,omitempty"`
	DefaultBillingAddressID  string            `json:"default_billing_address_id,omitempty"`
	CreatedAt                time.Time         `json:"created_at"`
}

// Address returns the saved address with the given id.
func (c Customer) Address(id string) (CustomerAddress, bool) {
	if id == "" {
		return CustomerAddress{}, false
	}
	for _, a := range c.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return CustomerAddress{}, false
}
