package address

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/geo"
	"marketplace-checkout/internal/zone"
)

const domestic = "MW"

func testRegistry(t *testing.T) *zone.Registry {
	t.Helper()
	reg, err := zone.New([]domain.DeliveryCity{
		{ID: "lilongwe", Name: "Lilongwe", RegionName: "Central"},
		{ID: "blantyre", Name: "Blantyre", RegionName: "Southern"},
	})
	require.NoError(t, err)
	return reg
}

func TestResolveMode(t *testing.T) {
	assert.Equal(t, KindStructured, ResolveMode("MW", domestic))
	assert.Equal(t, KindFreeText, ResolveMode("ZA", domestic))
	assert.Equal(t, KindFreeText, ResolveMode("", domestic))
	assert.Equal(t, KindFreeText, ResolveMode("", ""))
}

func TestSetCountryClearsInactiveModeFields(t *testing.T) {
	a := New("MW", domestic)
	require.NoError(t, a.SetCity(domain.DeliveryCity{ID: "lilongwe", Name: "Lilongwe", RegionName: "Central"}))
	require.Equal(t, "lilongwe", a.CityID())

	a.SetCountry("ZA", domestic)
	assert.Equal(t, KindFreeText, a.Kind())
	assert.Empty(t, a.CityID())
	require.NoError(t, a.Set("city", "Johannesburg"))
	require.NoError(t, a.Set("postal_code", "2000"))

	a.SetCountry("GB", domestic)
	ft, ok := a.Mode.(FreeText)
	require.True(t, ok)
	assert.Equal(t, "Johannesburg", ft.City, "free-text to free-text keeps fields")

	a.SetCountry("MW", domestic)
	fields := a.Fields()
	assert.NotContains(t, fields, "postal_code")
	assert.Equal(t, "", fields["city_id"])
	assert.Equal(t, "", fields["city"])
}

func TestSetRejectsFieldsOfInactiveMode(t *testing.T) {
	a := New("MW", domestic)
	err := a.Set("postal_code", "1234")
	assert.True(t, errors.Is(err, ErrFieldNotInMode))

	err = a.Set("favourite_colour", "red")
	assert.True(t, errors.Is(err, ErrUnknownField))

	b := New("ZA", domestic)
	err = b.SetCity(domain.DeliveryCity{ID: "lilongwe"})
	assert.True(t, errors.Is(err, ErrFieldNotInMode))
}

func TestValidateBillingStructured(t *testing.T) {
	reg := testRegistry(t)
	a := New("MW", domestic)
	errs := ValidateBilling(a, domestic, reg)
	assert.Equal(t, []string{
		"billing.city_id", "billing.email", "billing.first_name", "billing.last_name", "billing.phone",
	}, errs.Fields())

	a.FirstName, a.LastName, a.Phone, a.Email = "Chisomo", "Banda", "+265 991 234 567", "chisomo@example.com"
	a.Mode = Structured{CityID: "nowhere"}
	errs = ValidateBilling(a, domestic, reg)
	assert.Equal(t, []string{"billing.city_id"}, errs.Fields())

	require.NoError(t, a.SetCity(domain.DeliveryCity{ID: "blantyre"}))
	assert.True(t, ValidateBilling(a, domestic, reg).Empty())
}

func TestValidateBillingFreeText(t *testing.T) {
	reg := testRegistry(t)
	a := New("ZA", domestic)
	a.FirstName, a.LastName, a.Phone, a.Email = "Thandi", "Nkosi", "0821234567", "thandi@example.co.za"
	errs := ValidateBilling(a, domestic, reg)
	assert.Equal(t, []string{"billing.address_line_1", "billing.city"}, errs.Fields())

	require.NoError(t, a.Set("address_line_1", "12 Main Road"))
	require.NoError(t, a.Set("city", "Cape Town"))
	assert.True(t, ValidateBilling(a, domestic, reg).Empty())
}

func TestValidateBillingInvalidContact(t *testing.T) {
	reg := testRegistry(t)
	a := New("ZA", domestic)
	a.FirstName, a.LastName = "A", "B"
	a.Phone, a.Email = "call me", "not-an-email"
	a.Mode = FreeText{Line1: "1 Road", City: "Durban"}
	errs := ValidateBilling(a, domestic, reg)
	assert.Equal(t, msgInvalidPhone, errs["billing.phone"])
	assert.Equal(t, msgInvalidEmail, errs["billing.email"])
}

func TestValidateBillingMissingCountry(t *testing.T) {
	errs := ValidateBilling(Address{FirstName: "a", LastName: "b", Phone: "0999123456", Email: "a@b.co"}, domestic, testRegistry(t))
	assert.Equal(t, []string{"billing.country_id"}, errs.Fields())
}

// Foreign billing with domestic shipping: billing is free text, shipping is
// structured and must resolve in the registry.
func TestForeignBillingDomesticShipping(t *testing.T) {
	reg := testRegistry(t)
	billing := New("ZA", domestic)
	billing.FirstName, billing.LastName, billing.Phone, billing.Email = "Thandi", "Nkosi", "0821234567", "t@example.com"
	billing.Mode = FreeText{Line1: "12 Main Road", City: "Johannesburg", PostalCode: "2000"}
	require.True(t, ValidateBilling(billing, domestic, reg).Empty())

	ship := NewShipping(domestic)
	errs := ValidateShipping(ship, reg)
	assert.Equal(t, []string{"shipping.city_id", "shipping.delivery_note"}, errs.Fields())
	assert.False(t, ValidShippingCity(ship, reg))

	require.NoError(t, ship.Recipient.SetCity(domain.DeliveryCity{ID: "lilongwe", Name: "Lilongwe"}))
	ship.DeliveryNote = "Behind the blue gate"
	assert.True(t, ValidateShipping(ship, reg).Empty())
	assert.True(t, ValidShippingCity(ship, reg))
}

func TestValidateShippingRecipientOnlyWhenDiffers(t *testing.T) {
	reg := testRegistry(t)
	ship := NewShipping(domestic)
	ship.Recipient.Mode = Structured{CityID: "lilongwe"}
	ship.DeliveryNote = "Near the market"
	assert.True(t, ValidateShipping(ship, reg).Empty())

	ship.SameAsBilling = false
	errs := ValidateShipping(ship, reg)
	assert.Equal(t, []string{"shipping.first_name", "shipping.last_name", "shipping.phone"}, errs.Fields())
	assert.NotContains(t, errs, "shipping.email")
}

func TestFromSaved(t *testing.T) {
	saved := domain.CustomerAddress{
		FirstName: "Chisomo", LastName: "Banda", Phone: "0991234567",
		CountryID: "MW", CityID: "lilongwe", City: "Lilongwe", Line1: "ignored",
	}
	a := FromSaved(saved, domestic)
	assert.Equal(t, Structured{CityID: "lilongwe", City: "Lilongwe"}, a.Mode)

	saved.CountryID, saved.CityID = "GB", ""
	saved.Line1, saved.City, saved.PostalCode = "1 High Street", "London", "N1 1AA"
	a = FromSaved(saved, domestic)
	assert.Equal(t, FreeText{Line1: "1 High Street", City: "London", PostalCode: "N1 1AA"}, a.Mode)
}

func TestShippingJSON(t *testing.T) {
	ship := NewShipping(domestic)
	ship.Recipient.Mode = Structured{CityID: "lilongwe", City: "Lilongwe", Region: "Central"}
	ship.DeliveryNote = "Blue gate"
	c, err := geo.NewCoordinate(-13.96, 33.78)
	require.NoError(t, err)
	ship.Coordinate = &c

	raw, err := json.Marshal(ship)
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "lilongwe", got["city_id"])
	assert.Equal(t, "Blue gate", got["delivery_note"])
	assert.Equal(t, true, got["same_as_billing"])
	assert.InDelta(t, -13.96, got["latitude"], 1e-9)
	assert.NotContains(t, got, "postal_code")
}
