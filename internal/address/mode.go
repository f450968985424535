// Package address decides which shape an address takes for a country and
// validates billing and shipping addresses.
package address

// Kind names the active address shape.
type Kind string

const (
	KindStructured Kind = "structured"
	KindFreeText   Kind = "free_text"
)

// ResolveMode picks structured (delivery-city) addressing for the domestic
// country and free-text addressing for everything else.
func ResolveMode(countryID, domesticCountryID string) Kind {
	if countryID != "" && countryID == domesticCountryID {
		return KindStructured
	}
	return KindFreeText
}

// Mode is the tagged union Structured | FreeText.
type Mode interface {
	Kind() Kind
	isMode()
}

// Structured references a delivery city from the zone registry. City and Region
// are display copies of the registry entry.
type Structured struct {
	CityID string `json:"city_id"`
	City   string `json:"city,omitempty"`
	Region string `json:"state,omitempty"`
}

func (Structured) Kind() Kind { return KindStructured }
func (Structured) isMode()    {}

// FreeText is a plain international address.
type FreeText struct {
	Line1      string `json:"address_line_1"`
	Line2      string `json:"address_line_2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

func (FreeText) Kind() Kind { return KindFreeText }
func (FreeText) isMode()    {}

func emptyMode(k Kind) Mode {
	if k == KindStructured {
		return Structured{}
	}
	return FreeText{}
}
