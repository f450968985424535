package domain

// Country is a selectable billing country.
type Country struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// PaymentGateway is a payment method offered at checkout. Settlement happens elsewhere.
type PaymentGateway struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// DeliveryCity is one serviceable delivery destination.
type DeliveryCity struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	RegionName string `json:"region_name" yaml:"region_name"`
	Icon       string `json:"icon,omitempty" yaml:"icon,omitempty"`
}
