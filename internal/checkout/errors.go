package checkout

import (
	"errors"
	"fmt"
	"strings"

	"marketplace-checkout/internal/domain"
)

var (
	ErrSubmitDisabled   = errors.New("checkout cannot be submitted yet")
	ErrSubmitInProgress = errors.New("checkout submission already in progress")
	ErrSessionClosed    = errors.New("checkout session is closed")
	ErrUnknownCountry   = errors.New("unknown country")
	ErrUnknownGateway   = errors.New("unknown payment gateway")
	ErrUnknownCity      = errors.New("city is not a delivery city")
	ErrNoCitySelection  = errors.New("no delivery city selection in progress")
	ErrStaleSelection   = errors.New("delivery city selection was replaced")
	ErrCityNeedsConfirm = errors.New("shipping city is set through the delivery instructions step")
	ErrSessionNotFound  = errors.New("checkout session not found")
)

// ValidationError carries field-scoped errors returned by the submission
// gateway. Keys are dotted paths such as "billing.email".
type ValidationError struct {
	Fields  domain.FieldErrors
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message != "" {
			return "checkout validation failed: " + e.Message
		}
		return "checkout validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, k := range e.Fields.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "checkout validation failed: " + strings.Join(parts, "; ")
}

var addressFields = map[string]bool{
	"first_name":     true,
	"last_name":      true,
	"phone":          true,
	"email":          true,
	"country_id":     true,
	"city_id":        true,
	"city":           true,
	"state":          true,
	"postal_code":    true,
	"address_line_1": true,
	"address_line_2": true,
}

var topLevelFields = map[string]bool{
	"payment_gateway_id": true,
	"notes":              true,
	"create_account":     true,
}

// knownField reports whether key can be shown next to a form field. Anything
// else goes to the general error summary.
func knownField(key string) bool {
	if topLevelFields[key] {
		return true
	}
	switch {
	case strings.HasPrefix(key, "billing."):
		return addressFields[strings.TrimPrefix(key, "billing.")]
	case strings.HasPrefix(key, "shipping."):
		rest := strings.TrimPrefix(key, "shipping.")
		return addressFields[rest] || rest == "delivery_note" || rest == "same_as_billing"
	}
	return false
}
