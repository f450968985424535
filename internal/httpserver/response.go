package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-checkout/internal/address"
	"marketplace-checkout/internal/cart"
	"marketplace-checkout/internal/checkout"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/geo"
	cartsvc "marketplace-checkout/internal/service/cart"
	customersvc "marketplace-checkout/internal/service/customer"
)

type errorResponse struct {
	Error  string             `json:"error"`
	Fields domain.FieldErrors `json:"fields,omitempty"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, cart.ErrCouponRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrMutationInFlight), errors.Is(err, checkout.ErrSubmitInProgress),
		errors.Is(err, checkout.ErrSessionClosed), errors.Is(err, checkout.ErrSubmitDisabled),
		errors.Is(err, checkout.ErrStaleSelection), errors.Is(err, checkout.ErrNoCitySelection),
		errors.Is(err, checkout.ErrLoginInProgress), errors.Is(err, geo.ErrRequestInFlight),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, customersvc.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, cart.ErrNegativeQuantity), errors.Is(err, cart.ErrEmptyCoupon),
		errors.Is(err, cart.ErrClearNotConfirmed),
		errors.Is(err, checkout.ErrUnknownCountry), errors.Is(err, checkout.ErrUnknownGateway),
		errors.Is(err, checkout.ErrUnknownCity), errors.Is(err, checkout.ErrCityNeedsConfirm),
		errors.Is(err, address.ErrUnknownField), errors.Is(err, address.ErrFieldNotInMode),
		errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, cartsvc.ErrCurrencyRequired), errors.Is(err, cartsvc.ErrLinesRequired),
		errors.Is(err, cartsvc.ErrInvalidLine), errors.Is(err, customersvc.ErrInvalidSignup):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeServiceError renders err. Unexpected errors are logged and hidden.
func (h *handlers) writeServiceError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		writeError(c, status, "internal error")
		return
	}
	resp := errorResponse{Error: err.Error()}
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
		if verr.Message != "" {
			resp.Error = verr.Message
		}
	}
	c.AbortWithStatusJSON(status, resp)
}
