package httpserver

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"marketplace-checkout/internal/checkout"
	"marketplace-checkout/internal/geo"
)

type openSessionRequest struct {
	CartID string `json:"cart_id" binding:"required"`
}

// sessionPatch carries form edits. Address maps are keyed by wire field name.
type sessionPatch struct {
	Billing          map[string]string `json:"billing"`
	Shipping         map[string]string `json:"shipping"`
	ShippingDiffers  *bool             `json:"shipping_differs_from_billing"`
	PaymentGatewayID *string           `json:"payment_gateway_id"`
	Notes            *string           `json:"notes"`
	CreateAccount    *bool             `json:"create_account"`
}

type citySelectionRequest struct {
	CityID string `json:"city_id" binding:"required"`
}

type noteRequest struct {
	Note string `json:"note"`
}

// locationRequest is the browser's geolocation answer: a fix or a failure reason.
type locationRequest struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	Error     string   `json:"error"`
}

type submitResponse struct {
	Receipt checkout.Receipt `json:"receipt"`
}

type sessionErrorResponse struct {
	errorResponse
	Session checkout.View `json:"session"`
}

func (h *handlers) session(c *gin.Context) (*checkout.Session, bool) {
	s, err := h.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return nil, false
	}
	return s, true
}

func (h *handlers) openSession(c *gin.Context) {
	var req openSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	snap, err := h.deps.Carts.Snapshot(ctx, req.CartID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	ref, err := h.deps.Reference.Load(ctx)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	sink := h.deps.Notifications.For(snap.ID)
	opts := []checkout.Option{checkout.WithNotifier(sink)}
	if h.deps.Metrics != nil {
		opts = append(opts, checkout.WithObserver(h.deps.Metrics.Submission))
	}
	if token := bearerToken(c); token != "" {
		customer, err := h.deps.Customers.LookupByToken(ctx, token)
		switch {
		case err == nil:
			opts = append(opts, checkout.WithPrefill(checkout.Prefill{Customer: customer}))
		default:
			// an expired token opens a guest session
			h.logger.Debug().Err(err).Msg("checkout: prefill skipped")
		}
	}

	s := checkout.New(ref, snap, h.deps.Gateway, opts...)
	h.deps.Sessions.Add(s, sink)
	c.JSON(http.StatusCreated, s.View())
}

func (h *handlers) getSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *handlers) patchSession(c *gin.Context) {
	var req sessionPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	// a patch applies as a whole or not at all
	if err := s.Patch(func() error { return applyPatch(s, req) }); err != nil {
		h.writeSessionError(c, s, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// applyPatch applies country before city before the remaining fields, since
// the country decides which address fields exist.
func applyPatch(s *checkout.Session, req sessionPatch) error {
	if id, ok := req.Billing["country_id"]; ok {
		if err := s.SetBillingCountry(id); err != nil {
			return err
		}
	}
	if id, ok := req.Billing["city_id"]; ok {
		if err := s.SetBillingCity(id); err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(req.Billing) {
		if k == "country_id" || k == "city_id" {
			continue
		}
		if err := s.SetBillingField(k, req.Billing[k]); err != nil {
			return err
		}
	}
	if req.ShippingDiffers != nil {
		if err := s.ToggleShippingDiffersFromBilling(*req.ShippingDiffers); err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(req.Shipping) {
		if err := s.SetShippingField(k, req.Shipping[k]); err != nil {
			return err
		}
	}
	if req.PaymentGatewayID != nil {
		if err := s.SetPaymentGateway(*req.PaymentGatewayID); err != nil {
			return err
		}
	}
	if req.Notes != nil {
		if err := s.SetNotes(*req.Notes); err != nil {
			return err
		}
	}
	if req.CreateAccount != nil {
		if err := s.SetCreateAccount(*req.CreateAccount); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (h *handlers) submitSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	receipt, err := s.Submit(c.Request.Context())
	if err != nil {
		h.writeSessionError(c, s, err)
		return
	}
	h.deps.Sessions.Discard(s.ID())
	h.deps.Carts.Evict(s.CartID())
	// the order-placed notice is still queued; the queue goes after the next drain
	h.deps.Notifications.Retire(s.CartID())
	c.JSON(http.StatusOK, submitResponse{Receipt: receipt})
}

// writeSessionError returns the session view with the error so the form can
// render the field errors without a second request.
func (h *handlers) writeSessionError(c *gin.Context, s *checkout.Session, err error) {
	status := statusFor(err)
	resp := sessionErrorResponse{errorResponse: errorResponse{Error: err.Error()}, Session: s.View()}
	if status == http.StatusInternalServerError {
		// the session's general errors already describe the failure
		_ = c.Error(err)
		status = http.StatusBadGateway
		resp.Error = "submission failed"
	}
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
		if verr.Message != "" {
			resp.Error = verr.Message
		}
	}
	c.AbortWithStatusJSON(status, resp)
}

func (h *handlers) beginCitySelection(c *gin.Context) {
	var req citySelectionRequest
	if !bindJSON(c, &req) {
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	sel, err := s.BeginCitySelection(req.CityID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sel.View())
}

func (h *handlers) pendingSelection(c *gin.Context) (*checkout.Session, *checkout.CitySelection, bool) {
	s, ok := h.session(c)
	if !ok {
		return nil, nil, false
	}
	sel, ok := s.CitySelection()
	if !ok {
		h.writeServiceError(c, checkout.ErrNoCitySelection)
		return nil, nil, false
	}
	return s, sel, true
}

func (h *handlers) noteCitySelection(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	_, sel, ok := h.pendingSelection(c)
	if !ok {
		return
	}
	sel.SetNote(req.Note)
	c.JSON(http.StatusOK, sel.View())
}

// locateCitySelection records the client's geolocation result. A failed
// capture is reported in the selection view, it is not an HTTP error.
func (h *handlers) locateCitySelection(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	coord, err := geo.FromPair(req.Latitude, req.Longitude)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	reported := geo.Reported{}
	switch {
	case coord != nil:
		reported.Coord = *coord
	case req.Error != "":
		reported.Err = geo.ParseReason(req.Error)
	default:
		writeError(c, http.StatusBadRequest, "lat and lng or error required")
		return
	}

	_, sel, ok := h.pendingSelection(c)
	if !ok {
		return
	}
	capture := geo.NewCapture(reported, h.captureOptions()...)
	if err := sel.Capture(c.Request.Context(), capture); err != nil {
		h.logger.Debug().Str("outcome", geo.Outcome(err)).Msg("checkout: location not captured")
	}
	c.JSON(http.StatusOK, sel.View())
}

func (h *handlers) captureOptions() []geo.Option {
	opts := []geo.Option{geo.WithTimeout(h.deps.GeolocationTimeout)}
	if h.deps.Metrics != nil {
		opts = append(opts, geo.WithObserver(h.deps.Metrics.GeolocationOutcome))
	}
	return opts
}

func (h *handlers) confirmCitySelection(c *gin.Context) {
	s, sel, ok := h.pendingSelection(c)
	if !ok {
		return
	}
	if err := s.ConfirmCitySelection(sel); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *handlers) cancelCitySelection(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.CancelCitySelection()
	c.JSON(http.StatusOK, s.View())
}
