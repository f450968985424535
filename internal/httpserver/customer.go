package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace-checkout/internal/checkout"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/notify"
	customersvc "marketplace-checkout/internal/service/customer"
)

type loginRequest struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type loginResponse struct {
	checkout.LoginResult
	ExpiresIn int                `json:"expires_in,omitempty"`
	Login     checkout.LoginView `json:"login"`
}

type loginErrorResponse struct {
	errorResponse
	Login checkout.LoginView `json:"login"`
}

type customerResponse struct {
	Customer customerView `json:"customer"`
}

type customerView struct {
	ID                       string                   `json:"id"`
	Email                    string                   `json:"email"`
	FirstName                string                   `json:"first_name,omitempty"`
	LastName                 string                   `json:"last_name,omitempty"`
	Phone                    string                   `json:"phone,omitempty"`
	Addresses                []domain.CustomerAddress `json:"addresses"`
	DefaultShippingAddressID string                   `json:"default_shipping_address_id,omitempty"`
	DefaultBillingAddressID  string                   `json:"default_billing_address_id,omitempty"`
	CreatedAt                time.Time                `json:"created_at"`
}

func toCustomerView(c domain.Customer) customerView {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	addresses := c.Addresses
	if addresses == nil {
		addresses = []domain.CustomerAddress{}
	}
	return customerView{
		ID:                       c.ID,
		Email:                    c.Email,
		FirstName:                c.FirstName,
		LastName:                 c.LastName,
		Phone:                    c.Phone,
		Addresses:                addresses,
		DefaultShippingAddressID: c.DefaultShippingAddressID,
		DefaultBillingAddressID:  c.DefaultBillingAddressID,
		CreatedAt:                created,
	}
}

// login runs the guest sign-in form of a checkout session. A success never
// edits the session; the client re-opens checkout with the token.
func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	form := checkout.NewLoginForm(notify.Discard)
	if id := strings.TrimSpace(req.SessionID); id != "" {
		f, err := h.deps.Sessions.LoginForm(id)
		if err != nil {
			h.writeServiceError(c, err)
			return
		}
		form = f
	}

	auth := checkout.AuthenticatorFunc(h.deps.Customers.Authenticate)
	result, err := form.Submit(c.Request.Context(), auth, req.Email, req.Password)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
		}
		view := form.View()
		msg := view.Message
		if msg == "" {
			msg = err.Error()
		}
		c.AbortWithStatusJSON(status, loginErrorResponse{
			errorResponse: errorResponse{Error: msg, Fields: view.Errors},
			Login:         view,
		})
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		LoginResult: result,
		ExpiresIn:   h.deps.Customers.AccessTTLSeconds(),
		Login:       form.View(),
	})
}

func (h *handlers) logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		writeError(c, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := h.deps.Customers.Logout(c.Request.Context(), token); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) signup(c *gin.Context) {
	var in customersvc.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	customer, err := h.deps.Customers.Signup(c.Request.Context(), in)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customerResponse{Customer: toCustomerView(*customer)})
}

func (h *handlers) me(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		writeError(c, http.StatusUnauthorized, "missing bearer token")
		return
	}
	customer, err := h.deps.Customers.LookupByToken(c.Request.Context(), token)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, customerResponse{Customer: toCustomerView(*customer)})
}
