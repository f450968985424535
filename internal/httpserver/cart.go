package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketplace-checkout/internal/cart"
	"marketplace-checkout/internal/money"
	"marketplace-checkout/internal/notify"
	cartsvc "marketplace-checkout/internal/service/cart"
)

type cartResponse struct {
	cart.State
	Formatted    formattedTotals           `json:"formatted"`
	FreeShipping cart.FreeShippingProgress `json:"free_shipping"`
}

type formattedTotals struct {
	Subtotal string            `json:"subtotal"`
	Shipping string            `json:"shipping"`
	Discount string            `json:"discount"`
	Total    string            `json:"total"`
	Lines    map[string]string `json:"lines"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type couponRequest struct {
	Code string `json:"code"`
}

func (h *handlers) currency(code string) money.Currency {
	cur := h.deps.Currency
	if cur.Code == "" || (code != "" && code != cur.Code) {
		cur = money.Currency{Code: code, FractionDigits: cur.FractionDigits}
	}
	return cur
}

func (h *handlers) toCartResponse(st cart.State) cartResponse {
	cur := h.currency(st.Currency)
	lines := make(map[string]string, len(st.Items))
	for _, it := range st.Items {
		lines[it.ID] = money.Format(it.LineTotal, cur)
	}
	return cartResponse{
		State: st,
		Formatted: formattedTotals{
			Subtotal: money.Format(st.Subtotal, cur),
			Shipping: money.Format(st.Shipping, cur),
			Discount: money.Format(st.DiscountAmount, cur),
			Total:    money.Format(st.Total, cur),
			Lines:    lines,
		},
		FreeShipping: cart.FreeShippingFor(st.Subtotal, h.deps.FreeShippingThreshold),
	}
}

func (h *handlers) loadCart(c *gin.Context) (*cart.Cart, bool) {
	ct, err := h.deps.Carts.Get(c.Request.Context(), c.Param("cartId"))
	if err != nil {
		h.writeServiceError(c, err)
		return nil, false
	}
	return ct, true
}

func (h *handlers) createCart(c *gin.Context) {
	var in cartsvc.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	ct, err := h.deps.Carts.Create(c.Request.Context(), in)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.toCartResponse(ct.State()))
}

func (h *handlers) getCart(c *gin.Context) {
	ct, ok := h.loadCart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.toCartResponse(ct.State()))
}

func (h *handlers) setQuantity(c *gin.Context) {
	var req quantityRequest
	if !bindJSON(c, &req) {
		return
	}
	ct, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := ct.SetQuantity(c.Request.Context(), c.Param("itemId"), *req.Quantity); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toCartResponse(ct.State()))
}

func (h *handlers) removeItem(c *gin.Context) {
	ct, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := ct.Remove(c.Request.Context(), c.Param("itemId")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toCartResponse(ct.State()))
}

// clearCart requires ?confirm=true, the answer to the confirmation prompt.
func (h *handlers) clearCart(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	ct, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := ct.Clear(c.Request.Context(), confirmed); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toCartResponse(ct.State()))
}

func (h *handlers) applyCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	ct, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := ct.ApplyCoupon(c.Request.Context(), req.Code); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toCartResponse(ct.State()))
}

func (h *handlers) freeShipping(c *gin.Context) {
	ct, ok := h.loadCart(c)
	if !ok {
		return
	}
	progress := ct.FreeShipping(h.deps.FreeShippingThreshold)
	cur := h.currency(ct.State().Currency)
	c.JSON(http.StatusOK, gin.H{
		"free_shipping":    progress,
		"amount_remaining": money.Format(progress.AmountRemaining, cur),
		"threshold":        money.Format(progress.Threshold, cur),
	})
}

func (h *handlers) notifications(c *gin.Context) {
	cartID := c.Query("cart_id")
	if cartID == "" {
		writeError(c, http.StatusBadRequest, "cart_id required")
		return
	}
	notes := h.deps.Notifications.Drain(cartID)
	if notes == nil {
		notes = []notify.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notes})
}

func (h *handlers) dismissNotification(c *gin.Context) {
	cartID := c.Query("cart_id")
	if cartID == "" {
		writeError(c, http.StatusBadRequest, "cart_id required")
		return
	}
	q, ok := h.deps.Notifications.Get(cartID)
	if !ok || !q.Dismiss(c.Param("notificationId")) {
		writeError(c, http.StatusNotFound, "notification not found")
		return
	}
	c.Status(http.StatusNoContent)
}
