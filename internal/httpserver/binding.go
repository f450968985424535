package httpserver

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"marketplace-checkout/internal/domain"
)

const msgFieldRequired = "This field is required."

var registerTagNames sync.Once

// useJSONFieldNames makes binding errors name fields the way clients send them.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindJSON decodes the body into req. On failure it writes a 400, listing the
// fields whose binding tags failed, and returns false.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	fields := domain.FieldErrors{}
	for _, fe := range verrs {
		msg := msgFieldRequired
		if fe.Tag() != "required" {
			msg = "Invalid value."
		}
		fields.Add(fe.Field(), msg)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request", Fields: fields})
	return false
}
