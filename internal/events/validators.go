package events

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Promo codes are dash-separated alphanumeric groups, e.g. K7X-9Q2-AB.
// Case is ignored; lookups normalize to uppercase.
var promoCodeFormat = regexp.MustCompile(`^[A-Za-z0-9]+(-[A-Za-z0-9]+)*$`)

// RegisterValidations installs custom binding rules on gin's validator
// engine. Called once during route setup.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("promocode", func(fl validator.FieldLevel) bool {
		return promoCodeFormat.MatchString(fl.Field().String())
	})
}
