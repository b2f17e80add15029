package utils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs validator tags over an input payload and converts the
// first failure into a ValidationError so handlers can treat binding and
// domain validation uniformly.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		return NewValidationError(fe.Field(), "failed validation on '"+fe.Tag()+"'")
	}
	return err
}
