package models

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// RegisterValidations adds the non-standard rules used by the request tags.
// Both the gin binding engine and the CLI validator need them.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("notblank", validators.NotBlank)
}
