package handlers

import (
	"fmt"

	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the custom binding tags used by the request DTOs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("vatclass", func(fl validator.FieldLevel) bool {
		return domain.VATClass(fl.Field().String()).IsValid()
	})
}
