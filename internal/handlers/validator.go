package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/placelist/backend/internal/apperror"
)

var validate = validator.New()

// validateStruct runs go-playground/validator tags and reports the first
// failing field as an InvalidFieldData error.
func validateStruct(payload any) error {
	if err := validate.Struct(payload); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if ok && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return apperror.InvalidField(fe.Field(), fmt.Sprintf("%s failed on '%s' validation", fe.Field(), fe.Tag()))
		}
		return apperror.InvalidField("", "invalid request payload")
	}
	return nil
}
