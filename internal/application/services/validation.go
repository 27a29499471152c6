package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/doloop/core/internal/domain/entities"
)

// NewValidator returns the validator shared by the services and the HTTP layer
func NewValidator() *validator.Validate {
	return validator.New()
}

// validateStruct runs the struct tags and folds failures into ErrValidation
func validateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}

	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reasons = append(reasons, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", entities.ErrValidation, strings.Join(reasons, ", "))
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", entities.ValidationError(field, "is required")
	}
	return value, nil
}
