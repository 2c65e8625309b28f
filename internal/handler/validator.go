package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"freelance-market/pkg/apierror"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest checks the struct tags of a decoded body. Missing fields
// share one message so clients see the same wording the services use.
func validateRequest(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apierror.Validation("invalid request body", err.Error())
	}

	msgs := make([]string, 0, len(ve))
	onlyMissing := true
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
		if fe.Tag() != "required" {
			onlyMissing = false
		}
	}

	if onlyMissing {
		return apierror.Validation("Please fill all fields", strings.Join(msgs, "; "))
	}
	return apierror.Validation(msgs[0], strings.Join(msgs, "; "))
}

func fieldError(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
