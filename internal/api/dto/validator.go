package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// Validator checks request payloads against their validate tags.
type Validator struct {
	v *validator.Validate
}

// NewValidator reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// bcrypt limits input by bytes, max counts runes.
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return &Validator{v: v}
}

// Validate returns a single validation error whose message lists every
// invalid field as "field: reason", joined by ", ".
func (val *Validator) Validate(req any) error {
	err := val.v.Struct(req)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	msgs := make([]string, 0, len(ve))
	details := make(map[string]any, len(ve))
	for _, fe := range ve {
		field := fieldPath(fe)
		reason := fieldReason(fe)
		msgs = append(msgs, field+": "+reason)
		details[field] = reason
	}
	return apperrors.NewValidationError(strings.Join(msgs, ", "), details)
}

// fieldPath drops the struct name from the namespace, e.g. "roles[1]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be blank"
	case "email":
		return "must be a well-formed email address"
	case "min":
		return fmt.Sprintf("size must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("size must be at most %s", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("size must be at most %s bytes", fe.Param())
	default:
		return fmt.Sprintf("failed validation (%s)", fe.Tag())
	}
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}
