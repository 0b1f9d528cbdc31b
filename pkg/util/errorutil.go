package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
)

// GenericErrorMessage is shown for failures whose details stay server-side.
const GenericErrorMessage = "Something went wrong. Please try again."

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    GenericErrorMessage,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts authentication error kinds and generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{Code: codeForStatus(fiberErr.Code), Message: fiberErr.Message, HTTPStatus: fiberErr.Code}
	}

	// Dependency failures are checked first: a wrapped store error may also
	// carry a role resolution kind.
	switch {
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return &DomainError{Code: "DEPENDENCY_UNAVAILABLE", Message: GenericErrorMessage, HTTPStatus: http.StatusServiceUnavailable, Err: err}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return &DomainError{Code: "INVALID_CREDENTIALS", Message: domain.ErrInvalidCredentials.Error(), HTTPStatus: http.StatusUnauthorized, Err: err}
	case errors.Is(err, domain.ErrAccountDisabled):
		return &DomainError{Code: "ACCOUNT_DISABLED", Message: domain.ErrAccountDisabled.Error(), HTTPStatus: http.StatusForbidden, Err: err}
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return &DomainError{Code: "USER_ALREADY_EXISTS", Message: domain.ErrUserAlreadyExists.Error(), HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrUnknownRole):
		return &DomainError{Code: "UNKNOWN_ROLE", Message: err.Error(), HTTPStatus: http.StatusUnprocessableEntity, Err: err}
	case errors.Is(err, domain.ErrPasswordTooLong):
		return &DomainError{
			Code:       "VALIDATION_FAILED",
			Message:    "password: size must be at most 72 bytes",
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"password": "size must be at most 72 bytes"},
			Err:        err,
		}
	case errors.Is(err, domain.ErrRolesRequired):
		return &DomainError{Code: "ROLES_REQUIRED", Message: domain.ErrRolesRequired.Error(), HTTPStatus: http.StatusBadRequest, Err: err}
	case errors.Is(err, domain.ErrRoleResolution):
		return &DomainError{Code: "ROLE_RESOLUTION_FAILED", Message: GenericErrorMessage, HTTPStatus: http.StatusServiceUnavailable, Err: err}
	}

	return NewInternalError(err).(*DomainError)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestTimeout:
		return "REQUEST_TIMEOUT"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "ERROR"
}
