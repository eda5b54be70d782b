package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/deskops/helpdesk-admin/internal/payload"
)

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

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
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
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUpstreamError wraps a normalized backend failure. Client-side upstream
// statuses are passed through; everything else becomes 502.
func NewUpstreamError(p *payload.ErrorPayload) *DomainError {
	status := http.StatusBadGateway
	if p.Status >= 400 && p.Status < 500 {
		status = p.Status
	}
	if p.Code == payload.CodeTimeout {
		status = http.StatusGatewayTimeout
	}
	details := map[string]any{"upstream_code": p.Code}
	if p.Status != 0 {
		details["upstream_status"] = p.Status
	}
	if p.Details != nil {
		details["upstream_details"] = p.Details
	}
	return &DomainError{
		Code:       "UPSTREAM_ERROR",
		Message:    p.Message,
		HTTPStatus: status,
		Details:    details,
		Err:        p,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var upstream *payload.ErrorPayload
	if errors.As(err, &upstream) {
		return NewUpstreamError(upstream)
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
