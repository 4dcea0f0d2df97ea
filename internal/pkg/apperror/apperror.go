// internal/pkg/apperror/apperror.go
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP status mapping
type Kind int

const (
	KindInvalidInput Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInternal
)

// Conflict codes surfaced to clients so they can render actionable messages
const (
	CodeProductUnavailable = "product_unavailable"
	CodeVariantNotFound    = "variant_not_found"
	CodeInsufficientStock  = "insufficient_stock"
	CodeEmptyCart          = "empty_cart"
	CodeDuplicate          = "duplicate"
)

// ConflictDetail carries structured context for business-rule conflicts
type ConflictDetail struct {
	ProductID  uint   `json:"product_id,omitempty"`
	VariantSKU string `json:"variant_sku,omitempty"`
	Available  *int   `json:"available,omitempty"`
	Field      string `json:"field,omitempty"`
}

// Error is the error type returned by domain services
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Detail  *ConflictDetail
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidInput reports missing or malformed request data
func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// Unauthorized reports a missing or invalid identity
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Forbidden reports an authenticated but disallowed access
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound reports a missing referenced entity
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict reports a business-rule violation discovered during validation
func Conflict(code, message string, detail *ConflictDetail) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message, Detail: detail}
}

// Internal wraps an unexpected failure; the cause is logged, never surfaced
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// From extracts an *Error from err, wrapping unknown errors as internal
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// HTTPStatus maps an error to its HTTP status code
func HTTPStatus(err error) int {
	switch From(err).Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// IsCode reports whether err carries the given conflict code
func IsCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
