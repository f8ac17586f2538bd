// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Kind is the closed set of error categories rendered at the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindAdmissionBlocked
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAdmissionBlocked:
		return "admission_blocked"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Kind    Kind
	Code    string
	Title   string
	Message string
	Status  int
	Details []FieldError
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Title
	if e.Message != "" {
		msg = e.Title + ": " + e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func ValidationError(details []FieldError) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    "VALIDATION_FAILED",
		Title:   "Validation failed",
		Status:  http.StatusBadRequest,
		Details: details,
		Err:     ErrInvalidInput,
	}
}

func UnauthorizedError(message string) *AppError {
	return &AppError{
		Kind:    KindUnauthenticated,
		Code:    "UNAUTHORIZED",
		Title:   "Authentication required",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

func InvalidCredentialsError() *AppError {
	return &AppError{
		Kind:   KindUnauthenticated,
		Code:   "INVALID_CREDENTIALS",
		Title:  "Invalid email or password",
		Status: http.StatusUnauthorized,
		Err:    ErrUnauthorized,
	}
}

func TokenExpiredError() *AppError {
	return &AppError{
		Kind:    KindUnauthenticated,
		Code:    "TOKEN_EXPIRED",
		Title:   "Authentication failed",
		Message: "Token has expired",
		Status:  http.StatusUnauthorized,
		Err:     ErrTokenExpired,
	}
}

func TokenRevokedError() *AppError {
	return &AppError{
		Kind:    KindUnauthenticated,
		Code:    "TOKEN_REVOKED",
		Title:   "Authentication failed",
		Message: "Token has been revoked",
		Status:  http.StatusUnauthorized,
		Err:     ErrTokenRevoked,
	}
}

func TokenInvalidError() *AppError {
	return &AppError{
		Kind:    KindUnauthenticated,
		Code:    "TOKEN_INVALID",
		Title:   "Authentication failed",
		Message: "Invalid token",
		Status:  http.StatusUnauthorized,
		Err:     ErrTokenInvalid,
	}
}

func ForbiddenError(message string) *AppError {
	return &AppError{
		Kind:    KindForbidden,
		Code:    "FORBIDDEN",
		Title:   "Forbidden",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

func NotFoundError(resource string) *AppError {
	return &AppError{
		Kind:   KindNotFound,
		Code:   "NOT_FOUND",
		Title:  resource + " not found",
		Status: http.StatusNotFound,
		Err:    ErrNotFound,
	}
}

func DuplicateError(title string) *AppError {
	return &AppError{
		Kind:   KindConflict,
		Code:   "DUPLICATE",
		Title:  title,
		Status: http.StatusConflict,
		Err:    ErrDuplicateKey,
	}
}

// BlockedError is an admission denial. Status is 429 for rate limiting and
// 403 for every other reason.
func BlockedError(code, title, message string, status int) *AppError {
	return &AppError{
		Kind:    KindAdmissionBlocked,
		Code:    code,
		Title:   title,
		Message: message,
		Status:  status,
	}
}

func UnavailableError(message string) *AppError {
	return &AppError{
		Kind:    KindUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Title:   "Service Unavailable",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrServiceUnavailable,
	}
}

func InternalError(err error) *AppError {
	return &AppError{
		Kind:   KindInternal,
		Code:   "INTERNAL_ERROR",
		Title:  "Internal server error",
		Status: http.StatusInternalServerError,
		Err:    err,
	}
}
