package errors

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Common error values for the admin client
var (
	// Session errors
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired")

	// Identity provider errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPopupClosed        = errors.New("sign-in window closed")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrWeakPassword       = errors.New("password too weak")

	// Backend errors
	ErrMissingID  = errors.New("record id is required")
	ErrBadPayload = errors.New("unexpected response payload")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("not allowed")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// AuthErrorKind classifies authentication failures.
type AuthErrorKind string

const (
	InvalidCredentials        AuthErrorKind = "invalid_credentials"
	BackendVerificationFailed AuthErrorKind = "backend_verification_failed"
	PopupClosed               AuthErrorKind = "popup_closed"
)

// AuthError is returned by the session store for login and registration failures.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + string(e.Kind)
	}
	return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError builds an AuthError of the given kind.
func NewAuthError(kind AuthErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

// IsAuthKind reports whether err carries an AuthError of kind.
func IsAuthKind(err error, kind AuthErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

// APIErrorKind classifies backend call failures.
type APIErrorKind string

const (
	APIStatus    APIErrorKind = "status"
	NetworkError APIErrorKind = "network"
	Timeout      APIErrorKind = "timeout"
)

// APIError is the failure of one backend request.
type APIError struct {
	Kind    APIErrorKind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case APIStatus:
		if e.Message == "" {
			return fmt.Sprintf("api: status %d", e.Status)
		}
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	case Timeout:
		return "api: request timed out"
	default:
		if e.Err != nil {
			return fmt.Sprintf("api: network error: %v", e.Err)
		}
		return "api: network error"
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the request may succeed.
func (e *APIError) Transient() bool {
	return e.Kind != APIStatus || e.Status >= 500 || e.Status == 429
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// CacheError reports a failed fetch for a cache key; stale data may have been retained.
type CacheError struct {
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// ValidationError lists the fields of an input that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, field+" "+e.Fields[field])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error with the given text
func New(text string) error {
	return errors.New(text)
}
