package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrRateLimited         = errors.New("rate limited")
	ErrGenerationParse     = errors.New("generation output could not be parsed")
	ErrProviderFailure     = errors.New("provider failure")
)

// CreditShortfall is returned when a job needs more credits than available.
type CreditShortfall struct {
	Balance  int
	Required int
}

func (e *CreditShortfall) Error() string {
	return fmt.Sprintf("Insufficient credits. You have %d credits but need %d.", e.Balance, e.Required)
}

func (e *CreditShortfall) Unwrap() error { return ErrInsufficientCredits }

// QuotaError reports an item count above the per-upload cap.
type QuotaError struct {
	Kind JobKind
	Max  int
}

func (e *QuotaError) Error() string {
	noun := "items"
	if e.Kind == JobKindImage {
		noun = "images"
	}
	return fmt.Sprintf("Maximum %d %s per upload", e.Max, noun)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// ValidationError carries user facing messages keyed by field name.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// InvalidArgument wraps ErrInvalidArgument with a message safe to show users.
func InvalidArgument(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
