// File: internal/services/resilience/errors.go
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrCircuitOpen is returned when the breaker rejects a call without attempting it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Category tags an outbound failure for retry decisions.
type Category string

const (
	CategoryValidation         Category = "VALIDATION"
	CategoryNotFound           Category = "NOT_FOUND"
	CategoryBusinessRule       Category = "BUSINESS_RULE"
	CategoryAuthorization      Category = "AUTHORIZATION"
	CategoryNetwork            Category = "NETWORK"
	CategoryTimeout            Category = "TIMEOUT"
	CategoryRateLimit          Category = "RATE_LIMIT"
	CategoryServiceUnavailable Category = "SERVICE_UNAVAILABLE"
	CategoryTransient          Category = "TRANSIENT"
)

// Classified is implemented by errors that know their own category.
// ProviderCode is an optional provider specific status (0 when unknown).
type Classified interface {
	error
	Category() Category
	ProviderCode() int
}

// OperationError is a generic classified error for callers without their own type.
type OperationError struct {
	Kind    Category
	Code    int
	Message string
	Cause   error
}

func (e *OperationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *OperationError) Unwrap() error      { return e.Cause }
func (e *OperationError) Category() Category { return e.Kind }
func (e *OperationError) ProviderCode() int  { return e.Code }

// IsRetryableCategory is the pure classification rule: validation-class and
// authorization failures are terminal, a 4xx provider code is terminal unless
// it signals a timeout or throttling, everything else may be retried.
func IsRetryableCategory(category Category, providerCode int) bool {
	switch category {
	case CategoryValidation, CategoryNotFound, CategoryBusinessRule, CategoryAuthorization:
		return false
	}
	if providerCode >= 400 && providerCode < 500 {
		switch providerCode {
		case 408, 425, 429:
			return true
		}
		return false
	}
	return true
}

// CategoryOf resolves the category of an arbitrary error. Unknown errors are transient.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	var classified Classified
	if errors.As(err, &classified) {
		return classified.Category()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if errors.Is(err, ErrCircuitOpen) {
		return CategoryServiceUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}
	return CategoryTransient
}

// IsRetryable decides whether err is worth another attempt.
// A cancelled context is never retried; a deadline is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var classified Classified
	if errors.As(err, &classified) {
		return IsRetryableCategory(classified.Category(), classified.ProviderCode())
	}
	return IsRetryableCategory(CategoryOf(err), 0)
}
