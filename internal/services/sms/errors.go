// File: internal/services/sms/errors.go
package sms

import (
	"fmt"

	"github.com/iyunix/go-otpguard/internal/services/resilience"
)

type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeTimeout    ErrorType = "TIMEOUT"
	ErrTypeProvider   ErrorType = "PROVIDER"
	ErrTypeAuth       ErrorType = "AUTH"
	ErrTypeRateLimit  ErrorType = "RATE_LIMIT"
	ErrTypeValidation ErrorType = "VALIDATION"
)

// SMSError is the only error type providers return. Message may hold provider
// response text; it is for server logs only.
type SMSError struct {
	Type    ErrorType
	Code    int
	Message string
	Cause   error
}

func (e *SMSError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("SMS %s error: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("SMS %s error: %s", e.Type, e.Message)
}

func (e *SMSError) Unwrap() error {
	return e.Cause
}

// Category maps the provider error type onto the shared retry taxonomy.
func (e *SMSError) Category() resilience.Category {
	switch e.Type {
	case ErrTypeConfig, ErrTypeAuth:
		return resilience.CategoryAuthorization
	case ErrTypeValidation:
		return resilience.CategoryValidation
	case ErrTypeNetwork:
		return resilience.CategoryNetwork
	case ErrTypeTimeout:
		return resilience.CategoryTimeout
	case ErrTypeRateLimit:
		return resilience.CategoryRateLimit
	default:
		return resilience.CategoryServiceUnavailable
	}
}

func (e *SMSError) ProviderCode() int {
	return e.Code
}
