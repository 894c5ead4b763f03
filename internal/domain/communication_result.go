// File: internal/domain/communication_result.go
package domain

// ErrorType is the closed set of failure categories a caller can observe.
type ErrorType string

const (
	ErrorTypeNone               ErrorType = "none"
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeRateLimit          ErrorType = "rate_limit"
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"
	ErrorTypeTransient          ErrorType = "transient"
)

// Retryable reports whether a caller may try the same request again later.
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorTypeRateLimit, ErrorTypeServiceUnavailable, ErrorTypeTransient:
		return true
	}
	return false
}

// ResultMetadata carries optional details; unset fields are omitted.
type ResultMetadata struct {
	Attempts          *int `json:"attempts,omitempty"`
	MaxAttempts       *int `json:"maxAttempts,omitempty"`
	RemainingAttempts *int `json:"remainingAttempts,omitempty"`
	ExpiresIn         *int `json:"expiresIn,omitempty"` // seconds
	RateLimited       bool `json:"rateLimited,omitempty"`
	Expired           bool `json:"expired,omitempty"`
}

// CommunicationResult is returned by every send/verify operation. It never
// carries raw codes, provider responses or internal error text.
type CommunicationResult struct {
	Domain    string          `json:"domain"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	ErrorType ErrorType       `json:"errorType"`
	Retryable bool            `json:"retryable"`
	Metadata  *ResultMetadata `json:"metadata,omitempty"`
}

// NewSuccessResult builds a successful result for the given domain tag.
func NewSuccessResult(domain, message string, meta *ResultMetadata) CommunicationResult {
	return CommunicationResult{
		Domain:    domain,
		Success:   true,
		Message:   message,
		ErrorType: ErrorTypeNone,
		Metadata:  meta,
	}
}

// NewFailureResult builds a failed result; retryability follows the error type.
func NewFailureResult(domain string, errType ErrorType, message string, meta *ResultMetadata) CommunicationResult {
	return CommunicationResult{
		Domain:    domain,
		Success:   false,
		Message:   message,
		ErrorType: errType,
		Retryable: errType.Retryable(),
		Metadata:  meta,
	}
}

// IntPtr is a small helper for filling ResultMetadata.
func IntPtr(v int) *int {
	return &v
}
