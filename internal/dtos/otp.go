// File: internal/dtos/otp.go
package dtos

import (
	"strings"

	"github.com/iyunix/go-otpguard/internal/domain"
)

// SendOTPRequestDTO is the payload of POST /api/otp/send.
type SendOTPRequestDTO struct {
	PhoneNumber string `json:"phone_number"`
	CountryCode string `json:"country_code"`
	Purpose     string `json:"purpose"`
}

// VerifyOTPRequestDTO is the payload of POST /api/otp/verify.
type VerifyOTPRequestDTO struct {
	PhoneNumber string `json:"phone_number"`
	CountryCode string `json:"country_code"`
	Purpose     string `json:"purpose"`
	Code        string `json:"code"`
}

// OTPResponseDTO wraps a CommunicationResult. VerificationToken is only set
// after a successful verify.
type OTPResponseDTO struct {
	domain.CommunicationResult
	VerificationToken string `json:"verification_token,omitempty"`
	TokenExpiresIn    int    `json:"token_expires_in,omitempty"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HealthResponseDTO is returned by GET /health.
type HealthResponseDTO struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Provider string `json:"provider"`
	Gateway  string `json:"gateway"`
}

// ParsePurpose trims and lower-cases the purpose; an empty value means login.
func ParsePurpose(raw string) domain.OtpPurpose {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return domain.OtpPurposeLogin
	}
	return domain.OtpPurpose(raw)
}

// CreateErrorResponse creates a standard error response
func CreateErrorResponse(msg string) ErrorResponse {
	return ErrorResponse{Success: false, Error: msg}
}
