// File: internal/domain/otp_record.go
package domain

import (
	"time"
)

// OtpStatus is the lifecycle state of an issued code.
type OtpStatus string

const (
	OtpStatusActive   OtpStatus = "active"
	OtpStatusVerified OtpStatus = "verified"
	OtpStatusExpired  OtpStatus = "expired"
)

// OtpPurpose distinguishes the flow a code was issued for.
type OtpPurpose string

const (
	OtpPurposeLogin         OtpPurpose = "login"
	OtpPurposeRegistration  OtpPurpose = "registration"
	OtpPurposePasswordReset OtpPurpose = "password_reset"
)

// IsValid reports whether p is one of the known purposes.
func (p OtpPurpose) IsValid() bool {
	switch p {
	case OtpPurposeLogin, OtpPurposeRegistration, OtpPurposePasswordReset:
		return true
	}
	return false
}

// OtpRecord is one issued code. Only the HMAC of the code is ever stored.
type OtpRecord struct {
	ID          string     `gorm:"primaryKey;size:36"`
	PhoneNumber string     `gorm:"index:idx_otp_target;not null;size:15"`
	CountryCode string     `gorm:"index:idx_otp_target;not null;size:5"`
	Purpose     OtpPurpose `gorm:"not null;size:20;index"`
	CodeHash    string     `gorm:"not null;size:64" json:"-"`

	// ActiveKey is set only while Status is active. The unique index lets the
	// database itself refuse a second active code for the same target/purpose.
	ActiveKey *string `gorm:"uniqueIndex;size:64" json:"-"`

	Attempts    int       `gorm:"not null;default:0"`
	MaxAttempts int       `gorm:"not null"`
	Status      OtpStatus `gorm:"not null;size:10;index"`
	ExpiresAt   time.Time `gorm:"index;not null"`
	VerifiedAt  *time.Time

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// ActiveKeyFor builds the uniqueness key shared by all records of one target and purpose.
func ActiveKeyFor(phone, countryCode string, purpose OtpPurpose) string {
	return countryCode + "|" + phone + "|" + string(purpose)
}

// IsExpiredAt checks the wall-clock expiry only, independent of Status. The
// expiry instant itself is still valid.
func (r *OtpRecord) IsExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// RemainingAttempts never goes below zero.
func (r *OtpRecord) RemainingAttempts() int {
	if r.Attempts >= r.MaxAttempts {
		return 0
	}
	return r.MaxAttempts - r.Attempts
}
