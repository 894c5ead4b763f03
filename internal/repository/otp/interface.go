// File: internal/repository/otp/interface.go
package otp

import (
	"context"
	"errors"
	"time"

	"github.com/iyunix/go-otpguard/internal/domain"
)

var (
	ErrRecordNotFound    = errors.New("otp record not found")
	ErrNotActive         = errors.New("otp record is not active")
	ErrAttemptsExhausted = errors.New("otp attempts exhausted")
	ErrSendQuotaExceeded = errors.New("otp send quota exceeded")
)

// SendQuota caps how many records one phone number may be issued, across all
// purposes, since a point in time.
type SendQuota struct {
	Since time.Time
	Max   int
}

// Store persists OtpRecords. Implementations must keep at most one active
// record per (phone, country code, purpose) and must bound attempts at the
// store level.
type Store interface {
	// StoreRecord inserts an active record and returns its ID.
	StoreRecord(ctx context.Context, record *domain.OtpRecord) (string, error)
	// ReplaceActive expires every active record of the same target and
	// purpose and inserts record, as one atomic step. A non-nil quota is
	// checked in the same transaction and fails with ErrSendQuotaExceeded.
	ReplaceActive(ctx context.Context, record *domain.OtpRecord, quota *SendQuota) (string, int64, error)
	GetActiveRecord(ctx context.Context, phone, countryCode string, purpose domain.OtpPurpose) (*domain.OtpRecord, error)
	// IncrementAttempts adds one attempt to an active record and returns the
	// new count. A record reaching its maximum is expired in the same write.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	// MarkVerified succeeds while expires_at >= at; a code is expired only
	// strictly after its expiry instant.
	MarkVerified(ctx context.Context, id string, at time.Time) error
	MarkExpired(ctx context.Context, id string) error
	ExpireAllActive(ctx context.Context, phone, countryCode string, purpose domain.OtpPurpose) (int64, error)
	CountRecentSends(ctx context.Context, phone, countryCode string, since time.Time) (int64, error)
	CleanupOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
