// File: internal/repository/otp/otp_repository.go
package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iyunix/go-otpguard/internal/domain"
)

// maxReplaceRetries bounds how often ReplaceActive retries after losing a
// unique-key race to a concurrent insert.
const maxReplaceRetries = 5

// GormStore implements Store on top of GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new OTP store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the otp_records table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.OtpRecord{})
}

func (s *GormStore) StoreRecord(ctx context.Context, record *domain.OtpRecord) (string, error) {
	prepareRecord(record)
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if isDuplicateKey(err) {
			return "", fmt.Errorf("active otp already exists: %w", err)
		}
		return "", fmt.Errorf("failed to store otp record: %w", err)
	}
	return record.ID, nil
}

func (s *GormStore) ReplaceActive(ctx context.Context, record *domain.OtpRecord, quota *SendQuota) (string, int64, error) {
	prepareRecord(record)

	var lastErr error
	for i := 0; i < maxReplaceRetries; i++ {
		var expired int64
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := lockTarget(tx, record.PhoneNumber, record.CountryCode); err != nil {
				return err
			}
			if quota != nil {
				sent, err := countRecentSends(tx, record.PhoneNumber, record.CountryCode, quota.Since)
				if err != nil {
					return err
				}
				if sent >= int64(quota.Max) {
					return ErrSendQuotaExceeded
				}
			}
			res := expireActive(tx, record.PhoneNumber, record.CountryCode, record.Purpose)
			if res.Error != nil {
				return res.Error
			}
			expired = res.RowsAffected
			return tx.Create(record).Error
		})
		if err == nil {
			return record.ID, expired, nil
		}
		if errors.Is(err, ErrSendQuotaExceeded) {
			return "", 0, err
		}
		if !isDuplicateKey(err) {
			return "", 0, fmt.Errorf("failed to replace active otp: %w", err)
		}
		// a concurrent send committed first; expire it and try again
		lastErr = err
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
	}
	return "", 0, fmt.Errorf("failed to replace active otp after %d attempts: %w", maxReplaceRetries, lastErr)
}

func (s *GormStore) GetActiveRecord(ctx context.Context, phone, countryCode string, purpose domain.OtpPurpose) (*domain.OtpRecord, error) {
	var record domain.OtpRecord
	err := s.db.WithContext(ctx).
		Where("phone_number = ? AND country_code = ? AND purpose = ? AND status = ?",
			phone, countryCode, purpose, domain.OtpStatusActive).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load active otp: %w", err)
	}
	return &record, nil
}

func (s *GormStore) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.OtpRecord{}).
			Where("id = ? AND status = ? AND attempts < max_attempts", id, domain.OtpStatusActive).
			Updates(map[string]interface{}{
				"attempts": gorm.Expr("attempts + 1"),
				"status": gorm.Expr("CASE WHEN attempts + 1 >= max_attempts THEN ? ELSE status END",
					domain.OtpStatusExpired),
				"active_key": gorm.Expr("CASE WHEN attempts + 1 >= max_attempts THEN NULL ELSE active_key END"),
			})
		if res.Error != nil {
			return res.Error
		}

		var record domain.OtpRecord
		if err := tx.Select("attempts", "max_attempts", "status").Where("id = ?", id).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		if res.RowsAffected == 0 {
			if record.Attempts >= record.MaxAttempts {
				return ErrAttemptsExhausted
			}
			return ErrNotActive
		}
		attempts = record.Attempts
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrNotActive) || errors.Is(err, ErrAttemptsExhausted) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to increment otp attempts: %w", err)
	}
	return attempts, nil
}

// MarkVerified succeeds only for a record that is still active, unexpired at
// the given time and below its attempt limit. The expiry instant itself is
// still valid, matching OtpRecord.IsExpiredAt.
func (s *GormStore) MarkVerified(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	res := s.db.WithContext(ctx).Model(&domain.OtpRecord{}).
		Where("id = ? AND status = ? AND attempts < max_attempts AND expires_at >= ?",
			id, domain.OtpStatusActive, at).
		Updates(map[string]interface{}{
			"status":      domain.OtpStatusVerified,
			"verified_at": at,
			"active_key":  nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark otp verified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotActive
	}
	return nil
}

// MarkExpired is idempotent; expiring a record that is no longer active is not an error.
func (s *GormStore) MarkExpired(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&domain.OtpRecord{}).
		Where("id = ? AND status = ?", id, domain.OtpStatusActive).
		Updates(map[string]interface{}{
			"status":     domain.OtpStatusExpired,
			"active_key": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark otp expired: %w", res.Error)
	}
	return nil
}

func (s *GormStore) ExpireAllActive(ctx context.Context, phone, countryCode string, purpose domain.OtpPurpose) (int64, error) {
	res := expireActive(s.db.WithContext(ctx), phone, countryCode, purpose)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire active otps: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountRecentSends counts records issued to the target since the given time,
// across every purpose and status.
func (s *GormStore) CountRecentSends(ctx context.Context, phone, countryCode string, since time.Time) (int64, error) {
	count, err := countRecentSends(s.db.WithContext(ctx), phone, countryCode, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent sends: %w", err)
	}
	return count, nil
}

// CleanupOlderThan hard-deletes records created before cutoff, whatever their status.
func (s *GormStore) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Delete(&domain.OtpRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clean up otp records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func countRecentSends(db *gorm.DB, phone, countryCode string, since time.Time) (int64, error) {
	var count int64
	err := db.Model(&domain.OtpRecord{}).
		Where("phone_number = ? AND country_code = ? AND created_at >= ?", phone, countryCode, since.UTC()).
		Count(&count).Error
	return count, err
}

// lockTarget serialises sends to one phone number until the transaction ends.
// SQLite already serialises writers; Postgres needs an advisory lock because
// the quota check reads rows that concurrent sends have not inserted yet.
func lockTarget(tx *gorm.DB, phone, countryCode string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", countryCode+"|"+phone).Error
}

func expireActive(db *gorm.DB, phone, countryCode string, purpose domain.OtpPurpose) *gorm.DB {
	return db.Model(&domain.OtpRecord{}).
		Where("phone_number = ? AND country_code = ? AND purpose = ? AND status = ?",
			phone, countryCode, purpose, domain.OtpStatusActive).
		Updates(map[string]interface{}{
			"status":     domain.OtpStatusExpired,
			"active_key": nil,
		})
}

func prepareRecord(record *domain.OtpRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = domain.OtpStatusActive
	}
	if record.Status == domain.OtpStatusActive {
		key := domain.ActiveKeyFor(record.PhoneNumber, record.CountryCode, record.Purpose)
		record.ActiveKey = &key
	} else {
		record.ActiveKey = nil
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.ExpiresAt = record.ExpiresAt.UTC()
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
