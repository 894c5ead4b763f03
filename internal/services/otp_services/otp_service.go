// File: internal/services/otp_services/otp_service.go
package otp_services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iyunix/go-otpguard/internal/domain"
	"github.com/iyunix/go-otpguard/internal/repository/otp"
	"github.com/iyunix/go-otpguard/internal/services/phone"
	"github.com/iyunix/go-otpguard/internal/services/resilience"
	"github.com/iyunix/go-otpguard/internal/services/sms"
)

// User facing messages. None of them carry internal detail.
const (
	msgSent             = "Verification code sent successfully"
	msgVerified         = "Code verified successfully"
	msgInvalidPurpose   = "Invalid verification purpose"
	msgInvalidFormat    = "Code must be exactly 6 digits"
	msgRateLimited      = "Too many code requests. Please try again later."
	msgNoActive         = "No active OTP found. Please request a new code."
	msgExpired          = "Code has expired. Please request a new code."
	msgAttemptsExceeded = "Maximum verification attempts exceeded. Please request a new code."
	msgUnavailable      = "SMS service is temporarily unavailable. Please try again later."
	msgTryAgain         = "Something went wrong. Please try again."
)

// Service owns the OTP lifecycle: issue, dispatch, verify and cleanup.
type Service struct {
	store     otp.Store
	gateway   sms.Provider
	executor  *resilience.Executor
	validator *phone.Validator
	hasher    *CodeHasher
	config    Config
	logger    Logger

	now          func() time.Time
	generateCode func() (string, error)
}

// NewService wires the OTP service. executor may carry a circuit breaker for
// the gateway.
func NewService(
	store otp.Store,
	gateway sms.Provider,
	executor *resilience.Executor,
	validator *phone.Validator,
	hasher *CodeHasher,
	config Config,
	logger Logger,
) *Service {
	return &Service{
		store:        store,
		gateway:      gateway,
		executor:     executor,
		validator:    validator,
		hasher:       hasher,
		config:       config,
		logger:       logger,
		now:          time.Now,
		generateCode: GenerateCode,
	}
}

// SendOTP issues a fresh code for (phone, purpose), superseding any active one,
// and dispatches it through the gateway.
func (s *Service) SendOTP(ctx context.Context, phoneNumber, countryCode string, purpose domain.OtpPurpose) domain.CommunicationResult {
	if !purpose.IsValid() {
		return domain.NewFailureResult(Domain, domain.ErrorTypeValidation, msgInvalidPurpose, nil)
	}
	national, cc, err := s.validator.Normalize(phoneNumber, countryCode)
	if err != nil {
		return s.validationFailure(err)
	}
	target := phone.E164(national, cc)
	masked := sms.MaskPhone(target)
	now := s.now()

	plain, err := s.generateCode()
	if err != nil {
		s.logger.Error("failed to generate otp code", "error", err)
		return s.transientFailure()
	}

	record := &domain.OtpRecord{
		PhoneNumber: national,
		CountryCode: cc,
		Purpose:     purpose,
		CodeHash:    s.hasher.HashCode(plain, target),
		MaxAttempts: s.config.MaxAttempts,
		Status:      domain.OtpStatusActive,
		ExpiresAt:   now.Add(s.config.Expiry),
		CreatedAt:   now,
	}
	quota := &otp.SendQuota{Since: now.Add(-s.config.RateWindow), Max: s.config.MaxSendsPerWindow}
	id, superseded, err := s.store.ReplaceActive(ctx, record, quota)
	if errors.Is(err, otp.ErrSendQuotaExceeded) {
		s.logger.Warn("otp send rate limited", "phone", masked, "purpose", purpose, "max_per_window", quota.Max)
		return domain.NewFailureResult(Domain, domain.ErrorTypeRateLimit, msgRateLimited,
			&domain.ResultMetadata{RateLimited: true})
	}
	if err != nil {
		s.logger.Error("failed to store otp record", "phone", masked, "purpose", purpose, "error", err)
		return s.transientFailure()
	}
	if superseded > 0 {
		s.logger.Debug("superseded active otp", "phone", masked, "purpose", purpose, "count", superseded)
	}

	message := s.composeMessage(plain)
	result := s.executor.ExecuteWithProtection(ctx, func(ctx context.Context) error {
		return s.gateway.SendText(ctx, national, cc, message)
	})
	if !result.Success {
		// The record stays active; a resend supersedes it.
		s.logger.Error("otp dispatch failed",
			"provider", s.gateway.Name(),
			"phone", masked,
			"purpose", purpose,
			"record_id", id,
			"attempts", result.Attempts,
			"circuit_open", result.CircuitOpen,
			"error", result.Err)
		return domain.NewFailureResult(Domain, domain.ErrorTypeServiceUnavailable, msgUnavailable, nil)
	}

	s.logger.Info("otp sent",
		"phone", masked,
		"purpose", purpose,
		"record_id", id,
		"code", "******",
		"attempts", result.Attempts)
	return domain.NewSuccessResult(Domain, msgSent, &domain.ResultMetadata{
		ExpiresIn:   domain.IntPtr(int(s.config.Expiry / time.Second)),
		MaxAttempts: domain.IntPtr(s.config.MaxAttempts),
	})
}

// VerifyOTP checks a supplied code against the active record for (phone, purpose).
func (s *Service) VerifyOTP(ctx context.Context, phoneNumber, countryCode string, purpose domain.OtpPurpose, supplied string) domain.CommunicationResult {
	if !purpose.IsValid() {
		return domain.NewFailureResult(Domain, domain.ErrorTypeValidation, msgInvalidPurpose, nil)
	}
	national, cc, err := s.validator.Normalize(phoneNumber, countryCode)
	if err != nil {
		return s.validationFailure(err)
	}
	if !isWellFormedCode(supplied) {
		return domain.NewFailureResult(Domain, domain.ErrorTypeValidation, msgInvalidFormat, nil)
	}
	target := phone.E164(national, cc)
	masked := sms.MaskPhone(target)
	now := s.now()

	record, err := s.store.GetActiveRecord(ctx, national, cc, purpose)
	if err != nil {
		if errors.Is(err, otp.ErrRecordNotFound) {
			return domain.NewFailureResult(Domain, domain.ErrorTypeValidation, msgNoActive, nil)
		}
		s.logger.Error("failed to load active otp", "phone", masked, "error", err)
		return s.transientFailure()
	}

	if record.IsExpiredAt(now) {
		s.expire(ctx, record.ID, masked)
		return domain.NewFailureResult(Domain, domain.ErrorTypeValidation, msgExpired,
			&domain.ResultMetadata{Expired: true})
	}
	if record.Attempts >= record.MaxAttempts {
		s.expire(ctx, record.ID, masked)
		return s.attemptsExceeded(record.Attempts, record.MaxAttempts)
	}

	if !s.hasher.VerifyHash(supplied, record.CodeHash, target) {
		return s.recordWrongGuess(ctx, record, masked)
	}

	if err := s.store.MarkVerified(ctx, record.ID, now); err != nil {
		if errors.Is(err, otp.ErrNotActive) {
			// lost a race with another verify, an expiry or a resend
			return domain.NewFailureResult(Domain, domain.ErrorTypeValidation, msgNoActive, nil)
		}
		s.logger.Error("failed to mark otp verified", "phone", masked, "record_id", record.ID, "error", err)
		return s.transientFailure()
	}

	s.logger.Info("otp verified", "phone", masked, "purpose", purpose, "record_id", record.ID)
	return domain.NewSuccessResult(Domain, msgVerified, &domain.ResultMetadata{
		Attempts:    domain.IntPtr(record.Attempts + 1),
		MaxAttempts: domain.IntPtr(record.MaxAttempts),
	})
}

func (s *Service) recordWrongGuess(ctx context.Context, record *domain.OtpRecord, masked string) domain.CommunicationResult {
	attempts, err := s.store.IncrementAttempts(ctx, record.ID)
	switch {
	case errors.Is(err, otp.ErrAttemptsExhausted):
		return s.attemptsExceeded(record.MaxAttempts, record.MaxAttempts)
	case errors.Is(err, otp.ErrNotActive), errors.Is(err, otp.ErrRecordNotFound):
		return domain.NewFailureResult(Domain, domain.ErrorTypeValidation, msgNoActive, nil)
	case err != nil:
		s.logger.Error("failed to increment otp attempts", "phone", masked, "record_id", record.ID, "error", err)
		return s.transientFailure()
	}

	record.Attempts = attempts
	remaining := record.RemainingAttempts()
	if remaining == 0 {
		// the store expires the record in the same write
		s.logger.Warn("otp attempts exhausted", "phone", masked, "record_id", record.ID)
		return s.attemptsExceeded(attempts, record.MaxAttempts)
	}

	s.logger.Warn("invalid otp code", "phone", masked, "record_id", record.ID, "attempts", attempts)
	return domain.NewFailureResult(Domain, domain.ErrorTypeValidation,
		fmt.Sprintf("Invalid code. %d attempt(s) remaining.", remaining),
		&domain.ResultMetadata{
			Attempts:          domain.IntPtr(attempts),
			MaxAttempts:       domain.IntPtr(record.MaxAttempts),
			RemainingAttempts: domain.IntPtr(remaining),
		})
}

func (s *Service) attemptsExceeded(attempts, maxAttempts int) domain.CommunicationResult {
	return domain.NewFailureResult(Domain, domain.ErrorTypeValidation, msgAttemptsExceeded,
		&domain.ResultMetadata{
			Attempts:          domain.IntPtr(attempts),
			MaxAttempts:       domain.IntPtr(maxAttempts),
			RemainingAttempts: domain.IntPtr(0),
			Expired:           true,
		})
}

func (s *Service) expire(ctx context.Context, id, masked string) {
	if err := s.store.MarkExpired(ctx, id); err != nil {
		s.logger.Error("failed to expire otp", "phone", masked, "record_id", id, "error", err)
	}
}

func (s *Service) validationFailure(err error) domain.CommunicationResult {
	var vErr *phone.ValidationError
	if errors.As(err, &vErr) {
		return domain.NewFailureResult(Domain, domain.ErrorTypeValidation, vErr.Message, nil)
	}
	return domain.NewFailureResult(Domain, domain.ErrorTypeValidation, "Invalid phone number", nil)
}

func (s *Service) transientFailure() domain.CommunicationResult {
	return domain.NewFailureResult(Domain, domain.ErrorTypeTransient, msgTryAgain, nil)
}

func (s *Service) composeMessage(code string) string {
	minutes := int(s.config.Expiry / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes. Do not share it with anyone.", code, minutes)
}

// GatewayHealth asks the messaging provider whether it can deliver.
func (s *Service) GatewayHealth(ctx context.Context) error {
	return s.gateway.HealthCheck(ctx)
}

// GatewayStatus reports the circuit breaker guarding the messaging gateway.
func (s *Service) GatewayStatus() resilience.Snapshot {
	if breaker := s.executor.Breaker(); breaker != nil {
		return breaker.Snapshot()
	}
	return resilience.Snapshot{Service: "sms-gateway", State: resilience.StateClosed.String()}
}
