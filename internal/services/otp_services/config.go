// File: internal/services/otp_services/config.go
package otp_services

import (
	"errors"
	"time"
)

// Config holds the OTP lifecycle tunables.
type Config struct {
	Expiry            time.Duration
	MaxAttempts       int
	RateWindow        time.Duration
	MaxSendsPerWindow int
	Retention         time.Duration
}

// DefaultConfig returns the compiled-in defaults.
func DefaultConfig() Config {
	return Config{
		Expiry:            5 * time.Minute,
		MaxAttempts:       3,
		RateWindow:        60 * time.Minute,
		MaxSendsPerWindow: 5,
		Retention:         24 * time.Hour,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Expiry <= 0 {
		return errors.New("otp expiry must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("otp max attempts must be at least 1")
	}
	if c.RateWindow <= 0 {
		return errors.New("otp rate window must be positive")
	}
	if c.MaxSendsPerWindow < 1 {
		return errors.New("otp max sends per window must be at least 1")
	}
	if c.Retention < c.Expiry {
		return errors.New("otp retention must not be shorter than the expiry window")
	}
	return nil
}
