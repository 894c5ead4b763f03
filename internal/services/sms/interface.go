// File: internal/services/sms/interface.go
package sms

import "context"

// Gateway delivers a text message to a phone number. A nil error means the
// provider accepted the message.
type Gateway interface {
	SendText(ctx context.Context, phone, countryCode, message string) error
}

// Provider is a named Gateway that can report whether it is able to deliver.
type Provider interface {
	Gateway
	Name() string
	HealthCheck(ctx context.Context) error
}

// Logger interface for SMS providers
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
