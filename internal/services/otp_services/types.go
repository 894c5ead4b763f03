package otp_services

// Logger interface for the OTP service
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Domain is the tag carried by every result produced here.
const Domain = "otp"

// CodeLength is the number of digits in an issued code.
const CodeLength = 6
