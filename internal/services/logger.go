// File: internal/services/logger.go
package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger defines common logging interface for all services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// ParseLevel maps LOG_LEVEL values onto slog levels. Unknown values mean INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ProductionLogger is a structured logger tagged with a service name.
type ProductionLogger struct {
	logger *slog.Logger
}

// NewProductionLogger writes JSON records when structured is true and
// human-readable text otherwise.
func NewProductionLogger(service string, w io.Writer, level slog.Level, structured bool) *ProductionLogger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if structured {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &ProductionLogger{logger: slog.New(handler).With("service", service)}
}

func (p *ProductionLogger) Info(msg string, keysAndValues ...interface{}) {
	p.log(slog.LevelInfo, msg, keysAndValues...)
}

func (p *ProductionLogger) Error(msg string, keysAndValues ...interface{}) {
	p.log(slog.LevelError, msg, keysAndValues...)
}

func (p *ProductionLogger) Debug(msg string, keysAndValues ...interface{}) {
	p.log(slog.LevelDebug, msg, keysAndValues...)
}

func (p *ProductionLogger) Warn(msg string, keysAndValues ...interface{}) {
	p.log(slog.LevelWarn, msg, keysAndValues...)
}

func (p *ProductionLogger) log(level slog.Level, msg string, keysAndValues ...interface{}) {
	// error values render as their message, not as an empty JSON object
	args := make([]interface{}, len(keysAndValues))
	copy(args, keysAndValues)
	for i := 1; i < len(args); i += 2 {
		if err, ok := args[i].(error); ok && err != nil {
			args[i] = err.Error()
		}
	}
	p.logger.Log(context.Background(), level, msg, args...)
}

// NoOpLogger is a logger that does nothing (for testing)
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *NoOpLogger) Error(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Warn(msg string, keysAndValues ...interface{})  {}

// NewLogger builds the stdout logger for a service. Production writes JSON;
// GO_ENV=test silences logging and LOG_LEVEL sets the threshold.
func NewLogger(service string, production bool) Logger {
	return newLogger(service, os.Stdout, production)
}

func newLogger(service string, w io.Writer, production bool) Logger {
	if strings.ToLower(os.Getenv("GO_ENV")) == "test" {
		return &NoOpLogger{}
	}
	return NewProductionLogger(service, w, ParseLevel(os.Getenv("LOG_LEVEL")), production)
}
