package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-otpguard/internal/services/resilience"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *SMSIRProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSMSIRProvider(&Config{
		AccessKey:  "test-key",
		LineNumber: "30007732",
		APIURL:     srv.URL,
		Timeout:    time.Second,
	})
}

func TestSMSIRProviderSendTextPayload(t *testing.T) {
	var got map[string]interface{}
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := provider.SendText(context.Background(), "9123456789", "+98", "hello")
	require.NoError(t, err)
	assert.Equal(t, "30007732", got["lineNumber"])
	assert.Equal(t, "hello", got["messageText"])
	assert.Equal(t, []interface{}{"989123456789"}, got["mobiles"])
}

func TestSMSIRProviderClassifiesResponses(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{http.StatusTooManyRequests, ErrTypeRateLimit, true},
		{http.StatusUnauthorized, ErrTypeAuth, false},
		{http.StatusForbidden, ErrTypeAuth, false},
		{http.StatusBadRequest, ErrTypeValidation, false},
		{http.StatusInternalServerError, ErrTypeProvider, true},
		{http.StatusBadGateway, ErrTypeProvider, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status":0,"message":"provider detail"}`))
			})

			err := provider.SendText(context.Background(), "9123456789", "+98", "hello")
			var smsErr *SMSError
			require.True(t, errors.As(err, &smsErr))
			assert.Equal(t, tt.wantType, smsErr.Type)
			assert.Equal(t, tt.status, smsErr.ProviderCode())
			assert.Equal(t, tt.retryable, resilience.IsRetryable(err))
		})
	}
}

func TestSMSIRProviderTimeoutIsRetryable(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := provider.SendText(ctx, "9123456789", "+98", "hello")

	var smsErr *SMSError
	require.True(t, errors.As(err, &smsErr))
	assert.Equal(t, ErrTypeTimeout, smsErr.Type)
	assert.True(t, resilience.IsRetryable(err))
}

func TestSMSIRProviderRejectsEmptyInput(t *testing.T) {
	provider := NewSMSIRProvider(&Config{APIURL: "http://127.0.0.1:1", Timeout: time.Second})
	err := provider.SendText(context.Background(), "", "+98", "hello")
	assert.False(t, resilience.IsRetryable(err))
}

type captureLogger struct {
	entries []map[string]interface{}
}

func (c *captureLogger) record(msg string, kv ...interface{}) {
	entry := map[string]interface{}{"msg": msg}
	for i := 0; i+1 < len(kv); i += 2 {
		entry[kv[i].(string)] = kv[i+1]
	}
	c.entries = append(c.entries, entry)
}

func (c *captureLogger) Info(msg string, kv ...interface{})  { c.record(msg, kv...) }
func (c *captureLogger) Error(msg string, kv ...interface{}) { c.record(msg, kv...) }
func (c *captureLogger) Debug(msg string, kv ...interface{}) { c.record(msg, kv...) }
func (c *captureLogger) Warn(msg string, kv ...interface{})  { c.record(msg, kv...) }

func TestLogProviderMasksDigits(t *testing.T) {
	logger := &captureLogger{}
	provider := NewLogProvider(logger)

	require.NoError(t, provider.SendText(context.Background(), "9123456789", "+98", "Your code is 482913"))
	require.Len(t, logger.entries, 1)
	assert.Equal(t, "Your code is ******", logger.entries[0]["message"])
	assert.Equal(t, "+989****", logger.entries[0]["phone"])
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+989****", MaskPhone("+989123456789"))
	assert.Equal(t, "12****", MaskPhone("12"))
	assert.Equal(t, "****", MaskPhone(""))
}

func TestConfigValidate(t *testing.T) {
	valid := Config{AccessKey: "k", LineNumber: "3000", APIURL: "https://api.sms.ir/v1/send/bulk", Timeout: time.Second}
	require.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*Config){
		"missing key":  func(c *Config) { c.AccessKey = "" },
		"missing url":  func(c *Config) { c.APIURL = "" },
		"missing line": func(c *Config) { c.LineNumber = "" },
		"zero timeout": func(c *Config) { c.Timeout = 0 },
	} {
		cfg := valid
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
