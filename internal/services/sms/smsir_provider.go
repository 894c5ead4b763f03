// File: internal/services/sms/smsir_provider.go
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
)

const maxErrorBodyBytes = 1024

type SMSIRProvider struct {
	config *Config
	client *http.Client
}

func NewSMSIRProvider(config *Config) *SMSIRProvider {
	return &SMSIRProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func (p *SMSIRProvider) Name() string {
	return "smsir"
}

// SendText uses the Sms.ir bulk endpoint with a plain message body.
func (p *SMSIRProvider) SendText(ctx context.Context, phone, countryCode, message string) error {
	if phone == "" || message == "" {
		return &SMSError{Type: ErrTypeValidation, Message: "phone and message are required"}
	}

	payload := map[string]interface{}{
		"lineNumber":  p.config.LineNumber,
		"messageText": message,
		"mobiles":     []string{internationalMobile(phone, countryCode)},
	}

	return p.sendRequest(ctx, payload)
}

func (p *SMSIRProvider) sendRequest(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &SMSError{Type: ErrTypeValidation, Message: "invalid payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIURL, bytes.NewBuffer(body))
	if err != nil {
		return &SMSError{Type: ErrTypeConfig, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", p.config.AccessKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &SMSError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return &SMSError{Type: ErrTypeNetwork, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	return p.handleResponse(resp)
}

func (p *SMSIRProvider) handleResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &SMSError{Type: ErrTypeRateLimit, Code: resp.StatusCode, Message: "rate limit exceeded"}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &SMSError{Type: ErrTypeAuth, Code: resp.StatusCode, Message: "provider rejected credentials"}
	case resp.StatusCode == http.StatusRequestTimeout:
		return &SMSError{Type: ErrTypeTimeout, Code: resp.StatusCode, Message: "provider timed out"}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &SMSError{Type: ErrTypeValidation, Code: resp.StatusCode, Message: string(responseBody)}
	}

	return &SMSError{
		Type:    ErrTypeProvider,
		Code:    resp.StatusCode,
		Message: string(responseBody),
	}
}

func (p *SMSIRProvider) HealthCheck(ctx context.Context) error {
	if err := p.config.Validate(); err != nil {
		return &SMSError{Type: ErrTypeConfig, Message: err.Error()}
	}
	return nil
}

func internationalMobile(phone, countryCode string) string {
	return strings.TrimPrefix(countryCode, "+") + phone
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
