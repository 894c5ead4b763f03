// File: internal/services/sms/config.go
package sms

import (
	"fmt"
	"time"
)

type Config struct {
	AccessKey  string
	LineNumber string
	APIURL     string
	Timeout    time.Duration
}

func (c *Config) Validate() error {
	if c.AccessKey == "" {
		return fmt.Errorf("SMS_ACCESS_KEY is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("SMS_API_URL is required")
	}
	if c.LineNumber == "" {
		return fmt.Errorf("SMS_LINE_NUMBER is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("SMS timeout must be positive")
	}
	return nil
}
