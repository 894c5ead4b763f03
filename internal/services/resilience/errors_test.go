package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableCategory(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		code     int
		want     bool
	}{
		{"validation", CategoryValidation, 0, false},
		{"not found", CategoryNotFound, 0, false},
		{"business rule", CategoryBusinessRule, 0, false},
		{"authorization", CategoryAuthorization, 401, false},
		{"network", CategoryNetwork, 0, true},
		{"timeout", CategoryTimeout, 0, true},
		{"service unavailable", CategoryServiceUnavailable, 503, true},
		{"rate limited provider", CategoryRateLimit, 429, true},
		{"provider bad request", CategoryTransient, 400, false},
		{"provider request timeout", CategoryTransient, 408, true},
		{"provider server error", CategoryTransient, 502, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableCategory(tt.category, tt.code))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(fmt.Errorf("send: %w", context.Canceled)))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(errors.New("something unexpected")))
	assert.True(t, IsRetryable(ErrCircuitOpen))

	wrapped := fmt.Errorf("dispatch: %w", &OperationError{Kind: CategoryAuthorization, Message: "bad key"})
	assert.False(t, IsRetryable(wrapped))
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryTimeout, CategoryOf(context.DeadlineExceeded))
	assert.Equal(t, CategoryServiceUnavailable, CategoryOf(ErrCircuitOpen))
	assert.Equal(t, CategoryTransient, CategoryOf(errors.New("x")))
	assert.Equal(t, CategoryValidation, CategoryOf(&OperationError{Kind: CategoryValidation}))
	assert.Equal(t, Category(""), CategoryOf(nil))
}
