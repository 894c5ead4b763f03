package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeMarketRule(t *testing.T) {
	v := NewValidator("+98")

	assert.NoError(t, v.Validate("9123456789", "+98"))
	assert.Error(t, v.Validate("912345678", "+98"), "9 digits")
	assert.Error(t, v.Validate("91234567890", "+98"), "11 digits")
	assert.Error(t, v.Validate("8123456789", "+98"), "wrong leading digit")
	assert.Error(t, v.Validate("9999999999", "+98"), "repeated digit")
}

func TestNormalizeStripsFormatting(t *testing.T) {
	v := NewValidator("+98")

	national, code, err := v.Normalize("(912) 345-6789", " +98 ")
	require.NoError(t, err)
	assert.Equal(t, "9123456789", national)
	assert.Equal(t, "+98", code)
	assert.Equal(t, "+989123456789", E164(national, code))
}

func TestGenericEnvelope(t *testing.T) {
	v := NewValidator("+98")

	tests := []struct {
		name    string
		phone   string
		code    string
		wantErr bool
	}{
		{"unlisted code with 8 digit national number", "51234567", "+372", false},
		{"lower total boundary", "1234567", "+7", false},
		{"below total envelope", "123456", "+7", true},
		{"16 digit combined length", "1234567890123", "+359", true},
		{"15 digit combined length", "123456789012", "+359", false},
		{"national too short", "123", "+1234", true},
		{"bad country code", "51234567", "372", true},
		{"country code too long", "51234567", "+37211", true},
		{"empty phone", "", "+372", true},
		{"only punctuation", "--  ", "+372", true},
		{"empty country code", "51234567", "", true},
		{"repeated digit", "55555555", "+372", true},
		{"leading zero rejected", "012345678", "+372", true},
		{"leading zero allowed for Italy", "0612345678", "+39", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.phone, tt.code)
			if tt.wantErr {
				require.Error(t, err)
				var vErr *ValidationError
				assert.ErrorAs(t, err, &vErr)
				assert.NotEmpty(t, vErr.Message)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCountryTable(t *testing.T) {
	v := NewValidator("+98")

	tests := []struct {
		phone   string
		code    string
		wantErr bool
	}{
		{"2125551234", "+1", false},
		{"1125551234", "+1", true},
		{"212555123", "+1", true},
		{"7911123456", "+44", false},
		{"2079460000", "+44", true},
		{"9876543210", "+91", false},
		{"5876543210", "+91", true},
		{"501234567", "+971", false},
		{"401234567", "+971", true},
		{"5321234567", "+90", false},
		{"13812345678", "+86", false},
		{"23812345678", "+86", true},
		{"15123456789", "+49", false},
		{"1712345678", "+49", false},
		{"3012345678", "+49", true},
	}
	for _, tt := range tests {
		t.Run(tt.code+"_"+tt.phone, func(t *testing.T) {
			err := v.Validate(tt.phone, tt.code)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFirstFailingRuleWins(t *testing.T) {
	v := NewValidator("+98")

	err := v.Validate("0000000000", "+44")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated")
}

func TestDifferentHomeMarket(t *testing.T) {
	v := NewValidator("+1")
	assert.Equal(t, "+1", v.HomeCountryCode())
	assert.NoError(t, v.Validate("2125551234", "+1"))
	assert.NoError(t, v.Validate("9123456789", "+98"))

	assert.Equal(t, DefaultHomeCountryCode, NewValidator("").HomeCountryCode())
}
