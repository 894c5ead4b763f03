// File: internal/services/phone/validator.go
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

// E.164 envelopes.
const (
	minTotalDigits    = 8
	maxTotalDigits    = 15
	minNationalDigits = 4
	maxNationalDigits = 14
)

var (
	countryCodePattern = regexp.MustCompile(`^\+[0-9]{1,4}$`)
	nonDigitPattern    = regexp.MustCompile(`[^0-9]`)
)

// Rule describes the national number format of one market.
type Rule struct {
	Market    string
	MinDigits int
	MaxDigits int
	Pattern   *regexp.Regexp // matched against the national number
	Hint      string         // human readable form of Pattern
}

func (r Rule) check(national string) error {
	if len(national) < r.MinDigits || len(national) > r.MaxDigits {
		if r.MinDigits == r.MaxDigits {
			return newError(fmt.Sprintf("Phone number must be exactly %d digits for %s", r.MinDigits, r.Market))
		}
		return newError(fmt.Sprintf("Phone number must be %d-%d digits for %s", r.MinDigits, r.MaxDigits, r.Market))
	}
	if r.Pattern != nil && !r.Pattern.MatchString(national) {
		return newError(fmt.Sprintf("Phone number for %s must %s", r.Market, r.Hint))
	}
	return nil
}

// countryRules covers a few common markets. Unlisted codes rely on the envelope only.
var countryRules = map[string]Rule{
	"+1":   {Market: "US/Canada", MinDigits: 10, MaxDigits: 10, Pattern: regexp.MustCompile(`^[2-9]`), Hint: "start with a digit from 2 to 9"},
	"+44":  {Market: "United Kingdom", MinDigits: 10, MaxDigits: 10, Pattern: regexp.MustCompile(`^7`), Hint: "start with 7"},
	"+49":  {Market: "Germany", MinDigits: 10, MaxDigits: 11, Pattern: regexp.MustCompile(`^1[5-7]`), Hint: "start with 15, 16 or 17"},
	"+86":  {Market: "China", MinDigits: 11, MaxDigits: 11, Pattern: regexp.MustCompile(`^1`), Hint: "start with 1"},
	"+90":  {Market: "Turkey", MinDigits: 10, MaxDigits: 10, Pattern: regexp.MustCompile(`^5`), Hint: "start with 5"},
	"+91":  {Market: "India", MinDigits: 10, MaxDigits: 10, Pattern: regexp.MustCompile(`^[6-9]`), Hint: "start with a digit from 6 to 9"},
	"+98":  {Market: "Iran", MinDigits: 10, MaxDigits: 10, Pattern: regexp.MustCompile(`^9`), Hint: "start with 9"},
	"+971": {Market: "United Arab Emirates", MinDigits: 9, MaxDigits: 9, Pattern: regexp.MustCompile(`^5`), Hint: "start with 5"},
}

// leadingZeroAllowed lists territories whose national numbers keep a leading
// zero in international form.
var leadingZeroAllowed = map[string]bool{
	"+39":  true, // Italy
	"+225": true, // Côte d'Ivoire
	"+242": true, // Republic of the Congo
	"+378": true, // San Marino
	"+379": true, // Vatican City
}

// DefaultHomeCountryCode is the market served with the strict home rule.
const DefaultHomeCountryCode = "+98"

// ValidationError carries a message that is safe to show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// Validator checks (phone, country code) pairs. It is stateless after construction.
type Validator struct {
	homeCountryCode string
	homeRule        *Rule
}

// NewValidator builds a validator whose home market gets the strict rule from
// the country table. An unknown home code falls back to the generic checks.
func NewValidator(homeCountryCode string) *Validator {
	homeCountryCode = strings.TrimSpace(homeCountryCode)
	if homeCountryCode == "" {
		homeCountryCode = DefaultHomeCountryCode
	}
	v := &Validator{homeCountryCode: homeCountryCode}
	if rule, ok := countryRules[homeCountryCode]; ok {
		v.homeRule = &rule
	}
	return v
}

// HomeCountryCode returns the configured home market code.
func (v *Validator) HomeCountryCode() string {
	return v.homeCountryCode
}

// Normalize validates the pair and returns the national number as digits only
// together with the trimmed country code.
func (v *Validator) Normalize(phone, countryCode string) (string, string, error) {
	countryCode = strings.TrimSpace(countryCode)
	national := nonDigitPattern.ReplaceAllString(phone, "")

	if national == "" {
		return "", "", newError("Phone number is required")
	}
	if countryCode == "" {
		return "", "", newError("Country code is required")
	}

	if v.homeRule != nil && countryCode == v.homeCountryCode {
		if err := v.homeRule.check(national); err != nil {
			return "", "", err
		}
		if isRepeatedDigit(national) {
			return "", "", newError("Phone number cannot be a single repeated digit")
		}
		return national, countryCode, nil
	}

	if !countryCodePattern.MatchString(countryCode) {
		return "", "", newError("Country code must be '+' followed by 1 to 4 digits")
	}

	codeDigits := len(countryCode) - 1
	total := codeDigits + len(national)
	if total < minTotalDigits || total > maxTotalDigits {
		return "", "", newError(fmt.Sprintf("Phone number with country code must be %d-%d digits", minTotalDigits, maxTotalDigits))
	}
	if len(national) < minNationalDigits {
		return "", "", newError("Phone number is too short")
	}
	if len(national) > maxNationalDigits {
		return "", "", newError("Phone number is too long")
	}

	if isRepeatedDigit(national) {
		return "", "", newError("Phone number cannot be a single repeated digit")
	}

	if national[0] == '0' && !leadingZeroAllowed[countryCode] {
		return "", "", newError("Phone number should not start with 0 when a country code is given")
	}

	if rule, ok := countryRules[countryCode]; ok {
		if err := rule.check(national); err != nil {
			return "", "", err
		}
	}

	return national, countryCode, nil
}

// Validate returns the first failing rule as a *ValidationError, or nil.
func (v *Validator) Validate(phone, countryCode string) error {
	_, _, err := v.Normalize(phone, countryCode)
	return err
}

// E164 joins a validated pair into "+<code><number>".
func E164(national, countryCode string) string {
	return countryCode + national
}

func isRepeatedDigit(digits string) bool {
	if len(digits) < 2 {
		return false
	}
	return strings.Count(digits, digits[:1]) == len(digits)
}
