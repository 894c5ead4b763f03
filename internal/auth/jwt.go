// File: internal/auth/jwt.go
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerificationTokenTTL is how long a proof of phone ownership stays valid.
const VerificationTokenTTL = 10 * time.Minute

const issuer = "otpguard"

// VerificationClaims prove that Subject (an E.164 number) passed OTP
// verification for Purpose.
type VerificationClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateVerificationToken signs a short-lived HS256 token for target.
func GenerateVerificationToken(target, purpose string, now time.Time, secretKey []byte) (string, error) {
	if target == "" || purpose == "" {
		return "", errors.New("target and purpose are required")
	}
	if len(secretKey) == 0 {
		return "", errors.New("signing key is required")
	}

	claims := VerificationClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   target,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(VerificationTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}

// ValidateVerificationToken checks signature, issuer and expiry and returns the claims.
func ValidateVerificationToken(tokenString string, secretKey []byte) (*VerificationClaims, error) {
	claims := &VerificationClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
