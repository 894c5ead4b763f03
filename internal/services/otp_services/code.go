// File: internal/services/otp_services/code.go
package otp_services

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

const (
	codeMin = 100000
	codeMax = 999999
)

var hmacKeyInfo = []byte("otpguard code hmac v1")

// GenerateCode returns a uniformly random code in [100000, 999999] from crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()+codeMin), nil
}

// CodeHasher computes keyed digests of codes. The raw secret is only used to
// derive the HMAC key.
type CodeHasher struct {
	key []byte
}

// NewCodeHasher derives the HMAC key from secret.
func NewCodeHasher(secret []byte) (*CodeHasher, error) {
	if len(secret) == 0 {
		return nil, errors.New("otp secret is required")
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, hmacKeyInfo), key); err != nil {
		return nil, fmt.Errorf("failed to derive otp key: %w", err)
	}
	return &CodeHasher{key: key}, nil
}

// HashCode returns hex(HMAC-SHA256(key, code + "-" + target)).
func (h *CodeHasher) HashCode(code, target string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(code + "-" + target))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHash recomputes the digest and compares it in constant time.
func (h *CodeHasher) VerifyHash(code, storedHash, target string) bool {
	computed := h.HashCode(code, target)
	return hmac.Equal([]byte(computed), []byte(storedHash))
}

func isWellFormedCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
