// File: internal/middleware/client_ip.go
package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/iyunix/go-otpguard/internal/ratelimit"
)

// ClientIP resolves the caller address once and stores it on the request context.
func ClientIP(resolver *ratelimit.ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ClientIPKey, resolver.ClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP returns the address stored by ClientIP. Without it the peer
// address is used and forwarding headers are ignored.
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ClientIPKey).(string); ok && ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
