// File: internal/handlers/otp_handlers.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-otpguard/internal/auth"
	"github.com/iyunix/go-otpguard/internal/domain"
	"github.com/iyunix/go-otpguard/internal/dtos"
	"github.com/iyunix/go-otpguard/internal/services/phone"
	"github.com/iyunix/go-otpguard/internal/services/resilience"
)

// maxBodyBytes caps request bodies; the payloads here are a few fields.
const maxBodyBytes = 4 << 10

// OTPService is the part of the OTP service the HTTP layer needs.
type OTPService interface {
	SendOTP(ctx context.Context, phoneNumber, countryCode string, purpose domain.OtpPurpose) domain.CommunicationResult
	VerifyOTP(ctx context.Context, phoneNumber, countryCode string, purpose domain.OtpPurpose, code string) domain.CommunicationResult
	GatewayStatus() resilience.Snapshot
	GatewayHealth(ctx context.Context) error
}

// Logger interface for handlers
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// OTPHandler holds the dependencies for the OTP endpoints.
type OTPHandler struct {
	service   OTPService
	validator *phone.Validator
	jwtSecret []byte
	ping      func(ctx context.Context) error
	logger    Logger
	now       func() time.Time
}

// NewOTPHandler creates a new OTPHandler. ping reports database health and may be nil.
func NewOTPHandler(service OTPService, validator *phone.Validator, jwtSecret []byte, ping func(ctx context.Context) error, logger Logger) *OTPHandler {
	return &OTPHandler{
		service:   service,
		validator: validator,
		jwtSecret: jwtSecret,
		ping:      ping,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterRoutes mounts the OTP API on r. protect wraps the send and verify
// endpoints (edge throttling).
func (h *OTPHandler) RegisterRoutes(r *mux.Router, protect func(http.Handler) http.Handler) {
	api := r.PathPrefix("/api/otp").Subrouter()
	api.Handle("/send", protect(http.HandlerFunc(h.SendOTP))).Methods(http.MethodPost)
	api.Handle("/verify", protect(http.HandlerFunc(h.VerifyOTP))).Methods(http.MethodPost)
	api.HandleFunc("/gateway-status", h.GatewayStatus).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

// SendOTP handles POST /api/otp/send.
func (h *OTPHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req dtos.SendOTPRequestDTO
	if !h.decode(w, r, &req) {
		return
	}
	result := h.service.SendOTP(r.Context(), req.PhoneNumber, req.CountryCode, dtos.ParsePurpose(req.Purpose))
	writeJSON(w, statusFor(result), dtos.OTPResponseDTO{CommunicationResult: result})
}

// VerifyOTP handles POST /api/otp/verify. A successful verification returns a
// short-lived signed token proving ownership of the number.
func (h *OTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req dtos.VerifyOTPRequestDTO
	if !h.decode(w, r, &req) {
		return
	}
	purpose := dtos.ParsePurpose(req.Purpose)
	result := h.service.VerifyOTP(r.Context(), req.PhoneNumber, req.CountryCode, purpose, req.Code)
	resp := dtos.OTPResponseDTO{CommunicationResult: result}

	if result.Success {
		national, cc, err := h.validator.Normalize(req.PhoneNumber, req.CountryCode)
		if err == nil {
			token, err := auth.GenerateVerificationToken(phone.E164(national, cc), string(purpose), h.now(), h.jwtSecret)
			if err != nil {
				h.logger.Error("failed to sign verification token", "error", err)
				writeJSON(w, http.StatusInternalServerError, dtos.CreateErrorResponse("Could not complete verification. Please try again."))
				return
			}
			resp.VerificationToken = token
			resp.TokenExpiresIn = int(auth.VerificationTokenTTL / time.Second)
		}
	}
	writeJSON(w, statusFor(result), resp)
}

// GatewayStatus handles GET /api/otp/gateway-status.
func (h *OTPHandler) GatewayStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GatewayStatus())
}

// Health handles GET /health. The database and the messaging provider must
// both be usable for a 200.
func (h *OTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := dtos.HealthResponseDTO{
		Status:   "ok",
		Database: "ok",
		Provider: "ok",
		Gateway:  h.service.GatewayStatus().State,
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.service.GatewayHealth(ctx); err != nil {
		h.logger.Error("messaging provider health check failed", "error", err)
		resp.Status = "degraded"
		resp.Provider = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			h.logger.Error("database health check failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func (h *OTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.logger.Debug("invalid request body", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, dtos.CreateErrorResponse("Invalid request body"))
		return false
	}
	return true
}

// statusFor maps a result's error type onto an HTTP status.
func statusFor(result domain.CommunicationResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.ErrorType {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
