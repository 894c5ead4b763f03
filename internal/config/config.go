// File: internal/config/config.go
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// minSecretLength is the shortest OTP_SECRET accepted in production.
const minSecretLength = 32

// placeholderSecrets are values copied from examples that must never sign codes.
var placeholderSecrets = map[string]bool{
	"changeme":                  true,
	"change-me":                 true,
	"secret":                    true,
	"your-secret-key":           true,
	"your_otp_secret":           true,
	"otp-secret":                true,
	"default-otp-secret":        true,
	"please-change-this-secret": true,
}

type Config struct {
	Environment string
	ServerPort  string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string

	OTPSecret          string
	OTPSecretEphemeral bool
	JWTSecretKey       string

	SMSAccessKey  string
	SMSAPIURL     string
	SMSLineNumber string
	SMSTimeout    time.Duration

	OTPExpiry            time.Duration
	OTPMaxAttempts       int
	OTPRateWindow        time.Duration
	OTPMaxSendsPerWindow int
	OTPRetention         time.Duration
	OTPCleanupInterval   time.Duration

	CBFailureThreshold int
	CBRecoveryTimeout  time.Duration

	RetryMaxRetries   int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RetryMultiplier   float64

	HomeCountryCode string

	HTTPRateLimitPerWindow int
	HTTPRateWindow         time.Duration
	HTTPRateBanDuration    time.Duration
	TrustedProxies         []string
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// SMSConfigured reports whether real gateway credentials are present.
func (c *Config) SMSConfigured() bool {
	return c.SMSAccessKey != "" && c.SMSAPIURL != "" && c.SMSLineNumber != ""
}

// Load reads configuration from environment variables or .env file.
func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		Environment: env,
		ServerPort:  getEnv("SERVER_PORT", "8080"),

		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:    getEnv("DB_DSN", "otpguard.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		OTPSecret:    getEnv("OTP_SECRET", ""),
		JWTSecretKey: getEnv("JWT_SECRET_KEY", ""),

		SMSAccessKey:  getEnv("SMS_ACCESS_KEY", ""),
		SMSAPIURL:     getEnv("SMS_API_URL", ""),
		SMSLineNumber: getEnv("SMS_LINE_NUMBER", ""),
		SMSTimeout:    getEnvAsDuration("SMS_TIMEOUT", 10*time.Second),

		OTPExpiry:            time.Duration(getEnvAsInt("OTP_EXPIRY_MINUTES", 5)) * time.Minute,
		OTPMaxAttempts:       getEnvAsInt("OTP_MAX_ATTEMPTS", 3),
		OTPRateWindow:        time.Duration(getEnvAsInt("OTP_RATE_WINDOW_MINUTES", 60)) * time.Minute,
		OTPMaxSendsPerWindow: getEnvAsInt("OTP_MAX_SENDS_PER_WINDOW", 5),
		OTPRetention:         time.Duration(getEnvAsInt("OTP_RETENTION_HOURS", 24)) * time.Hour,
		OTPCleanupInterval:   getEnvAsDuration("OTP_CLEANUP_INTERVAL", time.Hour),

		CBFailureThreshold: getEnvAsInt("CB_FAILURE_THRESHOLD", 5),
		CBRecoveryTimeout:  getEnvAsDuration("CB_RECOVERY_TIMEOUT", 60*time.Second),

		RetryMaxRetries:   getEnvAsInt("RETRY_MAX_RETRIES", 2),
		RetryInitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", 500*time.Millisecond),
		RetryMaxDelay:     getEnvAsDuration("RETRY_MAX_DELAY", 5*time.Second),
		RetryMultiplier:   getEnvAsFloat("RETRY_MULTIPLIER", 2),

		HomeCountryCode: getEnv("HOME_COUNTRY_CODE", "+98"),

		HTTPRateLimitPerWindow: getEnvAsInt("HTTP_RATE_LIMIT_PER_WINDOW", 20),
		HTTPRateWindow:         getEnvAsDuration("HTTP_RATE_WINDOW", time.Minute),
		HTTPRateBanDuration:    getEnvAsDuration("HTTP_RATE_BAN_DURATION", 0),
		TrustedProxies:         getEnvAsList("TRUSTED_PROXIES"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	secret := strings.TrimSpace(c.OTPSecret)
	if placeholderSecrets[strings.ToLower(secret)] {
		return fmt.Errorf("OTP_SECRET is set to a placeholder value; generate a random secret")
	}

	if c.IsProduction() {
		missing := []string{}
		if secret == "" {
			missing = append(missing, "OTP_SECRET")
		}
		if c.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if c.SMSAccessKey == "" {
			missing = append(missing, "SMS_ACCESS_KEY")
		}
		if c.SMSAPIURL == "" {
			missing = append(missing, "SMS_API_URL")
		}
		if c.SMSLineNumber == "" {
			missing = append(missing, "SMS_LINE_NUMBER")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required production environment variables: %v", missing)
		}
		if len(secret) < minSecretLength {
			return fmt.Errorf("OTP_SECRET must be at least %d bytes in production", minSecretLength)
		}
	} else {
		if secret == "" {
			generated, err := randomSecret()
			if err != nil {
				return err
			}
			c.OTPSecret = generated
			c.OTPSecretEphemeral = true
		}
		if c.JWTSecretKey == "" {
			c.JWTSecretKey = c.OTPSecret
		}
	}

	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}

	if c.OTPExpiry <= 0 || c.OTPMaxAttempts < 1 || c.OTPRateWindow <= 0 || c.OTPMaxSendsPerWindow < 1 {
		return fmt.Errorf("OTP tunables must be positive")
	}
	if c.CBFailureThreshold < 1 {
		return fmt.Errorf("CB_FAILURE_THRESHOLD must be at least 1")
	}
	if c.RetryMaxRetries < 0 || c.RetryMultiplier < 1 {
		return fmt.Errorf("RETRY_MAX_RETRIES must be >= 0 and RETRY_MULTIPLIER >= 1")
	}
	if c.OTPCleanupInterval <= 0 || c.HTTPRateWindow <= 0 || c.HTTPRateLimitPerWindow < 1 {
		return fmt.Errorf("cleanup interval and HTTP rate limit settings must be positive")
	}
	if c.HTTPRateBanDuration < 0 {
		return fmt.Errorf("HTTP_RATE_BAN_DURATION must not be negative")
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, minSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate ephemeral OTP secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as number. Using default value.", key)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key string) []string {
	var values []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
