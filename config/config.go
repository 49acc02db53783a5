package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	OAuth    OAuthConfig
	Stripe   StripeConfig
	Billing  BillingConfig
	Firebase FirebaseConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// StripeConfig holds credentials for the external billing provider.
type StripeConfig struct {
	APIKey         string
	WebhookSecret  string
	PremiumPriceID string
	SuccessURL     string
	CancelURL      string
}

// Configured reports whether billing endpoints can be served at all.
func (s StripeConfig) Configured() bool { return s.APIKey != "" }

type BillingConfig struct {
	Currency          string
	PremiumPriceCents int64
	MinTopUpCents     int64
	// BackfillGrace holds off balance credits for sessions completed very
	// recently so the webhook gets first shot at them.
	BackfillGrace    time.Duration
	PageLimit        int
	SessionScanLimit int
	Debug            bool
}

type FirebaseConfig struct {
	CredentialsFile string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envStr("PORT", "8099"),
			Env:          envStr("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             envStr("DATABASE_DSN", "propdesk:propdesk@tcp(localhost:3306)/propdesk?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  envStr("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: envStr("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "propdesk",
		},
		OAuth: OAuthConfig{
			GoogleClientID:     envStr("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: envStr("GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  envStr("GOOGLE_REDIRECT_URL", "https://propdesk.app/api/v1/auth/google/callback"),
		},
		Stripe: StripeConfig{
			APIKey:         envStr("STRIPE_API_KEY", ""),
			WebhookSecret:  envStr("STRIPE_WEBHOOK_SECRET", ""),
			PremiumPriceID: envStr("STRIPE_PREMIUM_PRICE_ID", ""),
			SuccessURL:     envStr("CHECKOUT_SUCCESS_URL", "https://propdesk.app/account?checkout=success"),
			CancelURL:      envStr("CHECKOUT_CANCEL_URL", "https://propdesk.app/account?checkout=cancelled"),
		},
		Billing: BillingConfig{
			Currency:          "usd",
			PremiumPriceCents: envInt64("PREMIUM_PRICE_CENTS", 1999),
			MinTopUpCents:     envInt64("MIN_TOPUP_CENTS", 500),
			BackfillGrace:     envDuration("BACKFILL_GRACE", 90*time.Second),
			PageLimit:         100,
			SessionScanLimit:  100,
			Debug:             envBool("BILLING_DEBUG", false),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: envStr("FIREBASE_CREDENTIALS_FILE", ""),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
