package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	LogFormat     string
	DatabaseURL   string

	// Auth
	AuthJWTSecret string

	// HTTP
	CORSAllowedOrigins []string

	// Stripe card payments
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeBaseURL       string
	StripeCurrency      string

	// M-Pesa Daraja
	MpesaConsumerKey       string
	MpesaConsumerSecret    string
	MpesaBusinessShortCode string
	MpesaPasskey           string
	MpesaBaseURL           string
	MpesaCallbackURL       string
	MpesaTokenMargin       time.Duration

	// Email delivery
	EmailProvider     string
	ResendAPIKey      string
	ResendFromEmail   string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	AWSRegion         string

	// Booking
	DefaultConsultationFee float64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeBaseURL:       getEnv("STRIPE_BASE_URL", ""),
		StripeCurrency:      getEnv("STRIPE_CURRENCY", "usd"),

		MpesaConsumerKey:       getEnv("MPESA_CONSUMER_KEY", ""),
		MpesaConsumerSecret:    getEnv("MPESA_CONSUMER_SECRET", ""),
		MpesaBusinessShortCode: getEnv("MPESA_BUSINESS_SHORT_CODE", "174379"),
		MpesaPasskey:           getEnv("MPESA_PASSKEY", ""),
		MpesaBaseURL:           getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		MpesaCallbackURL:       getEnv("MPESA_CALLBACK_URL", ""),
		MpesaTokenMargin:       getEnvAsDuration("MPESA_TOKEN_MARGIN", time.Minute),

		EmailProvider:     getEnv("EMAIL_PROVIDER", "resend"),
		ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
		ResendFromEmail:   getEnv("RESEND_FROM_EMAIL", "noreply@apexcare.com"),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "ApexCare Medical Centre"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "ApexCare Medical Centre"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),

		DefaultConsultationFee: getEnvAsFloat("DEFAULT_CONSULTATION_FEE", 0),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable into a slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
