package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("MPESA_BASE_URL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.MpesaBaseURL != "https://sandbox.safaricom.co.ke" {
		t.Fatalf("expected sandbox daraja base url, got %s", cfg.MpesaBaseURL)
	}
	if cfg.MpesaBusinessShortCode != "174379" {
		t.Fatalf("expected default shortcode, got %s", cfg.MpesaBusinessShortCode)
	}
	if cfg.MpesaTokenMargin != time.Minute {
		t.Fatalf("expected default token margin, got %s", cfg.MpesaTokenMargin)
	}
	if cfg.StripeCurrency != "usd" {
		t.Fatalf("expected default stripe currency, got %s", cfg.StripeCurrency)
	}
	if cfg.EmailProvider != "resend" {
		t.Fatalf("expected resend as default email provider, got %s", cfg.EmailProvider)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_abc")
	t.Setenv("MPESA_TOKEN_MARGIN", "90s")
	t.Setenv("DEFAULT_CONSULTATION_FEE", "500")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.StripeSecretKey != "sk_test_abc" {
		t.Fatalf("expected stripe key override, got %s", cfg.StripeSecretKey)
	}
	if cfg.MpesaTokenMargin != 90*time.Second {
		t.Fatalf("expected token margin override, got %s", cfg.MpesaTokenMargin)
	}
	if cfg.DefaultConsultationFee != 500 {
		t.Fatalf("expected fee override, got %f", cfg.DefaultConsultationFee)
	}
}
