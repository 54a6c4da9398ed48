package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/apexcare/booking-platform/internal/api/router"
	"github.com/apexcare/booking-platform/internal/appointments"
	appconfig "github.com/apexcare/booking-platform/internal/config"
	"github.com/apexcare/booking-platform/internal/http/handlers"
	"github.com/apexcare/booking-platform/internal/newsletter"
	"github.com/apexcare/booking-platform/internal/notify"
	"github.com/apexcare/booking-platform/internal/observability/metrics"
	"github.com/apexcare/booking-platform/internal/payments"
	"github.com/apexcare/booking-platform/pkg/logging"
)

func main() {
	// Load .env if present (local development)
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Domain repositories run on pgx; admin read handlers use database/sql
	// through the pgx stdlib driver.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	bm := metrics.New()

	apptRepo := appointments.NewPostgresRepository(pool)
	paymentRepo := payments.NewPostgresRepository(pool)
	emailRepo := notify.NewPostgresRepository(pool)
	newsletterRepo := newsletter.NewPostgresRepository(pool)

	mailer := notify.NewMailer(buildEmailSender(ctx, cfg, logger), emailRepo, logger).WithMetrics(bm)

	var (
		card         appointments.CardCharger
		cardPoller   handlers.CardPoller
		mobile       appointments.MobileMoneyCharger
		mobilePoller handlers.MobilePoller
	)
	if cfg.StripeSecretKey != "" {
		stripe := payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeCurrency, paymentRepo, logger)
		if cfg.StripeBaseURL != "" {
			stripe = stripe.WithBaseURL(cfg.StripeBaseURL)
		}
		card = stripe
		cardPoller = stripe
	}
	if cfg.MpesaConsumerKey != "" && cfg.MpesaConsumerSecret != "" {
		mpesa := payments.NewMpesaGateway(payments.MpesaConfig{
			ConsumerKey:       cfg.MpesaConsumerKey,
			ConsumerSecret:    cfg.MpesaConsumerSecret,
			BusinessShortCode: cfg.MpesaBusinessShortCode,
			Passkey:           cfg.MpesaPasskey,
			BaseURL:           cfg.MpesaBaseURL,
			CallbackURL:       cfg.MpesaCallbackURL,
			TokenMargin:       cfg.MpesaTokenMargin,
		}, paymentRepo, logger)
		mobile = mpesa
		mobilePoller = mpesa
	}

	bookingService := appointments.NewService(apptRepo, card, mobile, mailer, logger).WithMetrics(bm)

	appointmentHandler := handlers.NewAppointmentHandler(bookingService, cardPoller, mobilePoller, cfg.DefaultConsultationFee, logger)
	newsletterHandler := newsletter.NewHandler(newsletterRepo, logger)
	stripeWebhook := payments.NewStripeWebhookHandler(cfg.StripeWebhookSecret, paymentRepo, apptRepo, mailer, logger).WithMetrics(bm)
	mpesaCallback := payments.NewMpesaCallbackHandler(paymentRepo, apptRepo, mailer, logger).WithMetrics(bm)

	routerCfg := &router.Config{
		Logger:             logger,
		Appointments:       appointmentHandler,
		Newsletter:         newsletterHandler,
		StripeWebhook:      stripeWebhook,
		MpesaCallback:      mpesaCallback,
		AdminAppointments:  handlers.NewAdminAppointmentHandler(sqlDB, logger),
		AdminPayments:      handlers.NewAdminPaymentHandler(sqlDB, logger),
		AdminNotifications: handlers.NewAdminNotificationHandler(sqlDB, logger),
		AdminDashboard:     handlers.NewAdminDashboardHandler(sqlDB, logger),
		AuthJWTSecret:      cfg.AuthJWTSecret,
		MetricsHandler:     bm.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildEmailSender picks the delivery provider from configuration. A nil
// return makes the mailer log sends as failed instead of delivering.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			break
		}
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); s != nil {
			return s
		}
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		if s := notify.NewResendSender(notify.ResendConfig{
			APIKey:    cfg.ResendAPIKey,
			FromEmail: cfg.ResendFromEmail,
		}, logger); s != nil {
			return s
		}
	}
	logger.Warn("no email provider configured, sends will be logged as failed")
	return nil
}
