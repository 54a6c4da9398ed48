package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/apexcare/booking-platform/internal/http/handlers"
	httpmiddleware "github.com/apexcare/booking-platform/internal/http/middleware"
	"github.com/apexcare/booking-platform/internal/newsletter"
	"github.com/apexcare/booking-platform/internal/payments"
	"github.com/apexcare/booking-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	Appointments  *handlers.AppointmentHandler
	Newsletter    *newsletter.Handler
	StripeWebhook *payments.StripeWebhookHandler
	MpesaCallback *payments.MpesaCallbackHandler

	AdminAppointments  *handlers.AdminAppointmentHandler
	AdminPayments      *handlers.AdminPaymentHandler
	AdminNotifications *handlers.AdminNotificationHandler
	AdminDashboard     *handlers.AdminDashboardHandler

	AuthJWTSecret      string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: health, metrics, provider callbacks, newsletter.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.StripeWebhook != nil {
			public.Post("/webhooks/stripe", cfg.StripeWebhook.Handle)
		}
		if cfg.MpesaCallback != nil {
			public.Post("/api/mpesa/callback", cfg.MpesaCallback.Handle)
		}
		if cfg.Newsletter != nil {
			public.Route("/api/newsletter", func(nl chi.Router) {
				nl.Post("/subscribe", cfg.Newsletter.Subscribe)
				nl.Post("/unsubscribe", cfg.Newsletter.Unsubscribe)
				nl.Get("/status", cfg.Newsletter.Status)
			})
		}
	})

	// Patient endpoints, bearer token required.
	if cfg.Appointments != nil {
		r.Route("/api/appointments", func(api chi.Router) {
			api.Use(httpmiddleware.Auth(cfg.AuthJWTSecret))
			api.Post("/", cfg.Appointments.Book)
			api.Post("/stripe", cfg.Appointments.BookWithStripe)
			api.Post("/mpesa", cfg.Appointments.BookWithMpesa)
			api.Get("/", cfg.Appointments.List)
			api.Get("/{id}", cfg.Appointments.Get)
			api.Get("/{id}/payment-status", cfg.Appointments.PaymentStatus)
			api.Post("/{id}/confirm-payment", cfg.Appointments.ConfirmPayment)
			api.Post("/{id}/cancel", cfg.Appointments.Cancel)
			api.Patch("/{id}/reschedule", cfg.Appointments.Reschedule)
		})
	}

	// Staff endpoints, admin role required.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.Auth(cfg.AuthJWTSecret))
		admin.Use(httpmiddleware.RequireAdmin)

		if cfg.AdminAppointments != nil {
			admin.Get("/appointments", cfg.AdminAppointments.List)
			admin.Get("/appointments/stats", cfg.AdminAppointments.Stats)
			admin.Get("/appointments/search", cfg.AdminAppointments.Search)
			admin.Patch("/appointments/{id}/status", cfg.AdminAppointments.UpdateStatus)
			admin.Post("/appointments/{id}/cancel", cfg.AdminAppointments.Cancel)
		}
		if cfg.AdminPayments != nil {
			admin.Get("/payments/stripe", cfg.AdminPayments.ListStripe)
			admin.Get("/payments/mpesa", cfg.AdminPayments.ListMpesa)
			admin.Get("/payments/stats", cfg.AdminPayments.Stats)
		}
		if cfg.AdminNotifications != nil {
			admin.Get("/emails", cfg.AdminNotifications.List)
			admin.Get("/emails/stats", cfg.AdminNotifications.Stats)
		}
		if cfg.AdminDashboard != nil {
			admin.Get("/overview", cfg.AdminDashboard.GetOverview)
		}
	})

	return r
}
