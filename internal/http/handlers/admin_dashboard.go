package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/apexcare/booking-platform/pkg/logging"
)

// AdminDashboardHandler handles the staff overview endpoint.
type AdminDashboardHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewAdminDashboardHandler creates the dashboard handler.
func NewAdminDashboardHandler(db *sql.DB, logger *logging.Logger) *AdminDashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminDashboardHandler{db: db, logger: logger}
}

// DashboardOverviewResponse contains the main overview counters.
type DashboardOverviewResponse struct {
	Appointments struct {
		Total        int `json:"total"`
		ThisWeek     int `json:"this_week"`
		PendingCount int `json:"pending_count"`
	} `json:"appointments"`
	Payments struct {
		StripeSucceeded int     `json:"stripe_succeeded"`
		MpesaSucceeded  int     `json:"mpesa_succeeded"`
		PendingCount    int     `json:"pending_count"`
		RevenueThisWeek float64 `json:"revenue_this_week"`
	} `json:"payments"`
	Emails struct {
		SentToday   int `json:"sent_today"`
		FailedToday int `json:"failed_today"`
	} `json:"emails"`
	Newsletter struct {
		ActiveSubscribers int `json:"active_subscribers"`
	} `json:"newsletter"`
}

// GetOverview returns the staff dashboard counters.
// GET /admin/overview
func (h *AdminDashboardHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	var overview DashboardOverviewResponse

	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)
	today := now.Truncate(24 * time.Hour)

	count := func(dest any, query string, args ...any) error {
		return h.db.QueryRowContext(r.Context(), query, args...).Scan(dest)
	}

	counters := []struct {
		dest  any
		query string
		args  []any
	}{
		{&overview.Appointments.Total, `SELECT COUNT(*) FROM appointments`, nil},
		{&overview.Appointments.ThisWeek, `SELECT COUNT(*) FROM appointments WHERE created_at >= $1`, []any{weekAgo}},
		{&overview.Appointments.PendingCount, `SELECT COUNT(*) FROM appointments WHERE status = 'pending'`, nil},
		{&overview.Payments.StripeSucceeded, `SELECT COUNT(*) FROM stripe_payments WHERE status = 'succeeded'`, nil},
		{&overview.Payments.MpesaSucceeded, `SELECT COUNT(*) FROM mpesa_payments WHERE status = 'succeeded'`, nil},
		{&overview.Payments.PendingCount, `SELECT (SELECT COUNT(*) FROM stripe_payments WHERE status = 'pending')
			+ (SELECT COUNT(*) FROM mpesa_payments WHERE status = 'pending')`, nil},
		// Cross-provider sum, each provider in its own currency.
		{&overview.Payments.RevenueThisWeek, `SELECT COALESCE((SELECT SUM(amount) FROM stripe_payments WHERE status = 'succeeded' AND created_at >= $1), 0)
			+ COALESCE((SELECT SUM(amount) FROM mpesa_payments WHERE status = 'succeeded' AND created_at >= $1), 0)`, []any{weekAgo}},
		{&overview.Emails.SentToday, `SELECT COUNT(*) FROM email_logs WHERE status = 'sent' AND created_at >= $1`, []any{today}},
		{&overview.Emails.FailedToday, `SELECT COUNT(*) FROM email_logs WHERE status = 'failed' AND created_at >= $1`, []any{today}},
		{&overview.Newsletter.ActiveSubscribers, `SELECT COUNT(*) FROM newsletter_subscribers WHERE subscription_status = 'active'`, nil},
	}
	for _, c := range counters {
		if err := count(c.dest, c.query, c.args...); err != nil {
			h.logger.Error("admin overview query failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load overview")
			return
		}
	}

	writeJSON(w, http.StatusOK, overview)
}
