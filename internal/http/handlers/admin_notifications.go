package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apexcare/booking-platform/pkg/logging"
)

// AdminNotificationHandler serves the staff view over the email audit log.
type AdminNotificationHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewAdminNotificationHandler creates the admin notification handler.
func NewAdminNotificationHandler(db *sql.DB, logger *logging.Logger) *AdminNotificationHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminNotificationHandler{db: db, logger: logger}
}

// AdminEmailLog is the staff view of one email log row.
type AdminEmailLog struct {
	ID             int64     `json:"id"`
	RecipientEmail string    `json:"recipient_email"`
	Subject        string    `json:"subject"`
	Category       string    `json:"category"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	AppointmentID  *int64    `json:"appointment_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// List handles GET /admin/emails with optional category and status filters,
// newest first.
func (h *AdminNotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	offset := (page - 1) * limit

	where := []string{}
	args := []any{}
	if category := r.URL.Query().Get("category"); category != "" {
		args = append(args, category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if status := r.URL.Query().Get("status"); status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT id, recipient_email, subject, category, status, COALESCE(error_message, ''), appointment_id, created_at
		FROM email_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		h.logger.Error("admin email log list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load email logs")
		return
	}
	defer rows.Close()

	results := []*AdminEmailLog{}
	for rows.Next() {
		var l AdminEmailLog
		if err := rows.Scan(&l.ID, &l.RecipientEmail, &l.Subject, &l.Category, &l.Status,
			&l.ErrorMessage, &l.AppointmentID, &l.CreatedAt); err != nil {
			h.logger.Error("admin email log scan failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load email logs")
			return
		}
		results = append(results, &l)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"emails": results,
		"page":   page,
		"limit":  limit,
	})
}

// EmailStatsResponse summarizes email delivery by category and outcome.
type EmailStatsResponse struct {
	Total      int64            `json:"total"`
	Sent       int64            `json:"sent"`
	Failed     int64            `json:"failed"`
	ByCategory map[string]int64 `json:"by_category"`
}

// Stats handles GET /admin/emails/stats.
func (h *AdminNotificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `SELECT category, status FROM email_logs`)
	if err != nil {
		h.logger.Error("admin email stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load email stats")
		return
	}
	defer rows.Close()

	stats := EmailStatsResponse{ByCategory: map[string]int64{}}
	for rows.Next() {
		var category, status string
		if err := rows.Scan(&category, &status); err != nil {
			h.logger.Error("admin email stats scan failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load email stats")
			return
		}
		stats.Total++
		stats.ByCategory[category]++
		if status == "sent" {
			stats.Sent++
		} else {
			stats.Failed++
		}
	}

	writeJSON(w, http.StatusOK, stats)
}
