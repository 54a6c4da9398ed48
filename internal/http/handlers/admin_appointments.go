package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apexcare/booking-platform/internal/appointments"
	"github.com/apexcare/booking-platform/pkg/logging"
)

// AdminAppointmentHandler serves the staff views over appointments. Reads go
// straight to the database; this side never initiates payments or email.
type AdminAppointmentHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewAdminAppointmentHandler creates the admin appointment handler.
func NewAdminAppointmentHandler(db *sql.DB, logger *logging.Logger) *AdminAppointmentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAppointmentHandler{db: db, logger: logger}
}

// AdminAppointment is the staff view of one appointment row.
type AdminAppointment struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	DoctorName      string    `json:"doctor_name"`
	Department      string    `json:"department"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	PatientName     string    `json:"patient_name"`
	PatientEmail    string    `json:"patient_email"`
	PatientPhone    string    `json:"patient_phone"`
	Status          string    `json:"status"`
	ConsultationFee float64   `json:"consultation_fee"`
	PaymentStatus   string    `json:"payment_status"`
	PaymentMethod   string    `json:"payment_method"`
	CreatedAt       time.Time `json:"created_at"`
}

const adminAppointmentColumns = `id, user_id, doctor_name, department, appointment_date, appointment_time,
	patient_first_name || ' ' || patient_last_name, patient_email, patient_phone,
	status, consultation_fee, payment_status, payment_method, created_at`

func scanAdminAppointment(rows *sql.Rows) (*AdminAppointment, error) {
	var a AdminAppointment
	err := rows.Scan(
		&a.ID, &a.UserID, &a.DoctorName, &a.Department, &a.AppointmentDate, &a.AppointmentTime,
		&a.PatientName, &a.PatientEmail, &a.PatientPhone,
		&a.Status, &a.ConsultationFee, &a.PaymentStatus, &a.PaymentMethod, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// List handles GET /admin/appointments with optional status, department and
// date filters. Results are newest first.
func (h *AdminAppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	offset := (page - 1) * limit

	where := []string{}
	args := []any{}
	addFilter := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addFilter("status", r.URL.Query().Get("status"))
	addFilter("department", r.URL.Query().Get("department"))
	addFilter("appointment_date", r.URL.Query().Get("date"))
	addFilter("payment_status", r.URL.Query().Get("payment_status"))

	query := `SELECT ` + adminAppointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		h.logger.Error("admin appointment list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}
	defer rows.Close()

	results := []*AdminAppointment{}
	for rows.Next() {
		a, err := scanAdminAppointment(rows)
		if err != nil {
			h.logger.Error("admin appointment scan failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load appointments")
			return
		}
		results = append(results, a)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": results,
		"page":         page,
		"limit":        limit,
	})
}

// AppointmentStats is the staff counters view.
type AppointmentStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Paid      int `json:"paid"`
	Unpaid    int `json:"unpaid"`
}

// Stats handles GET /admin/appointments/stats. Counters are tallied over one
// scan of statuses rather than a query per counter.
func (h *AdminAppointmentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `SELECT status, payment_status FROM appointments`)
	if err != nil {
		h.logger.Error("admin appointment stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	defer rows.Close()

	var stats AppointmentStats
	for rows.Next() {
		var status, paymentStatus string
		if err := rows.Scan(&status, &paymentStatus); err != nil {
			h.logger.Error("admin appointment stats scan failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load stats")
			return
		}
		stats.Total++
		switch appointments.Status(status) {
		case appointments.StatusPending:
			stats.Pending++
		case appointments.StatusConfirmed:
			stats.Confirmed++
		case appointments.StatusCompleted:
			stats.Completed++
		case appointments.StatusCancelled:
			stats.Cancelled++
		}
		if appointments.PaymentStatus(paymentStatus) == appointments.PaymentPaid {
			stats.Paid++
		} else {
			stats.Unpaid++
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

// Search handles GET /admin/appointments/search?q=. Matches patient name,
// email and phone, capped at 20 rows.
func (h *AdminAppointmentHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing search query")
		return
	}
	pattern := "%" + q + "%"

	query := `SELECT ` + adminAppointmentColumns + ` FROM appointments
		WHERE patient_first_name ILIKE $1 OR patient_last_name ILIKE $1 OR patient_email ILIKE $1 OR patient_phone ILIKE $1
		ORDER BY created_at DESC LIMIT 20`

	rows, err := h.db.QueryContext(r.Context(), query, pattern)
	if err != nil {
		h.logger.Error("admin appointment search failed", "error", err, "query", q)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	defer rows.Close()

	results := []*AdminAppointment{}
	for rows.Next() {
		a, err := scanAdminAppointment(rows)
		if err != nil {
			h.logger.Error("admin appointment scan failed", "error", err)
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		results = append(results, a)
	}

	writeJSON(w, http.StatusOK, map[string]any{"appointments": results})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /admin/appointments/{id}/status.
func (h *AdminAppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !appointments.ValidStatus(appointments.Status(req.Status)) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	result, err := h.db.ExecContext(r.Context(),
		`UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, req.Status)
	if err != nil {
		h.logger.Error("admin status update failed", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "status updated"})
}

// Cancel handles POST /admin/appointments/{id}/cancel.
func (h *AdminAppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	result, err := h.db.ExecContext(r.Context(),
		`UPDATE appointments SET status = 'cancelled', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		h.logger.Error("admin cancel failed", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "cancel failed")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "appointment cancelled"})
}
