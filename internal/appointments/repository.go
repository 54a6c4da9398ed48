package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository defines appointment persistence.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	ListByUser(ctx context.Context, userID int64) ([]*Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	UpdateSchedule(ctx context.Context, id int64, date, timeOfDay string) error
	SetStripeIntent(ctx context.Context, id int64, intentID string) error
	SetMpesaCheckout(ctx context.Context, id int64, checkoutRequestID string) error
	ConfirmPaid(ctx context.Context, id int64) error
	MarkPaid(ctx context.Context, id int64, method PaymentMethod, trackingToken string) error
	MarkPaymentFailed(ctx context.Context, id int64) error
}

const appointmentColumns = `id, user_id, doctor_name, department, appointment_date, appointment_time,
	patient_first_name, patient_last_name, patient_email, patient_phone,
	COALESCE(reason_for_visit, ''), COALESCE(insurance_provider, ''),
	status, consultation_fee, payment_status, payment_method,
	COALESCE(stripe_payment_intent_id, ''), COALESCE(mpesa_checkout_request_id, ''),
	email_sent, confirmation_email_sent, created_at, updated_at`

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new row and returns it with generated fields populated.
func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	query := `
		INSERT INTO appointments (
			user_id, doctor_name, department, appointment_date, appointment_time,
			patient_first_name, patient_last_name, patient_email, patient_phone,
			reason_for_visit, insurance_provider, status, consultation_fee,
			payment_status, payment_method
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	row := r.db.QueryRow(ctx, query,
		appt.UserID,
		appt.DoctorName,
		appt.Department,
		appt.AppointmentDate,
		appt.AppointmentTime,
		appt.PatientFirstName,
		appt.PatientLastName,
		appt.PatientEmail,
		appt.PatientPhone,
		nullable(appt.ReasonForVisit),
		nullable(appt.InsuranceProvider),
		appt.Status,
		appt.ConsultationFee,
		appt.PaymentStatus,
		appt.PaymentMethod,
	)
	if err := row.Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt); err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return appt, nil
}

// GetByID fetches an appointment.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return appt, nil
}

// ListByUser returns the user's appointments, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var results []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		results = append(results, appt)
	}
	return results, rows.Err()
}

// UpdateStatus overwrites the lifecycle status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	return r.exec(ctx, `UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
}

// UpdateSchedule overwrites date and time with no availability check.
func (r *PostgresRepository) UpdateSchedule(ctx context.Context, id int64, date, timeOfDay string) error {
	return r.exec(ctx,
		`UPDATE appointments SET appointment_date = $2, appointment_time = $3, updated_at = NOW() WHERE id = $1`,
		id, date, timeOfDay)
}

// SetStripeIntent stores the provider tracking token for a card payment.
func (r *PostgresRepository) SetStripeIntent(ctx context.Context, id int64, intentID string) error {
	return r.exec(ctx,
		`UPDATE appointments SET stripe_payment_intent_id = $2, updated_at = NOW() WHERE id = $1`,
		id, intentID)
}

// SetMpesaCheckout stores the provider tracking token for an STK push.
func (r *PostgresRepository) SetMpesaCheckout(ctx context.Context, id int64, checkoutRequestID string) error {
	return r.exec(ctx,
		`UPDATE appointments SET mpesa_checkout_request_id = $2, updated_at = NOW() WHERE id = $1`,
		id, checkoutRequestID)
}

// ConfirmPaid marks the appointment confirmed with payment settled.
func (r *PostgresRepository) ConfirmPaid(ctx context.Context, id int64) error {
	return r.exec(ctx,
		`UPDATE appointments SET status = 'confirmed', payment_status = 'paid', updated_at = NOW() WHERE id = $1`,
		id)
}

// MarkPaid records a settled payment together with its method and provider
// tracking token, and confirms the appointment.
func (r *PostgresRepository) MarkPaid(ctx context.Context, id int64, method PaymentMethod, trackingToken string) error {
	var query string
	switch method {
	case MethodStripe:
		query = `UPDATE appointments SET status = 'confirmed', payment_status = 'paid', payment_method = 'stripe', stripe_payment_intent_id = $2, updated_at = NOW() WHERE id = $1`
	case MethodMpesa:
		query = `UPDATE appointments SET status = 'confirmed', payment_status = 'paid', payment_method = 'mpesa', mpesa_checkout_request_id = $2, updated_at = NOW() WHERE id = $1`
	default:
		return fmt.Errorf("appointments: cannot mark paid with method %q", method)
	}
	return r.exec(ctx, query, id, trackingToken)
}

// MarkPaymentFailed records a failed payment. Lifecycle status is untouched.
func (r *PostgresRepository) MarkPaymentFailed(ctx context.Context, id int64) error {
	return r.exec(ctx,
		`UPDATE appointments SET payment_status = 'failed', updated_at = NOW() WHERE id = $1`,
		id)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("appointments: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var appt Appointment
	err := row.Scan(
		&appt.ID,
		&appt.UserID,
		&appt.DoctorName,
		&appt.Department,
		&appt.AppointmentDate,
		&appt.AppointmentTime,
		&appt.PatientFirstName,
		&appt.PatientLastName,
		&appt.PatientEmail,
		&appt.PatientPhone,
		&appt.ReasonForVisit,
		&appt.InsuranceProvider,
		&appt.Status,
		&appt.ConsultationFee,
		&appt.PaymentStatus,
		&appt.PaymentMethod,
		&appt.StripePaymentIntentID,
		&appt.MpesaCheckoutRequestID,
		&appt.EmailSent,
		&appt.ConfirmationEmailSent,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
