package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Email delivery status as stored in email_logs.status. Bounces are reported
// asynchronously by the provider, so no sender sets StatusBounced directly.
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusBounced = "bounced"
)

// EmailLog is one append-only record of an email attempt. Rows are never
// updated or deleted.
type EmailLog struct {
	ID                int64     `json:"id"`
	RecipientEmail    string    `json:"recipient_email"`
	Subject           string    `json:"subject"`
	Category          string    `json:"category"`
	Status            string    `json:"status"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	AppointmentID     *int64    `json:"appointment_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists the email audit log.
type Repository interface {
	Insert(ctx context.Context, log *EmailLog) error
}

// PostgresRepository appends email log rows. There are no update paths on
// purpose.
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("notify: db required")
	}
	return &PostgresRepository{db: db}
}

// Insert appends one log row.
func (r *PostgresRepository) Insert(ctx context.Context, log *EmailLog) error {
	query := `
		INSERT INTO email_logs (recipient_email, subject, category, status, provider_message_id, error_message, appointment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	var providerID, errMsg any
	if log.ProviderMessageID != "" {
		providerID = log.ProviderMessageID
	}
	if log.ErrorMessage != "" {
		errMsg = log.ErrorMessage
	}
	row := r.db.QueryRow(ctx, query,
		log.RecipientEmail, log.Subject, log.Category, log.Status, providerID, errMsg, log.AppointmentID)
	if err := row.Scan(&log.ID, &log.CreatedAt); err != nil {
		return fmt.Errorf("notify: log insert failed: %w", err)
	}
	return nil
}
