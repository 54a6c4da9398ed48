package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no payment row matches the lookup.
var ErrNotFound = errors.New("payment not found")

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists payment attempts for both providers.
type Repository interface {
	CreateStripePending(ctx context.Context, p *StripePayment) error
	SetStripeStatus(ctx context.Context, paymentIntentID, status string) error
	GetStripeByIntent(ctx context.Context, paymentIntentID string) (*StripePayment, error)

	CreateMpesaPending(ctx context.Context, p *MpesaPayment) error
	CompleteMpesa(ctx context.Context, checkoutRequestID, receiptNumber, transactionDate string) error
	FailMpesa(ctx context.Context, checkoutRequestID, resultDesc string) error
	TimeoutMpesa(ctx context.Context, checkoutRequestID, resultDesc string) error
	GetMpesaByCheckout(ctx context.Context, checkoutRequestID string) (*MpesaPayment, error)
}

// PostgresRepository stores payments in stripe_payments and mpesa_payments.
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("payments: db required")
	}
	return &PostgresRepository{db: db}
}

// CreateStripePending inserts a pending card payment row.
func (r *PostgresRepository) CreateStripePending(ctx context.Context, p *StripePayment) error {
	query := `
		INSERT INTO stripe_payments (user_id, appointment_id, payment_intent_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, created_at, updated_at
	`
	row := r.db.QueryRow(ctx, query, p.UserID, p.AppointmentID, p.PaymentIntentID, p.Amount, p.Currency)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("payments: stripe insert failed: %w", err)
	}
	p.Status = StripeStatusPending
	return nil
}

// SetStripeStatus updates a card payment by its provider tracking token.
func (r *PostgresRepository) SetStripeStatus(ctx context.Context, paymentIntentID, status string) error {
	return r.exec(ctx,
		`UPDATE stripe_payments SET status = $2, updated_at = NOW() WHERE payment_intent_id = $1`,
		paymentIntentID, status)
}

// GetStripeByIntent looks a card payment up by payment intent id.
func (r *PostgresRepository) GetStripeByIntent(ctx context.Context, paymentIntentID string) (*StripePayment, error) {
	query := `
		SELECT id, user_id, appointment_id, payment_intent_id, amount, currency, status, created_at, updated_at
		FROM stripe_payments WHERE payment_intent_id = $1
	`
	var p StripePayment
	err := r.db.QueryRow(ctx, query, paymentIntentID).Scan(
		&p.ID, &p.UserID, &p.AppointmentID, &p.PaymentIntentID,
		&p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("payments: stripe select failed: %w", err)
	}
	return &p, nil
}

// CreateMpesaPending inserts a pending mobile-money payment row.
func (r *PostgresRepository) CreateMpesaPending(ctx context.Context, p *MpesaPayment) error {
	query := `
		INSERT INTO mpesa_payments (user_id, appointment_id, checkout_request_id, merchant_request_id, phone_number, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING id, created_at, updated_at
	`
	row := r.db.QueryRow(ctx, query,
		p.UserID, p.AppointmentID, p.CheckoutRequestID, p.MerchantRequestID, p.PhoneNumber, p.Amount)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("payments: mpesa insert failed: %w", err)
	}
	p.Status = MpesaStatusPending
	return nil
}

// CompleteMpesa records a settled STK push with its receipt details.
func (r *PostgresRepository) CompleteMpesa(ctx context.Context, checkoutRequestID, receiptNumber, transactionDate string) error {
	return r.exec(ctx,
		`UPDATE mpesa_payments SET status = 'succeeded', mpesa_receipt_number = $2, transaction_date = $3, updated_at = NOW() WHERE checkout_request_id = $1`,
		checkoutRequestID, receiptNumber, transactionDate)
}

// FailMpesa records a declined STK push.
func (r *PostgresRepository) FailMpesa(ctx context.Context, checkoutRequestID, resultDesc string) error {
	return r.exec(ctx,
		`UPDATE mpesa_payments SET status = 'failed', result_desc = $2, updated_at = NOW() WHERE checkout_request_id = $1`,
		checkoutRequestID, resultDesc)
}

// TimeoutMpesa records a push the user never answered. Daraja reports this
// as ResultCode 1037.
func (r *PostgresRepository) TimeoutMpesa(ctx context.Context, checkoutRequestID, resultDesc string) error {
	return r.exec(ctx,
		`UPDATE mpesa_payments SET status = 'timeout', result_desc = $2, updated_at = NOW() WHERE checkout_request_id = $1`,
		checkoutRequestID, resultDesc)
}

// GetMpesaByCheckout looks a mobile-money payment up by checkout request id.
func (r *PostgresRepository) GetMpesaByCheckout(ctx context.Context, checkoutRequestID string) (*MpesaPayment, error) {
	query := `
		SELECT id, user_id, appointment_id, checkout_request_id, merchant_request_id, phone_number,
			amount, status, COALESCE(mpesa_receipt_number, ''), COALESCE(transaction_date, ''),
			COALESCE(result_desc, ''), created_at, updated_at
		FROM mpesa_payments WHERE checkout_request_id = $1
	`
	var p MpesaPayment
	err := r.db.QueryRow(ctx, query, checkoutRequestID).Scan(
		&p.ID, &p.UserID, &p.AppointmentID, &p.CheckoutRequestID, &p.MerchantRequestID, &p.PhoneNumber,
		&p.Amount, &p.Status, &p.MpesaReceiptNumber, &p.TransactionDate,
		&p.ResultDesc, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("payments: mpesa select failed: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("payments: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
