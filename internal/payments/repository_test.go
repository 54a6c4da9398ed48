package payments

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentsMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestCreateStripePending(t *testing.T) {
	mock := newPaymentsMock(t)
	repo := NewPostgresRepository(mock)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO stripe_payments`).
		WithArgs(int64(7), int64(42), "pi_123", 150.0, "usd").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(1), now, now))

	p := &StripePayment{
		UserID:          7,
		AppointmentID:   42,
		PaymentIntentID: "pi_123",
		Amount:          150.0,
		Currency:        "usd",
	}
	require.NoError(t, repo.CreateStripePending(context.Background(), p))
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, StripeStatusPending, p.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStripeStatusNotFound(t *testing.T) {
	mock := newPaymentsMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectExec(`UPDATE stripe_payments SET status`).
		WithArgs("pi_missing", StripeStatusSucceeded).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetStripeStatus(context.Background(), "pi_missing", StripeStatusSucceeded)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStripeByIntentNotFound(t *testing.T) {
	mock := newPaymentsMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM stripe_payments WHERE payment_intent_id`).
		WithArgs("pi_missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetStripeByIntent(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteMpesaStoresReceipt(t *testing.T) {
	mock := newPaymentsMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectExec(`UPDATE mpesa_payments SET status = 'succeeded'`).
		WithArgs("ws_CO_123", "QKK12XYZ98", "20250812143000").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.CompleteMpesa(context.Background(), "ws_CO_123", "QKK12XYZ98", "20250812143000")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeoutMpesaStoresResultDesc(t *testing.T) {
	mock := newPaymentsMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectExec(`UPDATE mpesa_payments SET status = 'timeout'`).
		WithArgs("ws_CO_123", "DS timeout user cannot be reached").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.TimeoutMpesa(context.Background(), "ws_CO_123", "DS timeout user cannot be reached")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMpesaByCheckout(t *testing.T) {
	mock := newPaymentsMock(t)
	repo := NewPostgresRepository(mock)

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM mpesa_payments WHERE checkout_request_id`).
		WithArgs("ws_CO_123").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "appointment_id", "checkout_request_id", "merchant_request_id",
			"phone_number", "amount", "status", "mpesa_receipt_number", "transaction_date",
			"result_desc", "created_at", "updated_at",
		}).AddRow(
			int64(3), int64(7), int64(42), "ws_CO_123", "29115-34600561-1",
			"254712345678", 2500.0, MpesaStatusSucceeded, "QKK12XYZ98", "20250812143000",
			"", now, now,
		))

	p, err := repo.GetMpesaByCheckout(context.Background(), "ws_CO_123")
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.AppointmentID)
	assert.Equal(t, "QKK12XYZ98", p.MpesaReceiptNumber)
	assert.Equal(t, MpesaStatusSucceeded, p.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
