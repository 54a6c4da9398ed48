package payments

import "time"

// Stripe payment lifecycle values as stored in stripe_payments.status.
const (
	StripeStatusPending   = "pending"
	StripeStatusSucceeded = "succeeded"
	StripeStatusFailed    = "failed"
)

// M-Pesa payment lifecycle values as stored in mpesa_payments.status.
const (
	MpesaStatusPending   = "pending"
	MpesaStatusSucceeded = "succeeded"
	MpesaStatusFailed    = "failed"
	MpesaStatusTimeout   = "timeout"
)

// StripePayment is one card payment attempt. Amounts are stored in major
// currency units; the wire format to the provider uses cents.
type StripePayment struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	AppointmentID   int64     `json:"appointment_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MpesaPayment is one STK push attempt. Amount is in KES.
type MpesaPayment struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	AppointmentID      int64     `json:"appointment_id"`
	CheckoutRequestID  string    `json:"checkout_request_id"`
	MerchantRequestID  string    `json:"merchant_request_id"`
	PhoneNumber        string    `json:"phone_number"`
	Amount             float64   `json:"amount"`
	Status             string    `json:"status"`
	MpesaReceiptNumber string    `json:"mpesa_receipt_number,omitempty"`
	TransactionDate    string    `json:"transaction_date,omitempty"`
	ResultDesc         string    `json:"result_desc,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
