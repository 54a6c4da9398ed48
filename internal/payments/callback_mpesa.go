package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/apexcare/booking-platform/internal/appointments"
	"github.com/apexcare/booking-platform/internal/observability/metrics"
	"github.com/apexcare/booking-platform/pkg/logging"
)

// MpesaCallbackHandler processes STK push results delivered by Daraja.
// Daraja retries on non-2xx, so every request is acknowledged with
// ResultCode 0 regardless of payload shape; processing failures are logged.
type MpesaCallbackHandler struct {
	payments Repository
	appts    appointments.Repository
	notifier appointments.Notifier
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

// NewMpesaCallbackHandler creates the callback handler.
func NewMpesaCallbackHandler(
	paymentsRepo Repository,
	apptsRepo appointments.Repository,
	notifier appointments.Notifier,
	logger *logging.Logger,
) *MpesaCallbackHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &MpesaCallbackHandler{
		payments: paymentsRepo,
		appts:    apptsRepo,
		notifier: notifier,
		logger:   logger,
	}
}

// WithMetrics attaches webhook metrics.
func (h *MpesaCallbackHandler) WithMetrics(m *metrics.BookingMetrics) *MpesaCallbackHandler {
	h.metrics = m
	return h
}

type mpesaCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// metadataString extracts a named item from callback metadata. Daraja sends
// values as mixed strings and numbers, so both are accepted.
func (e *mpesaCallbackEnvelope) metadataString(name string) string {
	for _, item := range e.Body.StkCallback.CallbackMetadata.Item {
		if item.Name != name {
			continue
		}
		var s string
		if err := json.Unmarshal(item.Value, &s); err == nil {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(item.Value, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// Handle processes an STK push result.
func (h *MpesaCallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.ObserveWebhook("mpesa", time.Since(start).Seconds())
	}()

	var envelope mpesaCallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.Warn("mpesa callback payload not decodable, acknowledging", "error", err)
		h.ack(w)
		return
	}

	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		h.logger.Warn("mpesa callback missing checkout request id, acknowledging")
		h.ack(w)
		return
	}

	if cb.ResultCode == 0 {
		h.handleSuccess(r.Context(), &envelope)
	} else {
		h.handleFailure(r.Context(), &envelope)
	}
	h.ack(w)
}

func (h *MpesaCallbackHandler) handleSuccess(ctx context.Context, envelope *mpesaCallbackEnvelope) {
	cb := envelope.Body.StkCallback
	receipt := envelope.metadataString("MpesaReceiptNumber")
	txnDate := envelope.metadataString("TransactionDate")

	if err := h.payments.CompleteMpesa(ctx, cb.CheckoutRequestID, receipt, txnDate); err != nil {
		h.logger.Error("failed to complete mpesa payment", "error", err,
			"checkout_request_id", cb.CheckoutRequestID)
	}

	payment, err := h.payments.GetMpesaByCheckout(ctx, cb.CheckoutRequestID)
	if err != nil {
		h.logger.Error("mpesa callback for unknown payment", "error", err,
			"checkout_request_id", cb.CheckoutRequestID)
		return
	}

	if err := h.appts.MarkPaid(ctx, payment.AppointmentID, appointments.MethodMpesa, cb.CheckoutRequestID); err != nil {
		h.logger.Error("failed to mark appointment paid", "error", err,
			"appointment_id", payment.AppointmentID)
		return
	}
	h.metrics.ObservePayment("mpesa", "paid")
	h.logger.Info("mpesa payment settled",
		"appointment_id", payment.AppointmentID,
		"checkout_request_id", cb.CheckoutRequestID,
		"receipt", receipt)

	if h.notifier != nil {
		if appt, err := h.appts.GetByID(ctx, payment.AppointmentID); err == nil {
			h.notifier.SendReceipt(ctx, appt, payment.Amount, "KES", "mpesa", receipt)
		}
	}
}

// darajaResultTimeout is returned when the STK prompt expires without the
// user entering a PIN.
const darajaResultTimeout = 1037

func (h *MpesaCallbackHandler) handleFailure(ctx context.Context, envelope *mpesaCallbackEnvelope) {
	cb := envelope.Body.StkCallback

	record := h.payments.FailMpesa
	if cb.ResultCode == darajaResultTimeout {
		record = h.payments.TimeoutMpesa
	}
	if err := record(ctx, cb.CheckoutRequestID, cb.ResultDesc); err != nil {
		h.logger.Error("failed to record mpesa failure", "error", err,
			"checkout_request_id", cb.CheckoutRequestID)
	}

	payment, err := h.payments.GetMpesaByCheckout(ctx, cb.CheckoutRequestID)
	if err != nil {
		h.logger.Error("mpesa failure callback for unknown payment", "error", err,
			"checkout_request_id", cb.CheckoutRequestID)
		return
	}

	if err := h.appts.MarkPaymentFailed(ctx, payment.AppointmentID); err != nil {
		h.logger.Error("failed to mark appointment payment failed", "error", err,
			"appointment_id", payment.AppointmentID)
		return
	}
	h.metrics.ObservePayment("mpesa", "failed")
	h.logger.Info("mpesa payment failed",
		"appointment_id", payment.AppointmentID,
		"result_code", cb.ResultCode,
		"result_desc", cb.ResultDesc)

	if h.notifier != nil {
		if appt, err := h.appts.GetByID(ctx, payment.AppointmentID); err == nil {
			reason := cb.ResultDesc
			if reason == "" {
				reason = fmt.Sprintf("payment failed with code %d", cb.ResultCode)
			}
			h.notifier.SendPaymentFailed(ctx, appt, payment.Amount, "KES", reason)
		}
	}
}

func (h *MpesaCallbackHandler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
}
