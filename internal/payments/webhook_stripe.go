package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apexcare/booking-platform/internal/appointments"
	"github.com/apexcare/booking-platform/internal/observability/metrics"
	"github.com/apexcare/booking-platform/pkg/logging"
)

// StripeWebhookHandler processes payment intent events from Stripe. Provider
// retries are driven by non-2xx responses, so malformed or unknown payloads
// are acknowledged with 200 and logged rather than bounced.
type StripeWebhookHandler struct {
	webhookSecret string
	payments      Repository
	appts         appointments.Repository
	notifier      appointments.Notifier
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
}

// NewStripeWebhookHandler creates the webhook handler. An empty webhookSecret
// disables signature verification (development only).
func NewStripeWebhookHandler(
	webhookSecret string,
	paymentsRepo Repository,
	apptsRepo appointments.Repository,
	notifier appointments.Notifier,
	logger *logging.Logger,
) *StripeWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeWebhookHandler{
		webhookSecret: webhookSecret,
		payments:      paymentsRepo,
		appts:         apptsRepo,
		notifier:      notifier,
		logger:        logger,
	}
}

// WithMetrics attaches webhook metrics.
func (h *StripeWebhookHandler) WithMetrics(m *metrics.BookingMetrics) *StripeWebhookHandler {
	h.metrics = m
	return h
}

type stripeWebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Amount   int64             `json:"amount"`
			Currency string            `json:"currency"`
			Metadata map[string]string `json:"metadata"`
			LastPaymentError struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

// Handle processes incoming Stripe webhook events.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.ObserveWebhook("stripe", time.Since(start).Seconds())
	}()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("stripe webhook body read failed", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	if !verifyStripeSignature(h.webhookSecret, payload, r.Header.Get("Stripe-Signature")) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt stripeWebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Warn("stripe webhook payload not decodable, acknowledging", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	switch evt.Type {
	case "payment_intent.succeeded":
		h.handleSucceeded(r.Context(), evt)
	case "payment_intent.payment_failed":
		h.handleFailed(r.Context(), evt)
	default:
		// other event types are none of our business
	}

	w.WriteHeader(http.StatusOK)
}

func (h *StripeWebhookHandler) handleSucceeded(ctx context.Context, evt stripeWebhookEvent) {
	intentID := evt.Data.Object.ID
	if intentID == "" {
		h.logger.Warn("stripe success event missing intent id", "event_id", evt.ID)
		return
	}

	if err := h.payments.SetStripeStatus(ctx, intentID, StripeStatusSucceeded); err != nil {
		h.logger.Error("failed to mark stripe payment succeeded", "error", err, "intent_id", intentID)
	}

	appointmentID, ok := appointmentIDFromMetadata(evt.Data.Object.Metadata)
	if !ok {
		h.logger.Warn("stripe success event missing appointment metadata", "event_id", evt.ID, "intent_id", intentID)
		return
	}

	if err := h.appts.MarkPaid(ctx, appointmentID, appointments.MethodStripe, intentID); err != nil {
		h.logger.Error("failed to mark appointment paid", "error", err, "appointment_id", appointmentID)
		return
	}
	h.metrics.ObservePayment("stripe", "paid")
	h.logger.Info("stripe payment settled", "appointment_id", appointmentID, "intent_id", intentID)

	if h.notifier != nil {
		if appt, err := h.appts.GetByID(ctx, appointmentID); err == nil {
			amount := float64(evt.Data.Object.Amount) / 100
			h.notifier.SendReceipt(ctx, appt, amount, strings.ToUpper(evt.Data.Object.Currency), "stripe", intentID)
		}
	}
}

func (h *StripeWebhookHandler) handleFailed(ctx context.Context, evt stripeWebhookEvent) {
	intentID := evt.Data.Object.ID
	if intentID == "" {
		h.logger.Warn("stripe failure event missing intent id", "event_id", evt.ID)
		return
	}

	if err := h.payments.SetStripeStatus(ctx, intentID, StripeStatusFailed); err != nil {
		h.logger.Error("failed to mark stripe payment failed", "error", err, "intent_id", intentID)
	}

	appointmentID, ok := appointmentIDFromMetadata(evt.Data.Object.Metadata)
	if !ok {
		h.logger.Warn("stripe failure event missing appointment metadata", "event_id", evt.ID, "intent_id", intentID)
		return
	}

	if err := h.appts.MarkPaymentFailed(ctx, appointmentID); err != nil {
		h.logger.Error("failed to mark appointment payment failed", "error", err, "appointment_id", appointmentID)
		return
	}
	h.metrics.ObservePayment("stripe", "failed")

	if h.notifier != nil {
		if appt, err := h.appts.GetByID(ctx, appointmentID); err == nil {
			amount := float64(evt.Data.Object.Amount) / 100
			reason := evt.Data.Object.LastPaymentError.Message
			if reason == "" {
				reason = "payment was declined"
			}
			h.notifier.SendPaymentFailed(ctx, appt, amount, strings.ToUpper(evt.Data.Object.Currency), reason)
		}
	}
}

func appointmentIDFromMetadata(metadata map[string]string) (int64, bool) {
	raw := metadata["appointment_id"]
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// verifyStripeSignature verifies a Stripe webhook signature.
// Stripe signs with HMAC-SHA256 and sends the signature in the
// Stripe-Signature header as: t=<timestamp>,v1=<signature>[,v0=<sig>]
func verifyStripeSignature(secret string, payload []byte, header string) bool {
	if secret == "" {
		return true // bypass for development
	}
	if header == "" {
		return false
	}

	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if abs64(time.Now().Unix()-ts) > 300 {
		return false
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
