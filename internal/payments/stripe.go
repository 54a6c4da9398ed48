package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/apexcare/booking-platform/internal/appointments"
	"github.com/apexcare/booking-platform/pkg/logging"
)

var stripeTracer = otel.Tracer("booking.internal.payments.stripe")

// StripeGateway creates and polls payment intents against the Stripe API and
// records every attempt in stripe_payments. It is the card side of booking.
type StripeGateway struct {
	secretKey  string
	currency   string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	repo       Repository
	logger     *logging.Logger
}

// NewStripeGateway creates a card payment gateway. currency defaults to usd.
func NewStripeGateway(secretKey, currency string, repo Repository, logger *logging.Logger) *StripeGateway {
	if logger == nil {
		logger = logging.Default()
	}
	if currency == "" {
		currency = "usd"
	}
	return &StripeGateway{
		secretKey:  secretKey,
		currency:   strings.ToLower(currency),
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		repo:       repo,
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (g *StripeGateway) WithBaseURL(baseURL string) *StripeGateway {
	if baseURL != "" {
		g.baseURL = strings.TrimRight(baseURL, "/")
	}
	return g
}

// stripePaymentIntent is the subset of Stripe's PaymentIntent we need.
type stripePaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
}

// CreateIntent creates a payment intent for the consultation fee and records
// a pending stripe_payments row. Amount is in cents on the wire; the stored
// row keeps major units.
func (g *StripeGateway) CreateIntent(ctx context.Context, appointmentID, userID int64, amountCents int64, description string) (*appointments.CardIntent, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_payment_intent")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("booking.appointment_id", appointmentID),
		attribute.Int64("booking.amount_cents", amountCents),
	)

	if g.secretKey == "" {
		return nil, fmt.Errorf("payments: stripe secret key not configured")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", g.currency)
	form.Set("description", description)
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[appointment_id]", strconv.FormatInt(appointmentID, 10))
	form.Set("metadata[user_id]", strconv.FormatInt(userID, 10))

	apiURL := g.baseURL + "/v1/payment_intents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", g.apiVersion)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, string(body))
	}

	var parsed stripePaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("payments: stripe decode: %w", err)
	}
	if parsed.ID == "" || parsed.ClientSecret == "" {
		return nil, fmt.Errorf("payments: stripe response missing intent id or client secret")
	}

	record := &StripePayment{
		UserID:          userID,
		AppointmentID:   appointmentID,
		PaymentIntentID: parsed.ID,
		Amount:          float64(amountCents) / 100,
		Currency:        g.currency,
	}
	if err := g.repo.CreateStripePending(ctx, record); err != nil {
		g.logger.Error("failed to record pending stripe payment", "error", err,
			"appointment_id", appointmentID, "intent_id", parsed.ID)
	}

	g.logger.Info("stripe payment intent created",
		"appointment_id", appointmentID, "intent_id", parsed.ID, "amount_cents", amountCents)

	return &appointments.CardIntent{IntentID: parsed.ID, ClientSecret: parsed.ClientSecret}, nil
}

// PollIntent fetches the current status of a payment intent. It returns true
// only when the provider reports succeeded; any other status is simply not
// settled yet and carries no error.
func (g *StripeGateway) PollIntent(ctx context.Context, paymentIntentID string) (bool, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.poll_payment_intent")
	defer span.End()
	span.SetAttributes(attribute.String("booking.intent_id", paymentIntentID))

	apiURL := g.baseURL + "/v1/payment_intents/" + url.PathEscape(paymentIntentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return false, fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Stripe-Version", g.apiVersion)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, string(body))
	}

	var parsed stripePaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("payments: stripe decode: %w", err)
	}
	return parsed.Status == "succeeded", nil
}
