package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/apexcare/booking-platform/internal/appointments"
	"github.com/apexcare/booking-platform/pkg/logging"
)

var mpesaTracer = otel.Tracer("booking.internal.payments.mpesa")

// ErrNotConfigured is returned when required Daraja credentials are missing.
var ErrNotConfigured = errors.New("mpesa gateway not configured")

// MpesaConfig carries the Daraja credentials and endpoints.
type MpesaConfig struct {
	ConsumerKey       string
	ConsumerSecret    string
	BusinessShortCode string
	Passkey           string
	BaseURL           string
	CallbackURL       string
	// TokenMargin is subtracted from the provider's expiry so a token is
	// never used right at its deadline.
	TokenMargin time.Duration
}

// MpesaGateway sends STK pushes through the Daraja API and records every
// attempt in mpesa_payments. OAuth tokens are cached until shortly before
// expiry.
type MpesaGateway struct {
	cfg        MpesaConfig
	httpClient *http.Client
	repo       Repository
	logger     *logging.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewMpesaGateway creates a mobile-money gateway.
func NewMpesaGateway(cfg MpesaConfig, repo Repository, logger *logging.Logger) *MpesaGateway {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://sandbox.safaricom.co.ke"
	}
	if cfg.TokenMargin <= 0 {
		cfg.TokenMargin = time.Minute
	}
	return &MpesaGateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		repo:       repo,
		logger:     logger,
	}
}

// WithBaseURL overrides the Daraja base URL (for testing).
func (g *MpesaGateway) WithBaseURL(baseURL string) *MpesaGateway {
	if baseURL != "" {
		g.cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return g
}

func (g *MpesaGateway) configured() bool {
	return g.cfg.ConsumerKey != "" && g.cfg.ConsumerSecret != "" &&
		g.cfg.BusinessShortCode != "" && g.cfg.Passkey != ""
}

// accessToken returns a cached OAuth token, fetching a fresh one when the
// cached token is within TokenMargin of expiry.
func (g *MpesaGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	apiURL := g.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("payments: mpesa oauth request: %w", err)
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(g.cfg.ConsumerKey + ":" + g.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+credentials)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("payments: mpesa oauth http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("payments: mpesa oauth status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("payments: mpesa oauth decode: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("payments: mpesa oauth response missing access token")
	}

	ttl := time.Hour
	if parsed.ExpiresIn != "" {
		var seconds int64
		if _, err := fmt.Sscanf(parsed.ExpiresIn, "%d", &seconds); err == nil && seconds > 0 {
			ttl = time.Duration(seconds) * time.Second
		}
	}
	g.token = parsed.AccessToken
	g.tokenExpiry = time.Now().Add(ttl - g.cfg.TokenMargin)
	return g.token, nil
}

// password returns base64(shortcode + passkey + timestamp) per Daraja.
func (g *MpesaGateway) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(g.cfg.BusinessShortCode + g.cfg.Passkey + timestamp))
}

func darajaTimestamp(t time.Time) string {
	return t.Format("20060102150405")
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiatePush sends an STK push to the patient's phone and records a pending
// mpesa_payments row. phoneNumber must already be canonical 254XXXXXXXXX.
// Fractional amounts are rounded up since Daraja only accepts whole shillings.
func (g *MpesaGateway) InitiatePush(ctx context.Context, appointmentID, userID int64, phoneNumber string, amount float64, reference, description string) (*appointments.MobilePush, error) {
	ctx, span := mpesaTracer.Start(ctx, "mpesa.stk_push")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("booking.appointment_id", appointmentID),
		attribute.Float64("booking.amount", amount),
	)

	if !g.configured() {
		return nil, ErrNotConfigured
	}

	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := darajaTimestamp(time.Now())
	payload := stkPushRequest{
		BusinessShortCode: g.cfg.BusinessShortCode,
		Password:          g.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int64(math.Ceil(amount)),
		PartyA:            phoneNumber,
		PartyB:            g.cfg.BusinessShortCode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       g.cfg.CallbackURL,
		AccountReference:  reference,
		TransactionDesc:   description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payments: mpesa encode: %w", err)
	}

	apiURL := g.cfg.BaseURL + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payments: mpesa request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: mpesa http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payments: mpesa stk push status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed stkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("payments: mpesa decode: %w", err)
	}
	if parsed.ResponseCode != "0" {
		return nil, fmt.Errorf("payments: mpesa stk push rejected: %s", parsed.ResponseDescription)
	}
	if parsed.CheckoutRequestID == "" {
		return nil, fmt.Errorf("payments: mpesa response missing checkout request id")
	}

	record := &MpesaPayment{
		UserID:            userID,
		AppointmentID:     appointmentID,
		CheckoutRequestID: parsed.CheckoutRequestID,
		MerchantRequestID: parsed.MerchantRequestID,
		PhoneNumber:       phoneNumber,
		Amount:            amount,
	}
	if err := g.repo.CreateMpesaPending(ctx, record); err != nil {
		g.logger.Error("failed to record pending mpesa payment", "error", err,
			"appointment_id", appointmentID, "checkout_request_id", parsed.CheckoutRequestID)
	}

	g.logger.Info("mpesa stk push sent",
		"appointment_id", appointmentID, "checkout_request_id", parsed.CheckoutRequestID, "phone", phoneNumber)

	return &appointments.MobilePush{
		CheckoutRequestID: parsed.CheckoutRequestID,
		MerchantRequestID: parsed.MerchantRequestID,
	}, nil
}

type stkQueryResponse struct {
	ResponseCode string `json:"ResponseCode"`
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
}

// StatusResult is the outcome of polling an STK push.
type StatusResult struct {
	Settled    bool
	Failed     bool
	ResultCode string
	ResultDesc string
}

// QueryStatus polls Daraja for the state of an earlier STK push. A push that
// the customer has not yet acted on is neither settled nor failed.
func (g *MpesaGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*StatusResult, error) {
	ctx, span := mpesaTracer.Start(ctx, "mpesa.stk_query")
	defer span.End()
	span.SetAttributes(attribute.String("booking.checkout_request_id", checkoutRequestID))

	if !g.configured() {
		return nil, ErrNotConfigured
	}

	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := darajaTimestamp(time.Now())
	payload := map[string]string{
		"BusinessShortCode": g.cfg.BusinessShortCode,
		"Password":          g.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}
	body, _ := json.Marshal(payload)

	apiURL := g.cfg.BaseURL + "/mpesa/stkpushquery/v1/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payments: mpesa request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: mpesa http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payments: mpesa query status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed stkQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("payments: mpesa decode: %w", err)
	}

	result := &StatusResult{ResultCode: parsed.ResultCode, ResultDesc: parsed.ResultDesc}
	switch parsed.ResultCode {
	case "0":
		result.Settled = true
	case "":
		// still processing
	default:
		result.Failed = true
	}
	return result, nil
}
