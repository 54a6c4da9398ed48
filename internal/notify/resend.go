package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apexcare/booking-platform/pkg/logging"
)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	apiKey     string
	fromEmail  string
	fromName   string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// ResendConfig holds configuration for Resend.
type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewResendSender creates a new Resend email sender. Returns nil when no API
// key is configured.
func NewResendSender(cfg ResendConfig, logger *logging.Logger) *ResendSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "ApexCare Hospital"
	}
	return &ResendSender{
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		baseURL:    "https://api.resend.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Resend API base URL (for testing).
func (s *ResendSender) WithBaseURL(baseURL string) *ResendSender {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// Send sends an email via Resend.
func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	payload := resendRequest{
		From:    fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail),
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Body,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("notify: resend encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("notify: resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("resend send failed", "error", err, "to", msg.To)
		return "", fmt.Errorf("notify: resend http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		s.logger.Error("resend returned error status", "status", resp.StatusCode, "body", string(respBody), "to", msg.To)
		return "", fmt.Errorf("notify: resend returned status %d", resp.StatusCode)
	}

	var parsed resendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("notify: resend decode: %w", err)
	}
	s.logger.Info("email sent via resend", "to", msg.To, "subject", msg.Subject, "message_id", parsed.ID)
	return parsed.ID, nil
}
