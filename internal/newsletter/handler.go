package newsletter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apexcare/booking-platform/pkg/logging"
)

// Handler exposes subscribe and unsubscribe over HTTP.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe handles POST /api/newsletter/subscribe.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sub, err := h.repo.Subscribe(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrInvalidEmail) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
			return
		}
		h.logger.Error("newsletter subscribe failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "subscription failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "subscribed to newsletter",
		"subscriber": sub,
	})
}

// Unsubscribe handles POST /api/newsletter/unsubscribe.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.repo.Unsubscribe(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
		case errors.Is(err, ErrNotSubscribed):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "email is not subscribed"})
		default:
			h.logger.Error("newsletter unsubscribe failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unsubscribe failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "unsubscribed from newsletter"})
}

// Status handles GET /api/newsletter/status?email=.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	subscribed, err := h.repo.IsSubscribed(r.Context(), email)
	if err != nil {
		if errors.Is(err, ErrInvalidEmail) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
			return
		}
		h.logger.Error("newsletter status lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status lookup failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"subscribed": subscribed})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
