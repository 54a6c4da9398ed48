package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apexcare/booking-platform/internal/appointments"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps booking service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case appointments.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, appointments.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, appointments.ErrNotOwner):
		writeError(w, http.StatusForbidden, "you do not have access to this appointment")
	case errors.Is(err, appointments.ErrPaymentInitiation):
		writeError(w, http.StatusBadGateway, "failed to initiate payment, please try again")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
