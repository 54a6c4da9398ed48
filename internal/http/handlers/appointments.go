package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/apexcare/booking-platform/internal/appointments"
	"github.com/apexcare/booking-platform/internal/identity"
	"github.com/apexcare/booking-platform/internal/payments"
	"github.com/apexcare/booking-platform/pkg/logging"
)

// BookingService is the slice of the appointment service the handler uses.
type BookingService interface {
	Book(ctx context.Context, input appointments.BookingInput, actor identity.Actor) (*appointments.BookingResult, error)
	BookWithStripe(ctx context.Context, input appointments.BookingInput, fee float64, actor identity.Actor) (*appointments.CardBookingResult, error)
	BookWithMpesa(ctx context.Context, input appointments.BookingInput, fee float64, actor identity.Actor) (*appointments.MpesaBookingResult, error)
	ConfirmPayment(ctx context.Context, appointmentID int64, trackingToken string, actor identity.Actor) (*appointments.Appointment, error)
	Cancel(ctx context.Context, appointmentID int64, actor identity.Actor) error
	Reschedule(ctx context.Context, appointmentID int64, newDate, newTime string, actor identity.Actor) error
	GetUserAppointments(ctx context.Context, userID int64) ([]*appointments.Appointment, error)
	GetByID(ctx context.Context, appointmentID int64) (*appointments.Appointment, error)
}

// CardPoller checks whether a card payment has settled.
type CardPoller interface {
	PollIntent(ctx context.Context, paymentIntentID string) (bool, error)
}

// MobilePoller checks whether an STK push has resolved.
type MobilePoller interface {
	QueryStatus(ctx context.Context, checkoutRequestID string) (*payments.StatusResult, error)
}

// AppointmentHandler exposes the patient-facing booking endpoints.
type AppointmentHandler struct {
	svc        BookingService
	card       CardPoller
	mobile     MobilePoller
	defaultFee float64
	logger     *logging.Logger
}

// NewAppointmentHandler creates the booking handler. defaultFee is used when
// a paid booking request does not name its own consultation fee.
func NewAppointmentHandler(svc BookingService, card CardPoller, mobile MobilePoller, defaultFee float64, logger *logging.Logger) *AppointmentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentHandler{
		svc:        svc,
		card:       card,
		mobile:     mobile,
		defaultFee: defaultFee,
		logger:     logger,
	}
}

type bookingRequest struct {
	appointments.BookingInput
	ConsultationFee float64 `json:"consultation_fee"`
}

func (h *AppointmentHandler) fee(req bookingRequest) float64 {
	if req.ConsultationFee > 0 {
		return req.ConsultationFee
	}
	return h.defaultFee
}

func actorOr401(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return actor, ok
}

func appointmentIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return 0, false
	}
	return id, true
}

// Book handles POST /api/appointments.
func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOr401(w, r)
	if !ok {
		return
	}
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Book(r.Context(), req.BookingInput, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// BookWithStripe handles POST /api/appointments/stripe.
func (h *AppointmentHandler) BookWithStripe(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOr401(w, r)
	if !ok {
		return
	}
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.BookWithStripe(r.Context(), req.BookingInput, h.fee(req), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// BookWithMpesa handles POST /api/appointments/mpesa.
func (h *AppointmentHandler) BookWithMpesa(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOr401(w, r)
	if !ok {
		return
	}
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.BookWithMpesa(r.Context(), req.BookingInput, h.fee(req), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// List handles GET /api/appointments.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOr401(w, r)
	if !ok {
		return
	}
	appts, err := h.svc.GetUserAppointments(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if appts == nil {
		appts = []*appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// Get handles GET /api/appointments/{id}.
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOr401(w, r)
	if !ok {
		return
	}
	id, ok := appointmentIDParam(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if appt.UserID != actor.ID && !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "you do not have access to this appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type confirmPaymentRequest struct {
	TransactionID string `json:"transaction_id"`
}

// ConfirmPayment handles POST /api/appointments/{id}/confirm-payment.
// Clients call this after the provider reports success on their side; it is
// the client-driven counterpart of the provider webhooks.
func (h *AppointmentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOr401(w, r)
	if !ok {
		return
	}
	id, ok := appointmentIDParam(w, r)
	if !ok {
		return
	}
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.svc.ConfirmPayment(r.Context(), id, req.TransactionID, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// PaymentStatus handles GET /api/appointments/{id}/payment-status. It polls
// the provider the appointment was booked with.
func (h *AppointmentHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOr401(w, r)
	if !ok {
		return
	}
	id, ok := appointmentIDParam(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if appt.UserID != actor.ID && !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "you do not have access to this appointment")
		return
	}

	response := map[string]any{
		"appointment_id": appt.ID,
		"payment_status": appt.PaymentStatus,
	}

	switch appt.PaymentMethod {
	case appointments.MethodStripe:
		if appt.PaymentStatus != appointments.PaymentPaid && h.card != nil && appt.StripePaymentIntentID != "" {
			settled, err := h.card.PollIntent(r.Context(), appt.StripePaymentIntentID)
			if err != nil {
				h.logger.Error("stripe poll failed", "error", err, "appointment_id", appt.ID)
			} else {
				response["provider_settled"] = settled
			}
		}
	case appointments.MethodMpesa:
		if appt.PaymentStatus != appointments.PaymentPaid && h.mobile != nil && appt.MpesaCheckoutRequestID != "" {
			status, err := h.mobile.QueryStatus(r.Context(), appt.MpesaCheckoutRequestID)
			if err != nil {
				h.logger.Error("mpesa query failed", "error", err, "appointment_id", appt.ID)
			} else {
				response["provider_settled"] = status.Settled
				response["provider_failed"] = status.Failed
				if status.ResultDesc != "" {
					response["provider_detail"] = status.ResultDesc
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// Cancel handles POST /api/appointments/{id}/cancel.
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOr401(w, r)
	if !ok {
		return
	}
	id, ok := appointmentIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Cancel(r.Context(), id, actor); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "appointment cancelled"})
}

type rescheduleRequest struct {
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
}

// Reschedule handles PATCH /api/appointments/{id}/reschedule.
func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOr401(w, r)
	if !ok {
		return
	}
	id, ok := appointmentIDParam(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Reschedule(r.Context(), id, req.NewDate, req.NewTime, actor); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "appointment rescheduled"})
}
