package appointments

import (
	"context"
	"fmt"

	"github.com/apexcare/booking-platform/internal/identity"
	"github.com/apexcare/booking-platform/internal/observability/metrics"
	"github.com/apexcare/booking-platform/internal/phone"
	"github.com/apexcare/booking-platform/pkg/logging"
)

// CardIntent is the result of creating a card payment intent.
type CardIntent struct {
	IntentID     string
	ClientSecret string
}

// CardCharger initiates and tracks card payments for an appointment.
type CardCharger interface {
	CreateIntent(ctx context.Context, appointmentID, userID int64, amountCents int64, description string) (*CardIntent, error)
}

// MobilePush is the result of initiating an STK push.
type MobilePush struct {
	CheckoutRequestID string
	MerchantRequestID string
}

// MobileMoneyCharger initiates mobile-money payments for an appointment.
// phoneNumber must already be in canonical 254XXXXXXXXX format.
type MobileMoneyCharger interface {
	InitiatePush(ctx context.Context, appointmentID, userID int64, phoneNumber string, amount float64, reference, description string) (*MobilePush, error)
}

// Notifier sends transactional email, best-effort. Implementations must never
// fail in a way that aborts a booking or payment state change.
type Notifier interface {
	SendConfirmation(ctx context.Context, appt *Appointment)
	SendReceipt(ctx context.Context, appt *Appointment, amount float64, currency, method, transactionID string)
	SendPaymentFailed(ctx context.Context, appt *Appointment, amount float64, currency, reason string)
	SendCancellation(ctx context.Context, appt *Appointment)
}

// Service is the single authority for creating and mutating appointments and
// coordinating payment and notification side effects.
type Service struct {
	repo    Repository
	card    CardCharger
	mobile  MobileMoneyCharger
	mailer  Notifier
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewService creates the booking service.
func NewService(repo Repository, card CardCharger, mobile MobileMoneyCharger, mailer Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:   repo,
		card:   card,
		mobile: mobile,
		mailer: mailer,
		logger: logger,
	}
}

// WithMetrics attaches booking metrics.
func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

// BookingResult is returned by Book.
type BookingResult struct {
	AppointmentID int64        `json:"appointment_id"`
	Appointment   *Appointment `json:"appointment"`
}

// Book creates an appointment without payment. The appointment is confirmed
// immediately; the confirmation email is best-effort and never rolls back the
// booking.
func (s *Service) Book(ctx context.Context, input BookingInput, actor identity.Actor) (*BookingResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	appt, err := s.repo.Create(ctx, newAppointment(input, actor.ID, 0, StatusConfirmed, PaymentPaid, MethodNone))
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveBooking(string(MethodNone), "confirmed")
	s.logger.Info("appointment booked", "appointment_id", appt.ID, "user_id", actor.ID, "department", appt.Department)

	if s.mailer != nil {
		s.mailer.SendConfirmation(ctx, appt)
	}

	return &BookingResult{AppointmentID: appt.ID, Appointment: appt}, nil
}

// CardBookingResult is returned by BookWithStripe.
type CardBookingResult struct {
	AppointmentID int64  `json:"appointment_id"`
	IntentID      string `json:"payment_intent_id"`
	ClientSecret  string `json:"client_secret"`
}

// BookWithStripe creates a pending appointment and initiates a card payment
// for the consultation fee. If the provider rejects or is unreachable, the
// appointment is cancelled before the error surfaces so no row is left
// pending forever.
func (s *Service) BookWithStripe(ctx context.Context, input BookingInput, fee float64, actor identity.Actor) (*CardBookingResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if fee <= 0 {
		return nil, &ValidationError{Field: "consultation_fee", Reason: "must be greater than zero"}
	}
	if s.card == nil {
		return nil, fmt.Errorf("%w: card payments are not configured", ErrPaymentInitiation)
	}

	appt, err := s.repo.Create(ctx, newAppointment(input, actor.ID, fee, StatusPending, PaymentPending, MethodStripe))
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Appointment with %s - %s", input.DoctorName, input.Department)
	intent, err := s.card.CreateIntent(ctx, appt.ID, actor.ID, majorToCents(fee), description)
	if err != nil {
		s.compensate(ctx, appt.ID)
		s.metrics.ObserveBooking(string(MethodStripe), "initiation_failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitiation, err)
	}

	if err := s.repo.SetStripeIntent(ctx, appt.ID, intent.IntentID); err != nil {
		s.logger.Error("failed to store payment intent on appointment", "error", err, "appointment_id", appt.ID)
	}
	s.metrics.ObserveBooking(string(MethodStripe), "pending")
	s.logger.Info("appointment booked with card payment", "appointment_id", appt.ID, "intent_id", intent.IntentID)

	return &CardBookingResult{
		AppointmentID: appt.ID,
		IntentID:      intent.IntentID,
		ClientSecret:  intent.ClientSecret,
	}, nil
}

// MpesaBookingResult is returned by BookWithMpesa.
type MpesaBookingResult struct {
	AppointmentID     int64  `json:"appointment_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	Message           string `json:"message"`
}

// BookWithMpesa creates a pending appointment and sends an STK push to the
// patient's phone. Phone validation happens before any provider call; the
// push itself is fire-and-forget and resolves later via poll or callback.
func (s *Service) BookWithMpesa(ctx context.Context, input BookingInput, fee float64, actor identity.Actor) (*MpesaBookingResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if fee <= 0 {
		return nil, &ValidationError{Field: "consultation_fee", Reason: "must be greater than zero"}
	}
	normalized, ok := phone.Normalize(input.PatientPhone)
	if !ok {
		return nil, &ValidationError{
			Field:  "patient_phone",
			Reason: "invalid phone number format, use 0712345678, +254712345678 or 254712345678",
		}
	}
	if s.mobile == nil {
		return nil, fmt.Errorf("%w: mobile money payments are not configured", ErrPaymentInitiation)
	}

	appt, err := s.repo.Create(ctx, newAppointment(input, actor.ID, fee, StatusPending, PaymentPending, MethodMpesa))
	if err != nil {
		return nil, err
	}

	reference := fmt.Sprintf("APT-%d", appt.ID)
	description := fmt.Sprintf("Appointment with %s - %s", input.DoctorName, input.Department)
	push, err := s.mobile.InitiatePush(ctx, appt.ID, actor.ID, normalized, fee, reference, description)
	if err != nil {
		s.compensate(ctx, appt.ID)
		s.metrics.ObserveBooking(string(MethodMpesa), "initiation_failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitiation, err)
	}

	if err := s.repo.SetMpesaCheckout(ctx, appt.ID, push.CheckoutRequestID); err != nil {
		s.logger.Error("failed to store checkout request on appointment", "error", err, "appointment_id", appt.ID)
	}
	s.metrics.ObserveBooking(string(MethodMpesa), "pending")
	s.logger.Info("appointment booked with mpesa payment", "appointment_id", appt.ID, "checkout_request_id", push.CheckoutRequestID)

	return &MpesaBookingResult{
		AppointmentID:     appt.ID,
		CheckoutRequestID: push.CheckoutRequestID,
		Message:           "M-Pesa prompt sent to your phone. Enter your PIN to complete payment.",
	}, nil
}

// ConfirmPayment marks an appointment paid and confirmed after the caller has
// observed a successful payment, then sends a receipt best-effort.
func (s *Service) ConfirmPayment(ctx context.Context, appointmentID int64, trackingToken string, actor identity.Actor) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrNotOwner
	}

	if err := s.repo.ConfirmPaid(ctx, appointmentID); err != nil {
		return nil, err
	}
	appt.Status = StatusConfirmed
	appt.PaymentStatus = PaymentPaid
	s.metrics.ObservePayment(string(appt.PaymentMethod), "confirmed")

	if s.mailer != nil {
		s.mailer.SendReceipt(ctx, appt, appt.ConsultationFee, currencyFor(appt.PaymentMethod), string(appt.PaymentMethod), trackingToken)
	}
	return appt, nil
}

// Cancel sets the appointment to cancelled. The transition is unconditional:
// any current status may be cancelled (intentional leniency carried over from
// the production system).
func (s *Service) Cancel(ctx context.Context, appointmentID int64, actor identity.Actor) error {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.UserID != actor.ID && !actor.IsAdmin() {
		return ErrNotOwner
	}
	if err := s.repo.UpdateStatus(ctx, appointmentID, StatusCancelled); err != nil {
		return err
	}
	s.logger.Info("appointment cancelled", "appointment_id", appointmentID, "actor_id", actor.ID)
	if s.mailer != nil {
		appt.Status = StatusCancelled
		s.mailer.SendCancellation(ctx, appt)
	}
	return nil
}

// Reschedule overwrites date and time. No availability re-check is performed.
func (s *Service) Reschedule(ctx context.Context, appointmentID int64, newDate, newTime string, actor identity.Actor) error {
	if newDate == "" {
		return &ValidationError{Field: "new_date", Reason: "is required"}
	}
	if newTime == "" {
		return &ValidationError{Field: "new_time", Reason: "is required"}
	}
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.UserID != actor.ID && !actor.IsAdmin() {
		return ErrNotOwner
	}
	return s.repo.UpdateSchedule(ctx, appointmentID, newDate, newTime)
}

// GetUserAppointments returns a user's appointments, newest first.
func (s *Service) GetUserAppointments(ctx context.Context, userID int64) ([]*Appointment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetByID returns a single appointment.
func (s *Service) GetByID(ctx context.Context, appointmentID int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, appointmentID)
}

// compensate cancels a just-created appointment after payment initiation
// failed so no record is left pending forever.
func (s *Service) compensate(ctx context.Context, appointmentID int64) {
	if err := s.repo.UpdateStatus(ctx, appointmentID, StatusCancelled); err != nil {
		s.logger.Error("failed to cancel appointment after payment initiation failure",
			"error", err, "appointment_id", appointmentID)
	}
}

func newAppointment(input BookingInput, userID int64, fee float64, status Status, payStatus PaymentStatus, method PaymentMethod) *Appointment {
	return &Appointment{
		UserID:            userID,
		DoctorName:        input.DoctorName,
		Department:        input.Department,
		AppointmentDate:   input.AppointmentDate,
		AppointmentTime:   input.AppointmentTime,
		PatientFirstName:  input.PatientFirstName,
		PatientLastName:   input.PatientLastName,
		PatientEmail:      input.PatientEmail,
		PatientPhone:      input.PatientPhone,
		ReasonForVisit:    input.ReasonForVisit,
		InsuranceProvider: input.InsuranceProvider,
		Status:            status,
		ConsultationFee:   fee,
		PaymentStatus:     payStatus,
		PaymentMethod:     method,
	}
}

func majorToCents(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

func currencyFor(method PaymentMethod) string {
	if method == MethodMpesa {
		return "KES"
	}
	return "USD"
}
