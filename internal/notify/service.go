package notify

import (
	"context"

	"github.com/apexcare/booking-platform/internal/appointments"
	"github.com/apexcare/booking-platform/internal/observability/metrics"
	"github.com/apexcare/booking-platform/pkg/logging"
)

// Mailer sends transactional email and records every attempt in the email
// log. Each send produces exactly one log row whether delivery succeeded or
// not, and failures never propagate to callers: a booking or payment must
// not fail because the mail provider is down.
type Mailer struct {
	sender  EmailSender
	repo    Repository
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewMailer creates the mailer. A nil sender disables delivery but still
// records failed attempts.
func NewMailer(sender EmailSender, repo Repository, logger *logging.Logger) *Mailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Mailer{sender: sender, repo: repo, logger: logger}
}

// WithMetrics attaches email metrics.
func (m *Mailer) WithMetrics(bm *metrics.BookingMetrics) *Mailer {
	m.metrics = bm
	return m
}

// send delivers one message and appends exactly one log row.
func (m *Mailer) send(ctx context.Context, category string, appointmentID *int64, msg EmailMessage) {
	log := &EmailLog{
		RecipientEmail: msg.To,
		Subject:        msg.Subject,
		Category:       category,
		AppointmentID:  appointmentID,
	}

	if m.sender == nil {
		log.Status = StatusFailed
		log.ErrorMessage = "no email sender configured"
	} else if messageID, err := m.sender.Send(ctx, msg); err != nil {
		log.Status = StatusFailed
		log.ErrorMessage = err.Error()
		m.logger.Error("email delivery failed", "category", category, "to", msg.To, "error", err)
	} else {
		log.Status = StatusSent
		log.ProviderMessageID = messageID
	}
	m.metrics.ObserveEmail(category, log.Status)

	if m.repo == nil {
		return
	}
	if err := m.repo.Insert(ctx, log); err != nil {
		m.logger.Error("failed to record email log", "category", category, "to", msg.To, "error", err)
	}
}

// SendConfirmation emails booking details after an appointment is created.
func (m *Mailer) SendConfirmation(ctx context.Context, appt *appointments.Appointment) {
	m.send(ctx, CategoryConfirmation, &appt.ID, confirmationEmail(appt))
}

// SendReceipt emails a payment receipt after a payment settles.
func (m *Mailer) SendReceipt(ctx context.Context, appt *appointments.Appointment, amount float64, currency, method, transactionID string) {
	m.send(ctx, CategoryReceipt, &appt.ID, receiptEmail(appt, amount, currency, method, transactionID))
}

// SendPaymentFailed emails the patient after a payment attempt fails.
func (m *Mailer) SendPaymentFailed(ctx context.Context, appt *appointments.Appointment, amount float64, currency, reason string) {
	m.send(ctx, CategoryPaymentFailed, &appt.ID, paymentFailedEmail(appt, amount, currency, reason))
}

// SendCancellation emails the patient after an appointment is cancelled.
func (m *Mailer) SendCancellation(ctx context.Context, appt *appointments.Appointment) {
	m.send(ctx, CategoryCancellation, &appt.ID, cancellationEmail(appt))
}

// SendReminder emails the patient ahead of an upcoming appointment.
func (m *Mailer) SendReminder(ctx context.Context, appt *appointments.Appointment) {
	m.send(ctx, CategoryReminder, &appt.ID, reminderEmail(appt))
}
