package notify

import (
	"fmt"

	"github.com/apexcare/booking-platform/internal/appointments"
)

// Email categories as stored in email_logs.category.
const (
	CategoryConfirmation  = "confirmation"
	CategoryReceipt       = "receipt"
	CategoryPaymentFailed = "payment_failed"
	CategoryCancellation  = "cancellation"
	CategoryReminder      = "reminder"
)

func confirmationEmail(appt *appointments.Appointment) EmailMessage {
	subject := "Appointment Confirmation - ApexCare Hospital"
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #1a6b54;">Your Appointment is Confirmed</h2>
			<p>Dear %s,</p>
			<p>Your appointment has been booked successfully. Here are the details:</p>
			<table style="border-collapse: collapse; width: 100%%;">
				<tr><td style="padding: 8px; font-weight: bold;">Doctor</td><td style="padding: 8px;">%s</td></tr>
				<tr><td style="padding: 8px; font-weight: bold;">Department</td><td style="padding: 8px;">%s</td></tr>
				<tr><td style="padding: 8px; font-weight: bold;">Date</td><td style="padding: 8px;">%s</td></tr>
				<tr><td style="padding: 8px; font-weight: bold;">Time</td><td style="padding: 8px;">%s</td></tr>
			</table>
			<p>Please arrive 15 minutes before your scheduled time.</p>
			<p>ApexCare Hospital</p>
		</div>`,
		appt.PatientName(), appt.DoctorName, appt.Department, appt.AppointmentDate, appt.AppointmentTime)
	text := fmt.Sprintf("Dear %s, your appointment with %s (%s) on %s at %s is confirmed.",
		appt.PatientName(), appt.DoctorName, appt.Department, appt.AppointmentDate, appt.AppointmentTime)
	return EmailMessage{To: appt.PatientEmail, ToName: appt.PatientName(), Subject: subject, Body: text, HTML: html}
}

func receiptEmail(appt *appointments.Appointment, amount float64, currency, method, transactionID string) EmailMessage {
	subject := "Payment Receipt - ApexCare Hospital"
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #1a6b54;">Payment Received</h2>
			<p>Dear %s,</p>
			<p>We have received your payment for the appointment below.</p>
			<table style="border-collapse: collapse; width: 100%%;">
				<tr><td style="padding: 8px; font-weight: bold;">Amount</td><td style="padding: 8px;">%.2f %s</td></tr>
				<tr><td style="padding: 8px; font-weight: bold;">Payment method</td><td style="padding: 8px;">%s</td></tr>
				<tr><td style="padding: 8px; font-weight: bold;">Transaction</td><td style="padding: 8px;">%s</td></tr>
				<tr><td style="padding: 8px; font-weight: bold;">Doctor</td><td style="padding: 8px;">%s</td></tr>
				<tr><td style="padding: 8px; font-weight: bold;">Date</td><td style="padding: 8px;">%s at %s</td></tr>
			</table>
			<p>Your appointment is confirmed. See you soon!</p>
			<p>ApexCare Hospital</p>
		</div>`,
		appt.PatientName(), amount, currency, method, transactionID,
		appt.DoctorName, appt.AppointmentDate, appt.AppointmentTime)
	text := fmt.Sprintf("Dear %s, we received your payment of %.2f %s (%s, ref %s). Your appointment on %s at %s is confirmed.",
		appt.PatientName(), amount, currency, method, transactionID, appt.AppointmentDate, appt.AppointmentTime)
	return EmailMessage{To: appt.PatientEmail, ToName: appt.PatientName(), Subject: subject, Body: text, HTML: html}
}

func paymentFailedEmail(appt *appointments.Appointment, amount float64, currency, reason string) EmailMessage {
	subject := "Payment Failed - ApexCare Hospital"
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #b33a3a;">Payment Failed</h2>
			<p>Dear %s,</p>
			<p>Your payment of %.2f %s for the appointment with %s on %s could not be processed.</p>
			<p>Reason: %s</p>
			<p>Your appointment is still held. Please retry the payment from your appointments page.</p>
			<p>ApexCare Hospital</p>
		</div>`,
		appt.PatientName(), amount, currency, appt.DoctorName, appt.AppointmentDate, reason)
	text := fmt.Sprintf("Dear %s, your payment of %.2f %s failed: %s. Please retry from your appointments page.",
		appt.PatientName(), amount, currency, reason)
	return EmailMessage{To: appt.PatientEmail, ToName: appt.PatientName(), Subject: subject, Body: text, HTML: html}
}

func cancellationEmail(appt *appointments.Appointment) EmailMessage {
	subject := "Appointment Cancelled - ApexCare Hospital"
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #1a6b54;">Appointment Cancelled</h2>
			<p>Dear %s,</p>
			<p>Your appointment with %s (%s) on %s at %s has been cancelled.</p>
			<p>If this was a mistake, you can book a new appointment at any time.</p>
			<p>ApexCare Hospital</p>
		</div>`,
		appt.PatientName(), appt.DoctorName, appt.Department, appt.AppointmentDate, appt.AppointmentTime)
	text := fmt.Sprintf("Dear %s, your appointment with %s on %s at %s has been cancelled.",
		appt.PatientName(), appt.DoctorName, appt.AppointmentDate, appt.AppointmentTime)
	return EmailMessage{To: appt.PatientEmail, ToName: appt.PatientName(), Subject: subject, Body: text, HTML: html}
}

func reminderEmail(appt *appointments.Appointment) EmailMessage {
	subject := "Appointment Reminder - ApexCare Hospital"
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #1a6b54;">Appointment Reminder</h2>
			<p>Dear %s,</p>
			<p>This is a reminder for your upcoming appointment with %s (%s) on %s at %s.</p>
			<p>Please arrive 15 minutes early and bring any relevant medical records.</p>
			<p>ApexCare Hospital</p>
		</div>`,
		appt.PatientName(), appt.DoctorName, appt.Department, appt.AppointmentDate, appt.AppointmentTime)
	text := fmt.Sprintf("Reminder: appointment with %s (%s) on %s at %s.",
		appt.DoctorName, appt.Department, appt.AppointmentDate, appt.AppointmentTime)
	return EmailMessage{To: appt.PatientEmail, ToName: appt.PatientName(), Subject: subject, Body: text, HTML: html}
}
