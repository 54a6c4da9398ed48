package appointments

import (
	"net/mail"
	"strings"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every valid appointment status.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s Status) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentStatus is the payment state of an appointment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentMethod identifies how an appointment is paid for.
type PaymentMethod string

const (
	MethodStripe PaymentMethod = "stripe"
	MethodMpesa  PaymentMethod = "mpesa"
	MethodNone   PaymentMethod = "none"
)

// Appointment represents one patient's request for a consultation slot.
// Doctor name and department are free text; date and time are stored as
// submitted and not validated against doctor availability.
type Appointment struct {
	ID                     int64         `json:"id"`
	UserID                 int64         `json:"user_id"`
	DoctorName             string        `json:"doctor_name"`
	Department             string        `json:"department"`
	AppointmentDate        string        `json:"appointment_date"`
	AppointmentTime        string        `json:"appointment_time"`
	PatientFirstName       string        `json:"patient_first_name"`
	PatientLastName        string        `json:"patient_last_name"`
	PatientEmail           string        `json:"patient_email"`
	PatientPhone           string        `json:"patient_phone"`
	ReasonForVisit         string        `json:"reason_for_visit,omitempty"`
	InsuranceProvider      string        `json:"insurance_provider,omitempty"`
	Status                 Status        `json:"status"`
	ConsultationFee        float64       `json:"consultation_fee"`
	PaymentStatus          PaymentStatus `json:"payment_status"`
	PaymentMethod          PaymentMethod `json:"payment_method"`
	StripePaymentIntentID  string        `json:"stripe_payment_intent_id,omitempty"`
	MpesaCheckoutRequestID string        `json:"mpesa_checkout_request_id,omitempty"`
	EmailSent              bool          `json:"email_sent"`
	ConfirmationEmailSent  bool          `json:"confirmation_email_sent"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

// PatientName returns the patient's full name for notifications.
func (a *Appointment) PatientName() string {
	return strings.TrimSpace(a.PatientFirstName + " " + a.PatientLastName)
}

// BookingInput is the request body for booking an appointment.
type BookingInput struct {
	DoctorName        string `json:"doctor_name"`
	Department        string `json:"department"`
	AppointmentDate   string `json:"appointment_date"`
	AppointmentTime   string `json:"appointment_time"`
	PatientFirstName  string `json:"patient_first_name"`
	PatientLastName   string `json:"patient_last_name"`
	PatientEmail      string `json:"patient_email"`
	PatientPhone      string `json:"patient_phone"`
	ReasonForVisit    string `json:"reason_for_visit"`
	InsuranceProvider string `json:"insurance_provider"`
}

// Validate checks the required fields before any write happens.
func (in *BookingInput) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"doctor_name", in.DoctorName},
		{"department", in.Department},
		{"appointment_date", in.AppointmentDate},
		{"appointment_time", in.AppointmentTime},
		{"patient_first_name", in.PatientFirstName},
		{"patient_last_name", in.PatientLastName},
		{"patient_email", in.PatientEmail},
		{"patient_phone", in.PatientPhone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Reason: "is required"}
		}
	}
	if _, err := mail.ParseAddress(in.PatientEmail); err != nil {
		return &ValidationError{Field: "patient_email", Reason: "must be a valid email address"}
	}
	return nil
}
