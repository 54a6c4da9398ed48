package payments

import (
	"context"
	"errors"

	"github.com/apexcare/booking-platform/internal/appointments"
)

type fakePaymentsRepo struct {
	stripeCreated   []*StripePayment
	stripeStatuses  map[string]string
	mpesaCreated    []*MpesaPayment
	mpesaCompleted  map[string][2]string // checkout id -> {receipt, txn date}
	mpesaFailed     map[string]string    // checkout id -> result desc
	mpesaTimedOut   map[string]string    // checkout id -> result desc
	mpesaByCheckout map[string]*MpesaPayment
	stripeByIntent  map[string]*StripePayment
	createErr       error
}

func newFakePaymentsRepo() *fakePaymentsRepo {
	return &fakePaymentsRepo{
		stripeStatuses:  map[string]string{},
		mpesaCompleted:  map[string][2]string{},
		mpesaFailed:     map[string]string{},
		mpesaTimedOut:   map[string]string{},
		mpesaByCheckout: map[string]*MpesaPayment{},
		stripeByIntent:  map[string]*StripePayment{},
	}
}

func (f *fakePaymentsRepo) CreateStripePending(_ context.Context, p *StripePayment) error {
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = int64(len(f.stripeCreated) + 1)
	p.Status = StripeStatusPending
	f.stripeCreated = append(f.stripeCreated, p)
	f.stripeByIntent[p.PaymentIntentID] = p
	return nil
}

func (f *fakePaymentsRepo) SetStripeStatus(_ context.Context, intentID, status string) error {
	f.stripeStatuses[intentID] = status
	return nil
}

func (f *fakePaymentsRepo) GetStripeByIntent(_ context.Context, intentID string) (*StripePayment, error) {
	p, ok := f.stripeByIntent[intentID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (f *fakePaymentsRepo) CreateMpesaPending(_ context.Context, p *MpesaPayment) error {
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = int64(len(f.mpesaCreated) + 1)
	p.Status = MpesaStatusPending
	f.mpesaCreated = append(f.mpesaCreated, p)
	f.mpesaByCheckout[p.CheckoutRequestID] = p
	return nil
}

func (f *fakePaymentsRepo) CompleteMpesa(_ context.Context, checkoutID, receipt, txnDate string) error {
	f.mpesaCompleted[checkoutID] = [2]string{receipt, txnDate}
	return nil
}

func (f *fakePaymentsRepo) TimeoutMpesa(_ context.Context, checkoutID, resultDesc string) error {
	f.mpesaTimedOut[checkoutID] = resultDesc
	return nil
}

func (f *fakePaymentsRepo) FailMpesa(_ context.Context, checkoutID, resultDesc string) error {
	f.mpesaFailed[checkoutID] = resultDesc
	return nil
}

func (f *fakePaymentsRepo) GetMpesaByCheckout(_ context.Context, checkoutID string) (*MpesaPayment, error) {
	p, ok := f.mpesaByCheckout[checkoutID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

type fakeApptsRepo struct {
	byID       map[int64]*appointments.Appointment
	paid       map[int64]string // appointment id -> tracking token
	paidMethod map[int64]appointments.PaymentMethod
	failed     map[int64]bool
}

func newFakeApptsRepo(appts ...*appointments.Appointment) *fakeApptsRepo {
	f := &fakeApptsRepo{
		byID:       map[int64]*appointments.Appointment{},
		paid:       map[int64]string{},
		paidMethod: map[int64]appointments.PaymentMethod{},
		failed:     map[int64]bool{},
	}
	for _, a := range appts {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeApptsRepo) Create(_ context.Context, a *appointments.Appointment) (*appointments.Appointment, error) {
	return a, nil
}

func (f *fakeApptsRepo) GetByID(_ context.Context, id int64) (*appointments.Appointment, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, appointments.ErrNotFound
	}
	return a, nil
}

func (f *fakeApptsRepo) ListByUser(_ context.Context, _ int64) ([]*appointments.Appointment, error) {
	return nil, nil
}

func (f *fakeApptsRepo) UpdateStatus(_ context.Context, id int64, status appointments.Status) error {
	if a, ok := f.byID[id]; ok {
		a.Status = status
		return nil
	}
	return appointments.ErrNotFound
}

func (f *fakeApptsRepo) UpdateSchedule(_ context.Context, _ int64, _, _ string) error { return nil }
func (f *fakeApptsRepo) SetStripeIntent(_ context.Context, _ int64, _ string) error   { return nil }
func (f *fakeApptsRepo) SetMpesaCheckout(_ context.Context, _ int64, _ string) error  { return nil }
func (f *fakeApptsRepo) ConfirmPaid(_ context.Context, _ int64) error                 { return nil }

func (f *fakeApptsRepo) MarkPaid(_ context.Context, id int64, method appointments.PaymentMethod, token string) error {
	a, ok := f.byID[id]
	if !ok {
		return appointments.ErrNotFound
	}
	a.Status = appointments.StatusConfirmed
	a.PaymentStatus = appointments.PaymentPaid
	f.paid[id] = token
	f.paidMethod[id] = method
	return nil
}

func (f *fakeApptsRepo) MarkPaymentFailed(_ context.Context, id int64) error {
	a, ok := f.byID[id]
	if !ok {
		return appointments.ErrNotFound
	}
	a.PaymentStatus = appointments.PaymentFailed
	f.failed[id] = true
	return nil
}

type fakeNotifier struct {
	receipts   int
	failures   int
	lastMethod string
	lastToken  string
	lastReason string
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, _ *appointments.Appointment) {}
func (f *fakeNotifier) SendReceipt(_ context.Context, _ *appointments.Appointment, _ float64, _, method, token string) {
	f.receipts++
	f.lastMethod = method
	f.lastToken = token
}
func (f *fakeNotifier) SendPaymentFailed(_ context.Context, _ *appointments.Appointment, _ float64, _, reason string) {
	f.failures++
	f.lastReason = reason
}
func (f *fakeNotifier) SendCancellation(_ context.Context, _ *appointments.Appointment) {}

var errRepoDown = errors.New("repo unavailable")
