package appointments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexcare/booking-platform/internal/identity"
)

type fakeRepo struct {
	nextID        int64
	created       []*Appointment
	byID          map[int64]*Appointment
	statusUpdates map[int64]Status
	intents       map[int64]string
	checkouts     map[int64]string
	confirmed     []int64
	createErr     error
	getErr        error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID:        1,
		byID:          map[int64]*Appointment{},
		statusUpdates: map[int64]Status{},
		intents:       map[int64]string{},
		checkouts:     map[int64]string{},
	}
}

func (f *fakeRepo) Create(_ context.Context, appt *Appointment) (*Appointment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	appt.ID = f.nextID
	f.nextID++
	f.created = append(f.created, appt)
	f.byID[appt.ID] = appt
	return appt, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*Appointment, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	appt, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID int64) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range f.byID {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id int64, status Status) error {
	if _, ok := f.byID[id]; !ok {
		return ErrNotFound
	}
	f.statusUpdates[id] = status
	f.byID[id].Status = status
	return nil
}

func (f *fakeRepo) UpdateSchedule(_ context.Context, id int64, date, timeOfDay string) error {
	appt, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	appt.AppointmentDate = date
	appt.AppointmentTime = timeOfDay
	return nil
}

func (f *fakeRepo) SetStripeIntent(_ context.Context, id int64, intentID string) error {
	f.intents[id] = intentID
	return nil
}

func (f *fakeRepo) SetMpesaCheckout(_ context.Context, id int64, checkoutID string) error {
	f.checkouts[id] = checkoutID
	return nil
}

func (f *fakeRepo) ConfirmPaid(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return ErrNotFound
	}
	f.confirmed = append(f.confirmed, id)
	f.byID[id].Status = StatusConfirmed
	f.byID[id].PaymentStatus = PaymentPaid
	return nil
}

func (f *fakeRepo) MarkPaid(_ context.Context, id int64, method PaymentMethod, token string) error {
	return f.ConfirmPaid(context.Background(), id)
}

func (f *fakeRepo) MarkPaymentFailed(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return ErrNotFound
	}
	f.byID[id].PaymentStatus = PaymentFailed
	return nil
}

type fakeCard struct {
	intent *CardIntent
	err    error
	calls  int
}

func (f *fakeCard) CreateIntent(_ context.Context, _, _ int64, _ int64, _ string) (*CardIntent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

type fakeMobile struct {
	push      *MobilePush
	err       error
	lastPhone string
}

func (f *fakeMobile) InitiatePush(_ context.Context, _, _ int64, phoneNumber string, _ float64, _, _ string) (*MobilePush, error) {
	f.lastPhone = phoneNumber
	if f.err != nil {
		return nil, f.err
	}
	return f.push, nil
}

type fakeNotifier struct {
	confirmations  int
	receipts       int
	failures       int
	cancellations  int
	lastReceiptCcy string
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, _ *Appointment) { f.confirmations++ }
func (f *fakeNotifier) SendReceipt(_ context.Context, _ *Appointment, _ float64, ccy, _, _ string) {
	f.receipts++
	f.lastReceiptCcy = ccy
}
func (f *fakeNotifier) SendPaymentFailed(_ context.Context, _ *Appointment, _ float64, _, _ string) {
	f.failures++
}
func (f *fakeNotifier) SendCancellation(_ context.Context, _ *Appointment) { f.cancellations++ }

func validInput() BookingInput {
	return BookingInput{
		DoctorName:       "Dr. Achieng",
		Department:       "Cardiology",
		AppointmentDate:  "2026-09-15",
		AppointmentTime:  "10:30",
		PatientFirstName: "Jane",
		PatientLastName:  "Mwangi",
		PatientEmail:     "jane@example.com",
		PatientPhone:     "0712345678",
	}
}

func TestBookConfirmsImmediately(t *testing.T) {
	repo := newFakeRepo()
	mailer := &fakeNotifier{}
	svc := NewService(repo, nil, nil, mailer, nil)

	res, err := svc.Book(context.Background(), validInput(), identity.Actor{ID: 7})
	require.NoError(t, err)
	require.NotNil(t, res.Appointment)

	assert.Equal(t, StatusConfirmed, res.Appointment.Status)
	assert.Equal(t, PaymentPaid, res.Appointment.PaymentStatus)
	assert.Equal(t, MethodNone, res.Appointment.PaymentMethod)
	assert.Equal(t, int64(7), res.Appointment.UserID)
	assert.Equal(t, 1, mailer.confirmations)
}

func TestBookRejectsMissingFields(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, nil, nil)

	input := validInput()
	input.PatientEmail = ""
	_, err := svc.Book(context.Background(), input, identity.Actor{ID: 1})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestBookWithStripeSuccess(t *testing.T) {
	repo := newFakeRepo()
	card := &fakeCard{intent: &CardIntent{IntentID: "pi_123", ClientSecret: "pi_123_secret"}}
	svc := NewService(repo, card, nil, &fakeNotifier{}, nil)

	res, err := svc.BookWithStripe(context.Background(), validInput(), 50, identity.Actor{ID: 3})
	require.NoError(t, err)

	assert.Equal(t, "pi_123", res.IntentID)
	assert.Equal(t, "pi_123_secret", res.ClientSecret)
	assert.Equal(t, "pi_123", repo.intents[res.AppointmentID])

	appt := repo.byID[res.AppointmentID]
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, PaymentPending, appt.PaymentStatus)
	assert.Equal(t, MethodStripe, appt.PaymentMethod)
	assert.Equal(t, 50.0, appt.ConsultationFee)
}

func TestBookWithStripeCancelsOnProviderFailure(t *testing.T) {
	repo := newFakeRepo()
	card := &fakeCard{err: errors.New("card declined upstream")}
	mailer := &fakeNotifier{}
	svc := NewService(repo, card, nil, mailer, nil)

	_, err := svc.BookWithStripe(context.Background(), validInput(), 50, identity.Actor{ID: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentInitiation)

	require.Len(t, repo.created, 1)
	assert.Equal(t, StatusCancelled, repo.statusUpdates[repo.created[0].ID])
	assert.Zero(t, mailer.confirmations)
}

func TestBookWithStripeRejectsZeroFee(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeCard{}, nil, nil, nil)
	_, err := svc.BookWithStripe(context.Background(), validInput(), 0, identity.Actor{ID: 1})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestBookWithMpesaNormalizesPhoneBeforePush(t *testing.T) {
	repo := newFakeRepo()
	mobile := &fakeMobile{push: &MobilePush{CheckoutRequestID: "ws_CO_1"}}
	svc := NewService(repo, nil, mobile, &fakeNotifier{}, nil)

	input := validInput()
	input.PatientPhone = "+254712345678"
	res, err := svc.BookWithMpesa(context.Background(), input, 2500, identity.Actor{ID: 5})
	require.NoError(t, err)

	assert.Equal(t, "254712345678", mobile.lastPhone)
	assert.Equal(t, "ws_CO_1", res.CheckoutRequestID)
	assert.Equal(t, "ws_CO_1", repo.checkouts[res.AppointmentID])
}

func TestBookWithMpesaRejectsInvalidPhoneWithoutProviderCall(t *testing.T) {
	repo := newFakeRepo()
	mobile := &fakeMobile{push: &MobilePush{CheckoutRequestID: "ws_CO_1"}}
	svc := NewService(repo, nil, mobile, nil, nil)

	input := validInput()
	input.PatientPhone = "12345"
	_, err := svc.BookWithMpesa(context.Background(), input, 2500, identity.Actor{ID: 5})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Empty(t, repo.created)
	assert.Empty(t, mobile.lastPhone)
}

func TestBookWithMpesaCancelsOnPushFailure(t *testing.T) {
	repo := newFakeRepo()
	mobile := &fakeMobile{err: errors.New("daraja unreachable")}
	svc := NewService(repo, nil, mobile, nil, nil)

	_, err := svc.BookWithMpesa(context.Background(), validInput(), 2500, identity.Actor{ID: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentInitiation)
	require.Len(t, repo.created, 1)
	assert.Equal(t, StatusCancelled, repo.statusUpdates[repo.created[0].ID])
}

func TestConfirmPaymentOwnerSendsReceipt(t *testing.T) {
	repo := newFakeRepo()
	mailer := &fakeNotifier{}
	card := &fakeCard{intent: &CardIntent{IntentID: "pi_9", ClientSecret: "sec"}}
	svc := NewService(repo, card, nil, mailer, nil)

	res, err := svc.BookWithStripe(context.Background(), validInput(), 80, identity.Actor{ID: 9})
	require.NoError(t, err)

	appt, err := svc.ConfirmPayment(context.Background(), res.AppointmentID, "pi_9", identity.Actor{ID: 9})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, PaymentPaid, appt.PaymentStatus)
	assert.Equal(t, 1, mailer.receipts)
	assert.Equal(t, "USD", mailer.lastReceiptCcy)
}

func TestBookWithStripeWithoutChargerConfigured(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, nil, nil)
	_, err := svc.BookWithStripe(context.Background(), validInput(), 80, identity.Actor{ID: 9})
	assert.ErrorIs(t, err, ErrPaymentInitiation)
}

func TestConfirmPaymentRejectsNonOwner(t *testing.T) {
	repo := newFakeRepo()
	card := &fakeCard{intent: &CardIntent{IntentID: "pi_1", ClientSecret: "sec"}}
	svc := NewService(repo, card, nil, nil, nil)

	res, err := svc.BookWithStripe(context.Background(), validInput(), 80, identity.Actor{ID: 9})
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(context.Background(), res.AppointmentID, "pi_1", identity.Actor{ID: 10})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestConfirmPaymentAllowsAdmin(t *testing.T) {
	repo := newFakeRepo()
	card := &fakeCard{intent: &CardIntent{IntentID: "pi_1", ClientSecret: "sec"}}
	svc := NewService(repo, card, nil, nil, nil)

	res, err := svc.BookWithStripe(context.Background(), validInput(), 80, identity.Actor{ID: 9})
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(context.Background(), res.AppointmentID, "pi_1", identity.Actor{ID: 1, Role: identity.RoleAdmin})
	assert.NoError(t, err)
}

func TestCancelIsUnconditionalAndNotifies(t *testing.T) {
	repo := newFakeRepo()
	mailer := &fakeNotifier{}
	svc := NewService(repo, nil, nil, mailer, nil)

	res, err := svc.Book(context.Background(), validInput(), identity.Actor{ID: 2})
	require.NoError(t, err)

	// cancel a confirmed appointment, then cancel again
	require.NoError(t, svc.Cancel(context.Background(), res.AppointmentID, identity.Actor{ID: 2}))
	require.NoError(t, svc.Cancel(context.Background(), res.AppointmentID, identity.Actor{ID: 2}))
	assert.Equal(t, StatusCancelled, repo.byID[res.AppointmentID].Status)
	assert.Equal(t, 2, mailer.cancellations)
}

func TestCancelRejectsNonOwner(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	res, err := svc.Book(context.Background(), validInput(), identity.Actor{ID: 2})
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), res.AppointmentID, identity.Actor{ID: 3})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestRescheduleOverwritesSchedule(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	res, err := svc.Book(context.Background(), validInput(), identity.Actor{ID: 2})
	require.NoError(t, err)

	require.NoError(t, svc.Reschedule(context.Background(), res.AppointmentID, "2026-10-01", "14:00", identity.Actor{ID: 2}))
	assert.Equal(t, "2026-10-01", repo.byID[res.AppointmentID].AppointmentDate)
	assert.Equal(t, "14:00", repo.byID[res.AppointmentID].AppointmentTime)
}

func TestRescheduleRequiresDateAndTime(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, nil, nil)
	err := svc.Reschedule(context.Background(), 1, "", "10:00", identity.Actor{ID: 1})
	assert.True(t, IsValidation(err))
	err = svc.Reschedule(context.Background(), 1, "2026-10-01", "", identity.Actor{ID: 1})
	assert.True(t, IsValidation(err))
}

func TestGetByIDNotFound(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, nil, nil)
	_, err := svc.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
