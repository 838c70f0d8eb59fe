package flow

import (
	"context"
	"testing"
	"time"

	"bookflow/models"
	"bookflow/services/booking"
	"bookflow/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFlow struct {
	booking *models.Booking
	applied []models.BookingEvent
}

func (f *fakeFlow) Initialize(ctx context.Context, req booking.InitializeRequest) (*models.Booking, string, error) {
	panic("not used")
}

func (f *fakeFlow) Apply(ctx context.Context, bookingID string, event models.BookingEvent, payload models.TransitionPayload) (*models.Booking, error) {
	f.applied = append(f.applied, event)
	switch event {
	case models.EventPaymentSucceeded:
		f.booking.CurrentState = models.StatePaymentSucceeded
		f.booking.PaymentIntentID = payload.PaymentIntentID
	case models.EventPaymentFailed:
		f.booking.CurrentState = models.StatePaymentFailed
		f.booking.LastErrorMessage = payload.ErrorMessage
	}
	return f.booking, nil
}

func (f *fakeFlow) InitiatePayment(ctx context.Context, bookingID, returnURL string) (*models.Booking, *models.CheckoutSession, error) {
	panic("not used")
}

func (f *fakeFlow) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	return f.booking, nil
}

func (f *fakeFlow) SweepAbandoned(ctx context.Context, expiry time.Duration) (int, error) {
	return 0, nil
}

type fakeStatusChecker struct {
	status *models.CheckoutStatus
	err    error
	calls  int
}

func (f *fakeStatusChecker) CheckoutStatus(ctx context.Context, sessionID string) (*models.CheckoutStatus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}

func tokenFor(t *testing.T, b *models.Booking) string {
	t.Helper()
	token, err := utils.GenerateRecoveryToken(b.ID, time.Hour)
	require.NoError(t, err)
	b.RecoveryTokenHash = utils.HashToken(token)
	expires := time.Now().Add(time.Hour)
	b.RecoveryExpiresAt = &expires
	return token
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID:                "bk-1",
		BuilderID:         "builder-1",
		SessionTypeID:     "st-1",
		AmountDue:         5000,
		CurrentState:      models.StatePaymentPending,
		CheckoutSessionID: "cs_test_1",
		UpdatedAt:         time.Now().UTC(),
	}
}

func TestResumeReconcilesSettledPayment(t *testing.T) {
	b := pendingBooking()
	token := tokenFor(t, b)
	flow := &fakeFlow{booking: b}
	payments := &fakeStatusChecker{status: &models.CheckoutStatus{
		PaymentStatus:   models.PaymentStatusPaid,
		PaymentIntentID: "pi_test_1",
	}}
	svc := NewCoordinatorService(flow, payments, nil, zap.NewNop())

	snap, err := svc.Resume(context.Background(), models.FlowParams{RecoveryToken: token})
	require.NoError(t, err)
	assert.Equal(t, 1, payments.calls)
	assert.Equal(t, []models.BookingEvent{models.EventPaymentSucceeded}, flow.applied)
	assert.Equal(t, models.StatePaymentSucceeded, snap.State)
	assert.Equal(t, StepConfirmation, snap.Step)
}

func TestResumeReconcilesFailedPayment(t *testing.T) {
	b := pendingBooking()
	token := tokenFor(t, b)
	flow := &fakeFlow{booking: b}
	payments := &fakeStatusChecker{status: &models.CheckoutStatus{PaymentStatus: models.PaymentStatusFailed}}
	svc := NewCoordinatorService(flow, payments, nil, zap.NewNop())

	snap, err := svc.Resume(context.Background(), models.FlowParams{RecoveryToken: token})
	require.NoError(t, err)
	assert.Equal(t, models.StatePaymentFailed, snap.State)
	assert.Equal(t, StepPayment, snap.Step)
	assert.True(t, snap.Retryable)
}

func TestResumeStillPendingLeavesStateAlone(t *testing.T) {
	b := pendingBooking()
	token := tokenFor(t, b)
	flow := &fakeFlow{booking: b}
	payments := &fakeStatusChecker{status: &models.CheckoutStatus{PaymentStatus: models.PaymentStatusPending}}
	svc := NewCoordinatorService(flow, payments, nil, zap.NewNop())

	snap, err := svc.Resume(context.Background(), models.FlowParams{RecoveryToken: token})
	require.NoError(t, err)
	assert.Empty(t, flow.applied)
	assert.Equal(t, models.StatePaymentPending, snap.State)
}

func TestResumePollFailureReturnsStaleSnapshot(t *testing.T) {
	b := pendingBooking()
	token := tokenFor(t, b)
	flow := &fakeFlow{booking: b}
	payments := &fakeStatusChecker{err: assert.AnError}
	svc := NewCoordinatorService(flow, payments, nil, zap.NewNop())

	snap, err := svc.Resume(context.Background(), models.FlowParams{RecoveryToken: token})
	require.NoError(t, err, "a poll failure degrades to a stale snapshot, not an error")
	assert.Equal(t, models.StatePaymentPending, snap.State)
}

func TestResumeSkipsPollOutsidePaymentStates(t *testing.T) {
	b := pendingBooking()
	b.CurrentState = models.StateBookingConfirmed
	token := tokenFor(t, b)
	flow := &fakeFlow{booking: b}
	payments := &fakeStatusChecker{}
	svc := NewCoordinatorService(flow, payments, nil, zap.NewNop())

	snap, err := svc.Resume(context.Background(), models.FlowParams{RecoveryToken: token})
	require.NoError(t, err)
	assert.Zero(t, payments.calls)
	assert.Equal(t, StepDone, snap.Step)
}

func TestResumeRejectsMissingToken(t *testing.T) {
	svc := NewCoordinatorService(&fakeFlow{booking: pendingBooking()}, &fakeStatusChecker{}, nil, zap.NewNop())

	_, err := svc.Resume(context.Background(), models.FlowParams{BookingID: "bk-1"})
	assert.ErrorIs(t, err, utils.ErrRecoveryTokenInvalid)
}

func TestResumeRejectsTokenHashMismatch(t *testing.T) {
	b := pendingBooking()
	token := tokenFor(t, b)
	b.RecoveryTokenHash = "some-other-hash"
	svc := NewCoordinatorService(&fakeFlow{booking: b}, &fakeStatusChecker{}, nil, zap.NewNop())

	_, err := svc.Resume(context.Background(), models.FlowParams{RecoveryToken: token})
	assert.ErrorIs(t, err, utils.ErrRecoveryTokenInvalid)
}

func TestResumeRejectsMismatchedBookingID(t *testing.T) {
	b := pendingBooking()
	token := tokenFor(t, b)
	svc := NewCoordinatorService(&fakeFlow{booking: b}, &fakeStatusChecker{}, nil, zap.NewNop())

	_, err := svc.Resume(context.Background(), models.FlowParams{BookingID: "bk-other", RecoveryToken: token})
	assert.ErrorIs(t, err, utils.ErrRecoveryTokenInvalid)
}

func TestResumeRejectsExpiredRecord(t *testing.T) {
	b := pendingBooking()
	token := tokenFor(t, b)
	expired := time.Now().Add(-time.Minute)
	b.RecoveryExpiresAt = &expired
	svc := NewCoordinatorService(&fakeFlow{booking: b}, &fakeStatusChecker{}, nil, zap.NewNop())

	_, err := svc.Resume(context.Background(), models.FlowParams{RecoveryToken: token})
	assert.ErrorIs(t, err, utils.ErrRecoveryTokenInvalid)
}

func TestSnapshotStepMapping(t *testing.T) {
	cases := []struct {
		state  models.BookingState
		amount int64
		step   string
	}{
		{models.StateIdle, 5000, StepSelect},
		{models.StateSessionTypeSelected, 5000, StepSchedule},
		{models.StateSchedulingInitiated, 5000, StepSchedule},
		{models.StateEventScheduled, 5000, StepPayment},
		{models.StateEventScheduled, 0, StepConfirmation},
		{models.StatePaymentRequired, 5000, StepPayment},
		{models.StatePaymentPending, 5000, StepPayment},
		{models.StatePaymentProcessing, 5000, StepPayment},
		{models.StatePaymentFailed, 5000, StepPayment},
		{models.StatePaymentSucceeded, 5000, StepConfirmation},
		{models.StateBookingConfirmed, 5000, StepDone},
		{models.StateCancellationRequested, 5000, StepCancelling},
		{models.StateCancelled, 5000, StepCancelled},
	}

	svc := NewCoordinatorService(nil, nil, nil, zap.NewNop())
	for _, tc := range cases {
		snap := svc.Snapshot(&models.Booking{
			ID:           "bk-1",
			CurrentState: tc.state,
			AmountDue:    tc.amount,
		})
		assert.Equal(t, tc.step, snap.Step, "state %s amount %d", tc.state, tc.amount)
	}
}

func TestSnapshotSurfacesPaymentFailure(t *testing.T) {
	svc := NewCoordinatorService(nil, nil, nil, zap.NewNop())
	snap := svc.Snapshot(&models.Booking{
		ID:               "bk-1",
		CurrentState:     models.StatePaymentFailed,
		LastErrorMessage: "the card was declined",
	})
	assert.True(t, snap.Retryable)
	assert.Equal(t, "the card was declined", snap.Message)
}
