package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookflow/config"
	bookingRepo "bookflow/database/repository/booking"
	sessiontypeRepo "bookflow/database/repository/sessiontype"
	"bookflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBookingRepo is an in-memory BookingRepository with real CAS
// semantics. conflictNext forces the next UpdateCAS calls to lose.
type fakeBookingRepo struct {
	mu           sync.Mutex
	bookings     map[string]models.Booking
	conflictNext int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[string]models.Booking)}
}

func (r *fakeBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; ok {
		return bookingRepo.ErrDuplicateID
	}
	r.bookings[b.ID] = *b
	return nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	copy := b
	return &copy, nil
}

func (r *fakeBookingRepo) GetByRecoveryTokenHash(ctx context.Context, hash string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.RecoveryTokenHash == hash {
			copy := b
			return &copy, nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (r *fakeBookingRepo) UpdateCAS(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.bookings[b.ID]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	if r.conflictNext > 0 {
		r.conflictNext--
		return bookingRepo.ErrVersionConflict
	}
	if current.Version != expectedVersion {
		return bookingRepo.ErrVersionConflict
	}
	r.bookings[b.ID] = *b
	return nil
}

func (r *fakeBookingRepo) FindStale(ctx context.Context, states []models.BookingState, cutoff time.Time, limit int64) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		for _, st := range states {
			if b.CurrentState == st && b.LastTransition.Before(cutoff) {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) put(b models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = b
}

type fakeSessionTypes struct {
	types map[string]models.SessionType
}

func (f *fakeSessionTypes) GetByID(ctx context.Context, id string) (*models.SessionType, error) {
	st, ok := f.types[id]
	if !ok {
		return nil, sessiontypeRepo.ErrNotFound
	}
	return &st, nil
}

func (f *fakeSessionTypes) ListByBuilder(ctx context.Context, builderID string) ([]models.SessionType, error) {
	var out []models.SessionType
	for _, st := range f.types {
		if st.BuilderID == builderID {
			out = append(out, st)
		}
	}
	return out, nil
}

type fakeGateway struct {
	sessions int
	fail     bool
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, b *models.Booking, returnURL string) (*models.CheckoutSession, error) {
	if g.fail {
		return nil, assert.AnError
	}
	g.sessions++
	return &models.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.test/cs_test_1"}, nil
}

type queueCall struct {
	kind string
	args []string
}

type fakeQueue struct {
	calls []queueCall
}

func (q *fakeQueue) EnqueueRefund(ctx context.Context, bookingID, paymentIntentID string) error {
	q.calls = append(q.calls, queueCall{"refund", []string{bookingID, paymentIntentID}})
	return nil
}

func (q *fakeQueue) EnqueueNotice(ctx context.Context, kind, bookingID string) error {
	q.calls = append(q.calls, queueCall{"notice:" + kind, []string{bookingID}})
	return nil
}

func (q *fakeQueue) EnqueueSchedulingCancel(ctx context.Context, bookingID, eventURI, reason string) error {
	q.calls = append(q.calls, queueCall{"schedulingCancel", []string{bookingID, eventURI, reason}})
	return nil
}

func (q *fakeQueue) kinds() []string {
	var out []string
	for _, c := range q.calls {
		out = append(out, c.kind)
	}
	return out
}

func newTestService(t *testing.T) (*DefaultFlowService, *fakeBookingRepo, *fakeQueue, *fakeGateway) {
	t.Helper()
	config.AppConfig.RecoveryTokenTTL = time.Hour

	repo := newFakeBookingRepo()
	queue := &fakeQueue{}
	gateway := &fakeGateway{}
	svc := NewFlowService(repo, &fakeSessionTypes{types: map[string]models.SessionType{
		"st-1":    {ID: "st-1", BuilderID: "builder-1", Title: "Intro call", DurationMinutes: 60, Price: 5000, Currency: "usd"},
		"st-free": {ID: "st-free", BuilderID: "builder-1", Title: "Office hours", DurationMinutes: 30, Price: 0, Currency: "usd"},
	}}, gateway, queue, zap.NewNop())
	return svc, repo, queue, gateway
}

func scheduledBooking(id string, amount int64) models.Booking {
	now := time.Now().UTC()
	start := now.Add(48 * time.Hour)
	return models.Booking{
		ID:                 id,
		BuilderID:          "builder-1",
		SessionTypeID:      "st-1",
		AmountDue:          amount,
		Currency:           "usd",
		CurrentState:       models.StateEventScheduled,
		CalendlyEventURI:   "https://api.calendly.com/scheduled_events/ev-1",
		CalendlyInviteeURI: "https://api.calendly.com/scheduled_events/ev-1/invitees/inv-1",
		StartTime:          &start,
		LastEvent:          models.EventScheduleEvent,
		LastTransition:     now,
		Version:            3,
	}
}

func TestInitializeCreatesBookingAndToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, token, err := svc.Initialize(ctx, InitializeRequest{
		BookingID:     "bk-1",
		BuilderID:     "builder-1",
		SessionTypeID: "st-1",
		ClientID:      "client-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateSessionTypeSelected, b.CurrentState)
	assert.Equal(t, int64(5000), b.AmountDue)
	assert.Equal(t, int64(1), b.Version)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, b.RecoveryTokenHash)
}

func TestInitializeReplayReturnsExistingWithoutToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	req := InitializeRequest{BookingID: "bk-1", BuilderID: "builder-1", SessionTypeID: "st-1"}

	first, token, err := svc.Initialize(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	second, token2, err := svc.Initialize(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, token2, "replay must not re-issue the recovery token")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Version, second.Version)
}

func TestInitializeConflictingReplayRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Initialize(ctx, InitializeRequest{BookingID: "bk-1", BuilderID: "builder-1", SessionTypeID: "st-1"})
	require.NoError(t, err)

	_, _, err = svc.Initialize(ctx, InitializeRequest{BookingID: "bk-1", BuilderID: "builder-1", SessionTypeID: "st-free"})
	assert.True(t, IsCode(err, CodeConflictingState))
}

func TestInitializeUnknownSessionType(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, _, err := svc.Initialize(context.Background(), InitializeRequest{BuilderID: "builder-1", SessionTypeID: "st-nope"})
	assert.True(t, IsCode(err, CodeMissingPrerequisite))
}

func TestApplyIdempotentReplay(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	repo.put(scheduledBooking("bk-1", 5000))

	payload := models.TransitionPayload{
		EventURI:   "https://api.calendly.com/scheduled_events/ev-1",
		InviteeURI: "https://api.calendly.com/scheduled_events/ev-1/invitees/inv-1",
	}
	// The fixture's LastPayloadHash is unset, so the first call applies as a
	// reschedule; the replay below must then be a no-op.
	first, err := svc.Apply(ctx, "bk-1", models.EventScheduleEvent, payload)
	require.NoError(t, err)

	second, err := svc.Apply(ctx, "bk-1", models.EventScheduleEvent, payload)
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version, "replay must not bump the version")
	assert.Equal(t, first.CurrentState, second.CurrentState)
}

func TestApplyConflictingReplayRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	b := scheduledBooking("bk-1", 5000)
	b.CurrentState = models.StatePaymentRequired
	b.LastEvent = models.EventInitiatePayment
	repo.put(b)

	_, err := svc.Apply(ctx, "bk-1", models.EventPaymentPending, models.TransitionPayload{CheckoutSessionID: "cs_1"})
	require.NoError(t, err)

	// Same event again with a different session id: not a replay, and not a
	// legal transition either.
	_, err = svc.Apply(ctx, "bk-1", models.EventPaymentPending, models.TransitionPayload{CheckoutSessionID: "cs_2"})
	assert.True(t, IsCode(err, CodeConflictingState))
}

func TestApplyReplayAfterAutoConfirmIsNoOp(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	b := scheduledBooking("bk-1", 5000)
	b.CurrentState = models.StatePaymentProcessing
	b.CheckoutSessionID = "cs_test_1"
	b.LastEvent = models.EventPaymentProcessing
	repo.put(b)

	payload := models.TransitionPayload{
		CheckoutSessionID: "cs_test_1",
		PaymentIntentID:   "pi_test_1",
	}
	first, err := svc.Apply(ctx, "bk-1", models.EventPaymentSucceeded, payload)
	require.NoError(t, err)
	require.Equal(t, models.StateBookingConfirmed, first.CurrentState)

	// The confirmation follow-up already fired; the webhook redelivering the
	// same success must read as done, not as illegal from BOOKING_CONFIRMED.
	second, err := svc.Apply(ctx, "bk-1", models.EventPaymentSucceeded, payload)
	require.NoError(t, err)
	assert.Equal(t, models.StateBookingConfirmed, second.CurrentState)
	assert.Equal(t, first.Version, second.Version, "replay must not bump the version")
}

func TestApplyConflictingReplayAfterAutoConfirmRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	b := scheduledBooking("bk-1", 5000)
	b.CurrentState = models.StatePaymentProcessing
	b.CheckoutSessionID = "cs_test_1"
	b.LastEvent = models.EventPaymentProcessing
	repo.put(b)

	_, err := svc.Apply(ctx, "bk-1", models.EventPaymentSucceeded, models.TransitionPayload{
		CheckoutSessionID: "cs_test_1",
		PaymentIntentID:   "pi_test_1",
	})
	require.NoError(t, err)

	// A different intent for the already-settled payment is inconsistent
	// data, not a redelivery.
	_, err = svc.Apply(ctx, "bk-1", models.EventPaymentSucceeded, models.TransitionPayload{
		CheckoutSessionID: "cs_test_1",
		PaymentIntentID:   "pi_test_2",
	})
	assert.True(t, IsCode(err, CodeConflictingState))
}

func TestApplyPrematurePaymentEventRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	b := scheduledBooking("bk-1", 5000)
	b.CurrentState = models.StateSessionTypeSelected
	b.LastEvent = models.EventSelectSessionType
	repo.put(b)

	_, err := svc.Apply(ctx, "bk-1", models.EventPaymentSucceeded, models.TransitionPayload{PaymentIntentID: "pi_1"})
	assert.True(t, IsCode(err, CodeIllegalTransition))
}

func TestApplyRetriesLostCAS(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	repo.put(scheduledBooking("bk-1", 5000))
	repo.conflictNext = 1

	b, err := svc.Apply(ctx, "bk-1", models.EventRequestCancellation, models.TransitionPayload{Reason: "changed plans"})
	require.NoError(t, err)
	assert.Equal(t, models.StateCancellationRequested, b.CurrentState)
}

func TestApplyExhaustedCASReturnsConcurrencyConflict(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	repo.put(scheduledBooking("bk-1", 5000))
	repo.conflictNext = maxCASAttempts

	_, err := svc.Apply(ctx, "bk-1", models.EventRequestCancellation, models.TransitionPayload{Reason: "changed plans"})
	require.Error(t, err)
	terr, ok := AsTransitionError(err)
	require.True(t, ok)
	assert.Equal(t, CodeConcurrencyConflict, terr.Code)
	assert.True(t, terr.Retryable())
}

func TestInitiatePaymentCreatesSessionAndAdvances(t *testing.T) {
	svc, repo, _, gateway := newTestService(t)
	ctx := context.Background()
	repo.put(scheduledBooking("bk-1", 5000))

	b, sess, err := svc.InitiatePayment(ctx, "bk-1", "https://builder.test/return")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, 1, gateway.sessions)
	assert.Equal(t, models.StatePaymentPending, b.CurrentState)
	assert.Equal(t, "cs_test_1", b.CheckoutSessionID)
}

func TestInitiatePaymentGatewayFailureLeavesPaymentRequired(t *testing.T) {
	svc, repo, _, gateway := newTestService(t)
	ctx := context.Background()
	repo.put(scheduledBooking("bk-1", 5000))
	gateway.fail = true

	b, sess, err := svc.InitiatePayment(ctx, "bk-1", "https://builder.test/return")
	// The transition itself persisted; the gateway failure is logged and the
	// client retries from PAYMENT_REQUIRED.
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, models.StatePaymentRequired, b.CurrentState)
}

func TestInitiatePaymentOnFreeSessionRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	repo.put(scheduledBooking("bk-1", 0))

	_, _, err := svc.InitiatePayment(ctx, "bk-1", "https://builder.test/return")
	assert.True(t, IsCode(err, CodeMissingPrerequisite))
}

func TestFreeSessionAutoConfirms(t *testing.T) {
	svc, repo, queue, _ := newTestService(t)
	ctx := context.Background()

	b := scheduledBooking("bk-1", 0)
	b.CurrentState = models.StateSchedulingInitiated
	b.CalendlyEventURI = ""
	b.CalendlyInviteeURI = ""
	b.LastEvent = models.EventInitiateScheduling
	repo.put(b)

	final, err := svc.Apply(ctx, "bk-1", models.EventScheduleEvent, models.TransitionPayload{
		EventURI:   "https://api.calendly.com/scheduled_events/ev-1",
		InviteeURI: "https://api.calendly.com/scheduled_events/ev-1/invitees/inv-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateBookingConfirmed, final.CurrentState)
	assert.Contains(t, queue.kinds(), "notice:"+NoticeConfirmation)
}

func TestPaymentSuccessConfirmsAndNotifies(t *testing.T) {
	svc, repo, queue, _ := newTestService(t)
	ctx := context.Background()

	b := scheduledBooking("bk-1", 5000)
	b.CurrentState = models.StatePaymentProcessing
	b.CheckoutSessionID = "cs_test_1"
	b.LastEvent = models.EventPaymentProcessing
	repo.put(b)

	final, err := svc.Apply(ctx, "bk-1", models.EventPaymentSucceeded, models.TransitionPayload{
		CheckoutSessionID: "cs_test_1",
		PaymentIntentID:   "pi_test_1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateBookingConfirmed, final.CurrentState)
	assert.Equal(t, "pi_test_1", final.PaymentIntentID)
	assert.Contains(t, queue.kinds(), "notice:"+NoticeConfirmation)
}

func TestCancellationOfPaidBookingEnqueuesRefund(t *testing.T) {
	svc, repo, queue, _ := newTestService(t)
	ctx := context.Background()

	b := scheduledBooking("bk-1", 5000)
	b.CurrentState = models.StatePaymentSucceeded
	b.PaymentIntentID = "pi_test_1"
	b.LastEvent = models.EventPaymentSucceeded
	repo.put(b)

	final, err := svc.Apply(ctx, "bk-1", models.EventRequestCancellation, models.TransitionPayload{Reason: "changed plans"})
	require.NoError(t, err)
	assert.Equal(t, models.StateCancellationRequested, final.CurrentState)

	kinds := queue.kinds()
	assert.Contains(t, kinds, "refund")
	assert.Contains(t, kinds, "schedulingCancel")
}

func TestSweepAbandonedResetsStaleBookings(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	stale := scheduledBooking("bk-stale", 5000)
	stale.LastTransition = time.Now().UTC().Add(-3 * time.Hour)
	repo.put(stale)

	fresh := scheduledBooking("bk-fresh", 5000)
	fresh.LastTransition = time.Now().UTC()
	repo.put(fresh)

	inFlight := scheduledBooking("bk-processing", 5000)
	inFlight.CurrentState = models.StatePaymentProcessing
	inFlight.LastTransition = time.Now().UTC().Add(-3 * time.Hour)
	repo.put(inFlight)

	n, err := svc.SweepAbandoned(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	swept, err := svc.Get(ctx, "bk-stale")
	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, swept.CurrentState)

	untouched, err := svc.Get(ctx, "bk-processing")
	require.NoError(t, err)
	assert.Equal(t, models.StatePaymentProcessing, untouched.CurrentState,
		"payment in flight must never be swept")
}
