package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookflow/config"
	bookingRepo "bookflow/database/repository/booking"
	"bookflow/models"
	"bookflow/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxCASAttempts bounds the internal retry of the load/apply/persist loop
// when a concurrent writer wins the version check.
const maxCASAttempts = 3

// sweepStates are the intermediate states eligible for the abandoned-flow
// sweep. PAYMENT_PROCESSING is deliberately excluded — money may be in
// flight and the payment webhook settles it.
var sweepStates = []models.BookingState{
	models.StateSessionTypeSelected,
	models.StateSchedulingInitiated,
	models.StateEventScheduled,
	models.StatePaymentRequired,
	models.StatePaymentPending,
}

func (s *DefaultFlowService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// Initialize creates the booking record in SESSION_TYPE_SELECTED and issues
// the recovery token. Replaying the same initialize call is a no-op.
func (s *DefaultFlowService) Initialize(ctx context.Context, req InitializeRequest) (*models.Booking, string, error) {
	st, err := s.SessionTypes.GetByID(ctx, req.SessionTypeID)
	if err != nil {
		return nil, "", NewMissingPrerequisite(models.StateIdle, models.EventSelectSessionType, fmt.Sprintf("unknown session type %s", req.SessionTypeID))
	}
	if st.BuilderID != req.BuilderID {
		return nil, "", NewMissingPrerequisite(models.StateIdle, models.EventSelectSessionType, "session type does not belong to builder")
	}

	id := req.BookingID
	if id == "" {
		id = uuid.New().String()
	}
	now := s.now()

	seed := models.Booking{
		ID:             id,
		CurrentState:   models.StateIdle,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastTransition: now,
	}
	payload := models.TransitionPayload{
		BuilderID:     req.BuilderID,
		SessionTypeID: req.SessionTypeID,
		ClientID:      req.ClientID,
		AmountDue:     st.Price,
		Currency:      st.Currency,
		OccurredAt:    now,
	}

	next, _, terr := Transition(seed, models.EventSelectSessionType, payload)
	if terr != nil {
		return nil, "", terr
	}

	token, err := utils.GenerateRecoveryToken(id, config.AppConfig.RecoveryTokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue recovery token: %w", err)
	}
	expires := now.Add(config.AppConfig.RecoveryTokenTTL)
	next.RecoveryTokenHash = utils.HashToken(token)
	next.RecoveryExpiresAt = &expires
	next.LastEvent = models.EventSelectSessionType
	next.LastPayloadHash = payload.Fingerprint()
	next.Version = 1

	if err := s.Repo.Create(ctx, &next); err != nil {
		if errors.Is(err, bookingRepo.ErrDuplicateID) {
			existing, gerr := s.Repo.GetByID(ctx, id)
			if gerr != nil {
				return nil, "", gerr
			}
			if existing.LastEvent == models.EventSelectSessionType && existing.LastPayloadHash == payload.Fingerprint() {
				// Replay; the token was issued on the first call only.
				return existing, "", nil
			}
			return nil, "", NewConflictingState(id, models.EventSelectSessionType, "already initialized with different parameters")
		}
		return nil, "", err
	}

	s.Logger.Info("booking initialized",
		zap.String("bookingId", id),
		zap.String("builderId", req.BuilderID),
		zap.String("sessionTypeId", req.SessionTypeID),
		zap.Int64("amountDue", st.Price))
	return &next, token, nil
}

// Apply is the single mutation path for an existing booking.
func (s *DefaultFlowService) Apply(ctx context.Context, bookingID string, event models.BookingEvent, payload models.TransitionPayload) (*models.Booking, error) {
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = s.now()
	}
	res, err := s.apply(ctx, bookingID, event, payload)
	if err != nil {
		return nil, err
	}
	return res.booking, nil
}

// InitiatePayment drives the booking into the payment leg and returns the
// checkout session the client is redirected to.
func (s *DefaultFlowService) InitiatePayment(ctx context.Context, bookingID, returnURL string) (*models.Booking, *models.CheckoutSession, error) {
	payload := models.TransitionPayload{ReturnURL: returnURL, OccurredAt: s.now()}
	res, err := s.apply(ctx, bookingID, models.EventInitiatePayment, payload)
	if err != nil {
		return nil, nil, err
	}
	return res.booking, res.checkout, nil
}

// Get returns the authoritative record.
func (s *DefaultFlowService) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.Repo.GetByID(ctx, bookingID)
}

// applyResult carries the post-transition booking plus any artifact an
// effect produced synchronously (today: the checkout session).
type applyResult struct {
	booking  *models.Booking
	checkout *models.CheckoutSession
}

func (s *DefaultFlowService) apply(ctx context.Context, bookingID string, event models.BookingEvent, payload models.TransitionPayload) (*applyResult, error) {
	fingerprint := payload.Fingerprint()

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.Repo.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}

		// Idempotent replay: the exact same event+payload was already
		// applied; report success with the current state.
		if current.LastEvent == event && current.LastPayloadHash == fingerprint {
			return &applyResult{booking: current}, nil
		}

		next, effects, terr := Transition(*current, event, payload)
		if terr != nil {
			// Same event, different payload: the caller replayed with
			// inconsistent data (e.g. another payment intent for an
			// already-settled payment).
			if IsCode(terr, CodeIllegalTransition) && current.LastEvent == event {
				return nil, NewConflictingState(bookingID, event, "replayed with a payload inconsistent with the applied transition")
			}
			return nil, terr
		}

		// Internal follow-ups (CONFIRM_BOOKING, CONFIRM_CANCELLATION) keep
		// the triggering external event on record, so replaying that event
		// after the auto-confirm still reads as a no-op rather than an
		// illegal transition from the confirmed state.
		if !event.Internal() {
			next.LastEvent = event
			next.LastPayloadHash = fingerprint
		}
		next.Version = current.Version + 1

		if err := s.Repo.UpdateCAS(ctx, &next, current.Version); err != nil {
			if errors.Is(err, bookingRepo.ErrVersionConflict) {
				s.Logger.Debug("booking transition lost CAS, retrying",
					zap.String("bookingId", bookingID),
					zap.String("event", string(event)),
					zap.Int("attempt", attempt+1))
				continue
			}
			return nil, err
		}

		s.Logger.Info("booking transition applied",
			zap.String("bookingId", bookingID),
			zap.String("event", string(event)),
			zap.String("from", string(current.CurrentState)),
			zap.String("to", string(next.CurrentState)))

		res := &applyResult{booking: &next}
		if err := s.runEffects(ctx, res, effects); err != nil {
			// The state change is already durable; effect failures are
			// surfaced to the retry queue, never rolled back.
			s.Logger.Error("effect execution failed",
				zap.String("bookingId", bookingID),
				zap.String("event", string(event)),
				zap.Error(err))
		}
		return res, nil
	}

	return nil, NewConcurrencyConflict(bookingID)
}

func (s *DefaultFlowService) runEffects(ctx context.Context, res *applyResult, effects []Effect) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, eff := range effects {
		b := res.booking
		switch eff.Kind {
		case EffectFollowUp:
			p := eff.Payload
			p.OccurredAt = s.now()
			sub, err := s.apply(ctx, b.ID, eff.Event, p)
			if err == nil {
				res.booking = sub.booking
				if sub.checkout != nil {
					res.checkout = sub.checkout
				}
			}
			record(err)

		case EffectCreateCheckoutSession:
			sess, err := s.Checkout.CreateCheckoutSession(ctx, b, eff.Payload.ReturnURL)
			if err != nil {
				record(NewExternalProviderError("checkout session creation failed", err))
				continue
			}
			res.checkout = sess
			p := models.TransitionPayload{CheckoutSessionID: sess.ID, OccurredAt: s.now()}
			sub, err := s.apply(ctx, b.ID, models.EventPaymentPending, p)
			if err == nil {
				res.booking = sub.booking
			}
			record(err)

		case EffectIssueRefund:
			record(s.Tasks.EnqueueRefund(ctx, b.ID, b.PaymentIntentID))

		case EffectCancelSchedulingEvent:
			record(s.Tasks.EnqueueSchedulingCancel(ctx, b.ID, b.CalendlyEventURI, eff.Payload.Reason))

		case EffectSendConfirmation:
			record(s.Tasks.EnqueueNotice(ctx, NoticeConfirmation, b.ID))

		case EffectSendCancellationNotice:
			record(s.Tasks.EnqueueNotice(ctx, NoticeCancellation, b.ID))
		}
	}
	return firstErr
}

// SweepAbandoned resets bookings whose flow stalled in an intermediate
// state past the expiry. Runs off the request path.
func (s *DefaultFlowService) SweepAbandoned(ctx context.Context, expiry time.Duration) (int, error) {
	cutoff := s.now().Add(-expiry)
	stale, err := s.Repo.FindStale(ctx, sweepStates, cutoff, 100)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range stale {
		b := &stale[i]
		payload := models.TransitionPayload{
			Reason:     fmt.Sprintf("abandoned: no activity since %s", b.LastTransition.Format(time.RFC3339)),
			OccurredAt: s.now(),
		}
		if _, err := s.apply(ctx, b.ID, models.EventReset, payload); err != nil {
			s.Logger.Warn("sweep failed for booking",
				zap.String("bookingId", b.ID),
				zap.Error(err))
			continue
		}
		swept++
	}
	if swept > 0 {
		s.Logger.Info("abandoned bookings swept", zap.Int("count", swept))
	}
	return swept, nil
}
