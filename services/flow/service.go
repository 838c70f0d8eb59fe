package flow

import (
	"context"
	"encoding/json"
	"time"

	"bookflow/models"
	"bookflow/utils"

	"go.uber.org/zap"
)

// Flow step names rendered by the client.
const (
	StepSelect       = "select"
	StepSchedule     = "schedule"
	StepPayment      = "payment"
	StepConfirmation = "confirmation"
	StepDone         = "done"
	StepCancelling   = "cancelling"
	StepCancelled    = "cancelled"
)

// Resume validates the recovery token against the stored hash, reconciles
// a payment left in flight by a redirect, and returns a fresh snapshot.
func (s *DefaultCoordinatorService) Resume(ctx context.Context, params models.FlowParams) (*models.FlowSnapshot, error) {
	if params.RecoveryToken == "" {
		return nil, utils.ErrRecoveryTokenInvalid
	}
	bookingID, err := utils.ValidateRecoveryToken(params.RecoveryToken)
	if err != nil {
		return nil, err
	}
	// The URL's bookingId is client-controlled; the token decides.
	if params.BookingID != "" && params.BookingID != bookingID {
		return nil, utils.ErrRecoveryTokenInvalid
	}

	b, err := s.Flow.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.RecoveryTokenHash == "" || b.RecoveryTokenHash != utils.HashToken(params.RecoveryToken) {
		return nil, utils.ErrRecoveryTokenInvalid
	}
	if b.RecoveryExpiresAt != nil && time.Now().After(*b.RecoveryExpiresAt) {
		return nil, utils.ErrRecoveryTokenInvalid
	}

	b = s.reconcilePayment(ctx, b)

	snap := s.Snapshot(b)
	s.cacheSnapshot(ctx, snap)
	return snap, nil
}

// reconcilePayment polls the provider when the record is parked in a
// pending payment state, catching webhooks that raced the redirect. Poll
// failures are logged and the stale state is returned as-is.
func (s *DefaultCoordinatorService) reconcilePayment(ctx context.Context, b *models.Booking) *models.Booking {
	if b.CheckoutSessionID == "" {
		return b
	}
	if b.CurrentState != models.StatePaymentPending && b.CurrentState != models.StatePaymentProcessing {
		return b
	}

	status, err := s.Payments.CheckoutStatus(ctx, b.CheckoutSessionID)
	if err != nil {
		s.Logger.Warn("payment status poll failed during resume",
			zap.String("bookingId", b.ID),
			zap.String("sessionId", b.CheckoutSessionID),
			zap.Error(err))
		return b
	}

	switch status.PaymentStatus {
	case models.PaymentStatusPaid:
		updated, err := s.Flow.Apply(ctx, b.ID, models.EventPaymentSucceeded, models.TransitionPayload{
			CheckoutSessionID: b.CheckoutSessionID,
			PaymentIntentID:   status.PaymentIntentID,
		})
		if err != nil {
			s.Logger.Warn("failed to apply polled payment success",
				zap.String("bookingId", b.ID), zap.Error(err))
			return b
		}
		return updated
	case models.PaymentStatusFailed:
		updated, err := s.Flow.Apply(ctx, b.ID, models.EventPaymentFailed, models.TransitionPayload{
			CheckoutSessionID: b.CheckoutSessionID,
			ErrorCode:         "payment_failed",
			ErrorMessage:      "payment did not complete",
		})
		if err != nil {
			s.Logger.Warn("failed to apply polled payment failure",
				zap.String("bookingId", b.ID), zap.Error(err))
			return b
		}
		return updated
	default:
		return b
	}
}

// Snapshot projects a booking into the client-facing flow view.
func (s *DefaultCoordinatorService) Snapshot(b *models.Booking) *models.FlowSnapshot {
	snap := &models.FlowSnapshot{
		BookingID:        b.ID,
		Step:             stepForState(b),
		State:            b.CurrentState,
		BuilderID:        b.BuilderID,
		SessionTypeID:    b.SessionTypeID,
		PaymentSessionID: b.CheckoutSessionID,
		AmountDue:        b.AmountDue,
		StartTime:        b.StartTime,
		Retryable:        b.CurrentState == models.StatePaymentFailed,
		UpdatedAt:        b.UpdatedAt,
	}
	if b.CurrentState == models.StatePaymentFailed {
		snap.Message = b.LastErrorMessage
	}
	return snap
}

func stepForState(b *models.Booking) string {
	switch b.CurrentState {
	case models.StateIdle:
		return StepSelect
	case models.StateSessionTypeSelected, models.StateSchedulingInitiated:
		return StepSchedule
	case models.StateEventScheduled:
		if b.AmountDue == 0 {
			return StepConfirmation
		}
		return StepPayment
	case models.StatePaymentRequired, models.StatePaymentPending,
		models.StatePaymentProcessing, models.StatePaymentFailed:
		return StepPayment
	case models.StatePaymentSucceeded:
		return StepConfirmation
	case models.StateBookingConfirmed:
		return StepDone
	case models.StateCancellationRequested:
		return StepCancelling
	case models.StateCancelled:
		return StepCancelled
	default:
		return StepSelect
	}
}

// cacheSnapshot stores the snapshot for quick re-renders. Best-effort.
func (s *DefaultCoordinatorService) cacheSnapshot(ctx context.Context, snap *models.FlowSnapshot) {
	if s.Cache == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, utils.FlowCachePrefix+snap.BookingID, data, utils.FlowCacheTTL).Err(); err != nil {
		s.Logger.Debug("flow snapshot cache write failed",
			zap.String("bookingId", snap.BookingID), zap.Error(err))
	}
}
