package scheduling

import (
	"context"
	"encoding/json"
	"fmt"

	"bookflow/models"
	"bookflow/services/booking"

	"go.uber.org/zap"
)

// Source tag used for retry tasks and dead letters.
const Source = "scheduling"

// HandleInbound deduplicates and processes a signature-verified webhook.
// Any internal failure is handed to the retry queue and swallowed so the
// handler can ack 200 — the provider must never see an error and start a
// retry storm of its own.
func (s *DefaultService) HandleInbound(ctx context.Context, body []byte) error {
	var hook models.SchedulingWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		// Malformed bodies can never succeed on retry.
		s.Logger.Warn("scheduling webhook body unparseable", zap.Error(err))
		return nil
	}

	if hook.ID != "" {
		seen, err := s.Dedup.MarkSeen(ctx, Source+":"+hook.ID)
		if err != nil {
			s.Logger.Error("scheduling webhook dedup check failed", zap.Error(err))
			return s.enqueueRetry(ctx, body)
		}
		if seen {
			s.Logger.Debug("scheduling webhook already applied",
				zap.String("providerEventId", hook.ID))
			return nil
		}
	}

	if err := s.Process(ctx, body); err != nil {
		if _, ok := booking.AsTransitionError(err); ok && !isRetryable(err) {
			// A transition the engine rejects will never become legal by
			// waiting; log and drop.
			s.Logger.Warn("scheduling webhook rejected by engine",
				zap.String("providerEventId", hook.ID),
				zap.String("event", hook.Event),
				zap.Error(err))
			return nil
		}
		s.Logger.Error("scheduling webhook processing failed, queueing retry",
			zap.String("providerEventId", hook.ID),
			zap.Error(err))
		return s.enqueueRetry(ctx, body)
	}
	return nil
}

func (s *DefaultService) enqueueRetry(ctx context.Context, body []byte) error {
	if err := s.Retry.EnqueueWebhookRetry(ctx, Source, body); err != nil {
		s.Logger.Error("failed to enqueue webhook retry", zap.Error(err))
	}
	return nil
}

func isRetryable(err error) bool {
	if terr, ok := booking.AsTransitionError(err); ok {
		return terr.Retryable() || terr.Code == booking.CodeExternalProvider
	}
	return true
}

// Process maps the webhook onto engine events and applies them. It returns
// the raw error so the retry worker can distinguish retryable failures.
func (s *DefaultService) Process(ctx context.Context, body []byte) error {
	var hook models.SchedulingWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return fmt.Errorf("unparseable scheduling webhook: %w", err)
	}

	bookingID := hook.Payload.Tracking.UTMContent
	if bookingID == "" {
		return fmt.Errorf("scheduling webhook %s carries no booking id", hook.ID)
	}

	switch hook.Event {
	case EventInviteeCreated, EventInviteeRescheduled:
		return s.applyScheduled(ctx, bookingID, &hook)
	case EventInviteeCanceled:
		return s.applyCanceled(ctx, bookingID, &hook)
	default:
		s.Logger.Debug("ignoring scheduling webhook event",
			zap.String("event", hook.Event))
		return nil
	}
}

func (s *DefaultService) applyScheduled(ctx context.Context, bookingID string, hook *models.SchedulingWebhook) error {
	// The client normally applies INITIATE_SCHEDULING before the redirect;
	// cover the webhook arriving first.
	if b, err := s.Flow.Get(ctx, bookingID); err == nil && b.CurrentState == models.StateSessionTypeSelected {
		if _, err := s.Flow.Apply(ctx, bookingID, models.EventInitiateScheduling, models.TransitionPayload{}); err != nil {
			return err
		}
	}

	payload := models.TransitionPayload{
		EventURI:   hook.Payload.ScheduledEvent.URI,
		InviteeURI: hook.Payload.URI,
		StartTime:  hook.Payload.ScheduledEvent.StartTime,
		EndTime:    hook.Payload.ScheduledEvent.EndTime,
	}
	_, err := s.Flow.Apply(ctx, bookingID, models.EventScheduleEvent, payload)
	return err
}

func (s *DefaultService) applyCanceled(ctx context.Context, bookingID string, hook *models.SchedulingWebhook) error {
	reason := "canceled by scheduling provider"
	if hook.Payload.Cancellation != nil && hook.Payload.Cancellation.Reason != "" {
		reason = hook.Payload.Cancellation.Reason
	}

	b, err := s.Flow.Get(ctx, bookingID)
	if err != nil {
		return err
	}

	// The provider-side cancel is the asynchronous confirmation the
	// CANCELLATION_REQUESTED state waits for. A provider-initiated cancel
	// first drives the request transition itself.
	if b.CurrentState != models.StateCancellationRequested {
		if _, err := s.Flow.Apply(ctx, bookingID, models.EventRequestCancellation, models.TransitionPayload{Reason: reason}); err != nil {
			return err
		}
	}
	_, err = s.Flow.Apply(ctx, bookingID, models.EventConfirmCancellation, models.TransitionPayload{Reason: reason})
	return err
}
