package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"bookflow/models"
	"bookflow/services/booking"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// Source tag used for dedup keys and dead letters.
const Source = "payment"

// HandleWebhook verifies, deduplicates and applies a payment webhook.
// Unlike the scheduling side there is no internal retry ladder here: the
// provider redelivers on any non-2xx, so transient failures simply bubble
// up and the handler answers 5xx.
func (s *DefaultPaymentService) HandleWebhook(ctx context.Context, body []byte, sigHeader string) error {
	event, err := webhook.ConstructEvent(body, sigHeader, s.WebhookSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	key := Source + ":" + event.ID
	seen, err := s.Dedup.MarkSeen(ctx, key)
	if err != nil {
		return fmt.Errorf("payment webhook dedup check failed: %w", err)
	}
	if seen {
		s.Logger.Debug("payment webhook already applied", zap.String("eventId", event.ID))
		return nil
	}

	if err := s.process(ctx, &event); err != nil {
		if terr, ok := booking.AsTransitionError(err); ok && !terr.Retryable() {
			// Redelivery cannot make an illegal transition legal.
			s.Logger.Warn("payment webhook rejected by engine",
				zap.String("eventId", event.ID),
				zap.String("type", string(event.Type)),
				zap.Error(err))
			return nil
		}
		// Release the dedup key so the provider's redelivery is not dropped.
		if ferr := s.Dedup.Forget(ctx, key); ferr != nil {
			s.Logger.Error("failed to release dedup key", zap.String("key", key), zap.Error(ferr))
		}
		return err
	}
	return nil
}

func (s *DefaultPaymentService) process(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		return s.onCheckoutCompleted(ctx, event)
	case "checkout.session.async_payment_succeeded":
		return s.onCheckoutPaid(ctx, event)
	case "checkout.session.async_payment_failed":
		return s.onCheckoutFailed(ctx, event, "async_payment_failed", "deferred payment method failed")
	case "payment_intent.payment_failed":
		return s.onIntentFailed(ctx, event)
	case "charge.refunded":
		// Refunds are initiated by the cancellation path, which confirms the
		// cancellation itself once the refund call succeeds. The webhook is
		// informational.
		s.Logger.Info("charge refunded", zap.String("eventId", event.ID))
		return nil
	default:
		s.Logger.Debug("ignoring payment webhook event", zap.String("type", string(event.Type)))
		return nil
	}
}

func (s *DefaultPaymentService) onCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	sess, bookingID, err := sessionFromEvent(event)
	if err != nil {
		return err
	}

	// A completed session is paid for card payments; delayed-notification
	// methods complete first and settle via async_payment_* later.
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
		_, err = s.Flow.Apply(ctx, bookingID, models.EventPaymentSucceeded, models.TransitionPayload{
			CheckoutSessionID: sess.ID,
			PaymentIntentID:   intentID(sess),
		})
		return err
	}
	_, err = s.Flow.Apply(ctx, bookingID, models.EventPaymentProcessing, models.TransitionPayload{
		CheckoutSessionID: sess.ID,
	})
	return err
}

func (s *DefaultPaymentService) onCheckoutPaid(ctx context.Context, event *stripe.Event) error {
	sess, bookingID, err := sessionFromEvent(event)
	if err != nil {
		return err
	}
	_, err = s.Flow.Apply(ctx, bookingID, models.EventPaymentSucceeded, models.TransitionPayload{
		CheckoutSessionID: sess.ID,
		PaymentIntentID:   intentID(sess),
	})
	return err
}

func (s *DefaultPaymentService) onCheckoutFailed(ctx context.Context, event *stripe.Event, code, message string) error {
	sess, bookingID, err := sessionFromEvent(event)
	if err != nil {
		return err
	}
	_, err = s.Flow.Apply(ctx, bookingID, models.EventPaymentFailed, models.TransitionPayload{
		CheckoutSessionID: sess.ID,
		ErrorCode:         code,
		ErrorMessage:      message,
	})
	return err
}

func (s *DefaultPaymentService) onIntentFailed(ctx context.Context, event *stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("unparseable payment_intent payload: %w", err)
	}
	bookingID := pi.Metadata["bookingId"]
	if bookingID == "" {
		s.Logger.Warn("payment_intent.payment_failed without booking metadata",
			zap.String("paymentIntentId", pi.ID))
		return nil
	}

	code := "payment_failed"
	message := "payment was not completed"
	if pi.LastPaymentError != nil {
		if pi.LastPaymentError.Code != "" {
			code = string(pi.LastPaymentError.Code)
		}
		if pi.LastPaymentError.Msg != "" {
			message = pi.LastPaymentError.Msg
		}
	}
	_, err := s.Flow.Apply(ctx, bookingID, models.EventPaymentFailed, models.TransitionPayload{
		ErrorCode:    code,
		ErrorMessage: message,
	})
	return err
}

func sessionFromEvent(event *stripe.Event) (*stripe.CheckoutSession, string, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, "", fmt.Errorf("unparseable checkout.session payload: %w", err)
	}
	bookingID := sess.ClientReferenceID
	if bookingID == "" {
		bookingID = sess.Metadata["bookingId"]
	}
	if bookingID == "" {
		return nil, "", fmt.Errorf("checkout session %s carries no booking id", sess.ID)
	}
	return &sess, bookingID, nil
}

func intentID(sess *stripe.CheckoutSession) string {
	if sess.PaymentIntent == nil {
		return ""
	}
	return sess.PaymentIntent.ID
}
