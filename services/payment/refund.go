package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/refund"
	"go.uber.org/zap"
)

// Refund refunds the full captured amount of a payment intent. An
// already-refunded intent is treated as success so the cancellation worker
// stays idempotent across retries.
func (s *DefaultPaymentService) Refund(ctx context.Context, paymentIntentID string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			s.Logger.Info("payment already refunded", zap.String("paymentIntentId", paymentIntentID))
			return nil
		}
		return fmt.Errorf("failed to refund %s: %w", paymentIntentID, err)
	}

	s.Logger.Info("refund issued",
		zap.String("paymentIntentId", paymentIntentID),
		zap.String("refundId", r.ID),
		zap.Int64("amount", r.Amount))
	return nil
}
