package payment

import (
	"context"
	"fmt"

	"bookflow/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// CheckoutStatus polls the provider for a session's payment status. The
// client uses this after the redirect return; the webhook remains the
// authoritative driver of state.
func (s *DefaultPaymentService) CheckoutStatus(ctx context.Context, sessionID string) (*models.CheckoutStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checkout session %s: %w", sessionID, err)
	}

	status := &models.CheckoutStatus{PaymentStatus: models.PaymentStatusPending}
	if sess.PaymentIntent != nil {
		status.PaymentIntentID = sess.PaymentIntent.ID
	}

	switch sess.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		status.PaymentStatus = models.PaymentStatusPaid
	case stripe.CheckoutSessionPaymentStatusUnpaid:
		if pi := sess.PaymentIntent; pi != nil && paymentIntentFailed(pi) {
			status.PaymentStatus = models.PaymentStatusFailed
		}
	}
	return status, nil
}

// paymentIntentFailed reports whether the intent has failed terminally for
// this attempt, as opposed to still being collectable.
func paymentIntentFailed(pi *stripe.PaymentIntent) bool {
	if pi.Status == stripe.PaymentIntentStatusCanceled {
		return true
	}
	return pi.Status == stripe.PaymentIntentStatusRequiresPaymentMethod && pi.LastPaymentError != nil
}
