package payment

import (
	"context"
	"fmt"
	"net/url"

	"bookflow/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// CreateCheckout drives the flow: INITIATE_PAYMENT creates the session via
// CreateCheckoutSession below and advances the booking to PAYMENT_PENDING.
func (s *DefaultPaymentService) CreateCheckout(ctx context.Context, bookingID, returnURL string) (*models.CheckoutSession, error) {
	_, sess, err := s.Flow.InitiatePayment(ctx, bookingID, returnURL)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// CreateCheckoutSession creates a hosted checkout session priced from the
// booking's amount snapshot. The booking id rides along as the client
// reference and in metadata on both the session and the payment intent, so
// every webhook shape can be correlated back.
func (s *DefaultPaymentService) CreateCheckoutSession(ctx context.Context, b *models.Booking, returnURL string) (*models.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(b.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(b.Currency),
					UnitAmount: stripe.Int64(b.AmountDue),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Session booking %s", b.ID)),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"bookingId": b.ID},
		},
		SuccessURL: stripe.String(resultURL(returnURL, b.ID, "success")),
		CancelURL:  stripe.String(resultURL(returnURL, b.ID, "cancel")),
		Metadata:   map[string]string{"bookingId": b.ID},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.Logger.Info("checkout session created",
		zap.String("bookingId", b.ID),
		zap.String("sessionId", sess.ID),
		zap.Int64("amountDue", b.AmountDue))

	return &models.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// resultURL appends booking correlation parameters to the client-supplied
// return URL, falling back to query-less concatenation if it won't parse.
func resultURL(returnURL, bookingID, outcome string) string {
	u, err := url.Parse(returnURL)
	if err != nil {
		return returnURL
	}
	q := u.Query()
	q.Set("bookingId", bookingID)
	q.Set("checkout", outcome)
	u.RawQuery = q.Encode()
	return u.String()
}
