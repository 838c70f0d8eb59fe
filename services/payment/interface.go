package payment

import (
	"context"
	"errors"

	"bookflow/models"
	"bookflow/services/booking"
	"bookflow/utils"

	"go.uber.org/zap"
)

// ErrInvalidSignature is returned when the provider's webhook signature
// does not verify. The handler maps it to a 400 with no state change.
var ErrInvalidSignature = errors.New("invalid payment webhook signature")

// Service is the payment adapter: checkout creation, status polling,
// webhook intake and refunds.
type Service interface {
	// CreateCheckout drives the booking into PAYMENT_PENDING and returns
	// the hosted checkout session the client redirects to.
	CreateCheckout(ctx context.Context, bookingID, returnURL string) (*models.CheckoutSession, error)
	// CheckoutStatus polls the provider for the session's payment status.
	CheckoutStatus(ctx context.Context, sessionID string) (*models.CheckoutStatus, error)
	// HandleWebhook verifies and applies a provider webhook. A returned
	// error other than ErrInvalidSignature means the provider should
	// redeliver.
	HandleWebhook(ctx context.Context, body []byte, sigHeader string) error
	// Refund refunds the full captured amount of a payment intent.
	Refund(ctx context.Context, paymentIntentID string) error
}

// DefaultPaymentService implements Service and booking.CheckoutGateway.
type DefaultPaymentService struct {
	// Flow is set after construction: the flow service also needs this
	// adapter as its checkout gateway.
	Flow          booking.FlowService
	Dedup         utils.Deduper
	WebhookSecret string
	Logger        *zap.Logger
}

// NewPaymentService constructs a DefaultPaymentService. Assign Flow before
// serving traffic.
func NewPaymentService(dedup utils.Deduper, webhookSecret string, logger *zap.Logger) *DefaultPaymentService {
	return &DefaultPaymentService{
		Dedup:         dedup,
		WebhookSecret: webhookSecret,
		Logger:        logger,
	}
}
