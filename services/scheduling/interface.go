package scheduling

import (
	"context"

	"bookflow/services/booking"
	"bookflow/utils"

	"go.uber.org/zap"
)

// Scheduling provider event names.
const (
	EventInviteeCreated     = "invitee.created"
	EventInviteeCanceled    = "invitee.canceled"
	EventInviteeRescheduled = "invitee.rescheduled"
)

// Service translates scheduling-provider webhooks into engine events and
// cancels provider events when a booking is unwound.
type Service interface {
	// HandleInbound deduplicates and processes a verified webhook body.
	// Internal failures are handed to the retry queue; the caller always
	// acks the provider.
	HandleInbound(ctx context.Context, body []byte) error
	// Process applies the webhook to the booking. Used by HandleInbound
	// and by the retry worker.
	Process(ctx context.Context, body []byte) error
	// CancelEvent asks the provider to cancel a scheduled event.
	CancelEvent(ctx context.Context, eventURI, reason string) error
}

// RetryQueue re-enqueues webhook bodies that failed to process.
// Implemented in cron.
type RetryQueue interface {
	EnqueueWebhookRetry(ctx context.Context, source string, body []byte) error
}

// DefaultService implements Service.
type DefaultService struct {
	Flow   booking.FlowService
	Dedup  utils.Deduper
	Retry  RetryQueue
	Client EventCanceler
	Logger *zap.Logger
}

// NewService constructs a DefaultService. client may be nil when outbound
// cancellation is not configured (tests, free-only deployments).
func NewService(flow booking.FlowService, dedup utils.Deduper, retry RetryQueue, client EventCanceler, logger *zap.Logger) *DefaultService {
	return &DefaultService{
		Flow:   flow,
		Dedup:  dedup,
		Retry:  retry,
		Client: client,
		Logger: logger,
	}
}
