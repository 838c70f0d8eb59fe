package booking

import (
	"context"
	"time"

	bookingRepo "bookflow/database/repository/booking"
	sessiontypeRepo "bookflow/database/repository/sessiontype"
	"bookflow/models"

	"go.uber.org/zap"
)

// FlowService is the sole mutator of booking state. Adapters, handlers and
// the background worker all converge on Apply.
type FlowService interface {
	// Initialize creates the record and drives it IDLE -> SESSION_TYPE_SELECTED.
	// Returns the booking plus the raw recovery token (empty on an
	// idempotent replay — tokens are issued once).
	Initialize(ctx context.Context, req InitializeRequest) (*models.Booking, string, error)
	// Apply validates the event against the persisted state, persists the
	// engine's result and executes described effects.
	Apply(ctx context.Context, bookingID string, event models.BookingEvent, payload models.TransitionPayload) (*models.Booking, error)
	// InitiatePayment drives EVENT_SCHEDULED -> PAYMENT_REQUIRED, creates
	// the checkout session and advances to PAYMENT_PENDING.
	InitiatePayment(ctx context.Context, bookingID, returnURL string) (*models.Booking, *models.CheckoutSession, error)
	Get(ctx context.Context, bookingID string) (*models.Booking, error)
	// SweepAbandoned resets bookings stuck in an intermediate state past
	// the expiry. Returns how many were swept.
	SweepAbandoned(ctx context.Context, expiry time.Duration) (int, error)
}

// InitializeRequest is the input of the initialize endpoint. BookingID is
// client-generated so the client can correlate before the server confirms;
// empty means the server assigns one.
type InitializeRequest struct {
	BookingID     string `json:"bookingId"`
	BuilderID     string `json:"builderId" binding:"required"`
	SessionTypeID string `json:"sessionTypeId" binding:"required"`
	ClientID      string `json:"clientId"`
}

// CheckoutGateway creates provider checkout sessions. Implemented by the
// payment adapter.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, b *models.Booking, returnURL string) (*models.CheckoutSession, error)
}

// Notice kinds for the task queue.
const (
	NoticeConfirmation = "confirmation"
	NoticeCancellation = "cancellation"
)

// TaskQueue hands slow or failure-prone effects to the background worker.
// Implemented in cron.
type TaskQueue interface {
	EnqueueRefund(ctx context.Context, bookingID, paymentIntentID string) error
	EnqueueNotice(ctx context.Context, kind, bookingID string) error
	EnqueueSchedulingCancel(ctx context.Context, bookingID, eventURI, reason string) error
}

// DefaultFlowService implements FlowService.
type DefaultFlowService struct {
	Repo         bookingRepo.BookingRepository
	SessionTypes sessiontypeRepo.SessionTypeRepository
	Checkout     CheckoutGateway
	Tasks        TaskQueue
	Logger       *zap.Logger
	// Clock is injectable for tests; defaults to time.Now in UTC.
	Clock func() time.Time
}

// NewFlowService constructs a DefaultFlowService.
func NewFlowService(
	repo bookingRepo.BookingRepository,
	sessionTypes sessiontypeRepo.SessionTypeRepository,
	checkout CheckoutGateway,
	tasks TaskQueue,
	logger *zap.Logger,
) *DefaultFlowService {
	return &DefaultFlowService{
		Repo:         repo,
		SessionTypes: sessionTypes,
		Checkout:     checkout,
		Tasks:        tasks,
		Logger:       logger,
		Clock:        func() time.Time { return time.Now().UTC() },
	}
}
