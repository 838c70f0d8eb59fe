package flow

import (
	"context"

	"bookflow/models"
	"bookflow/services/booking"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CoordinatorService rebuilds the client-facing flow snapshot from the
// authoritative booking record. The snapshot is a rendering hint: losing it
// costs nothing, and it never drives a business decision.
type CoordinatorService interface {
	// Resume validates the recovery token, reconciles any in-flight payment
	// and returns a fresh snapshot.
	Resume(ctx context.Context, params models.FlowParams) (*models.FlowSnapshot, error)
	// Snapshot projects a booking into its client-facing flow view.
	Snapshot(b *models.Booking) *models.FlowSnapshot
}

// StatusChecker polls the payment provider for a checkout session's
// status. Implemented by the payment adapter.
type StatusChecker interface {
	CheckoutStatus(ctx context.Context, sessionID string) (*models.CheckoutStatus, error)
}

// DefaultCoordinatorService implements CoordinatorService.
type DefaultCoordinatorService struct {
	Flow     booking.FlowService
	Payments StatusChecker
	Cache    *redis.Client
	Logger   *zap.Logger
}

// NewCoordinatorService constructs a DefaultCoordinatorService.
func NewCoordinatorService(flow booking.FlowService, payments StatusChecker, cache *redis.Client, logger *zap.Logger) *DefaultCoordinatorService {
	return &DefaultCoordinatorService{
		Flow:     flow,
		Payments: payments,
		Cache:    cache,
		Logger:   logger,
	}
}
