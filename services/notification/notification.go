package notification

import (
	"context"

	"bookflow/models"

	"go.uber.org/zap"
)

// NotificationService delivers booking lifecycle notices. Delivery is
// best-effort and never blocks a transition.
type NotificationService interface {
	SendBookingConfirmation(ctx context.Context, b *models.Booking) error
	SendCancellationNotice(ctx context.Context, b *models.Booking) error
}

// LogNotifier writes notices to the log. It stands in for a mail or push
// integration and keeps the notice path exercisable end to end.
type LogNotifier struct {
	Logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) SendBookingConfirmation(ctx context.Context, b *models.Booking) error {
	n.Logger.Info("booking confirmation notice",
		zap.String("bookingId", b.ID),
		zap.String("builderId", b.BuilderID),
		zap.String("clientId", b.ClientID),
		zap.Timep("startTime", b.StartTime))
	return nil
}

func (n *LogNotifier) SendCancellationNotice(ctx context.Context, b *models.Booking) error {
	n.Logger.Info("booking cancellation notice",
		zap.String("bookingId", b.ID),
		zap.String("builderId", b.BuilderID),
		zap.String("clientId", b.ClientID))
	return nil
}
