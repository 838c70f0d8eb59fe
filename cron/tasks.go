package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypeWebhookRetry     = "webhook:retry"
	TypeRefund           = "payment:refund"
	TypeNotice           = "booking:notice"
	TypeSchedulingCancel = "scheduling:cancel"
	TypeSweep            = "booking:sweep"
)

// Webhook retry schedule: the inline attempt already failed, so the first
// queued attempt waits a minute, then the ladder stretches out before the
// webhook is dead-lettered.
var webhookRetryDelays = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
}

// WebhookRetryPayload carries the raw webhook body back through the queue.
type WebhookRetryPayload struct {
	Source string          `json:"source"`
	Body   json.RawMessage `json:"body"`
}

// RefundPayload asks the worker to refund a cancelled booking's payment.
type RefundPayload struct {
	BookingID       string `json:"bookingId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// NoticePayload asks the worker to deliver a lifecycle notice.
type NoticePayload struct {
	Kind      string `json:"kind"`
	BookingID string `json:"bookingId"`
}

// SchedulingCancelPayload asks the worker to cancel a provider event.
type SchedulingCancelPayload struct {
	BookingID string `json:"bookingId"`
	EventURI  string `json:"eventUri"`
	Reason    string `json:"reason"`
}

// Queue enqueues background tasks. It implements booking.TaskQueue and
// scheduling.RetryQueue.
type Queue struct {
	client *asynq.Client
}

// NewQueue constructs a Queue over the given Redis connection.
func NewQueue(opt asynq.RedisClientOpt) *Queue {
	return &Queue{client: asynq.NewClient(opt)}
}

// Close releases the underlying client.
func (q *Queue) Close() error {
	return q.client.Close()
}

// EnqueueWebhookRetry schedules a failed webhook body for redelivery. The
// first run waits out the head of the ladder; the remaining rungs come from
// the server's retry delay function.
func (q *Queue) EnqueueWebhookRetry(ctx context.Context, source string, body []byte) error {
	payload, err := json.Marshal(WebhookRetryPayload{Source: source, Body: body})
	if err != nil {
		return fmt.Errorf("failed to encode webhook retry: %w", err)
	}
	task := asynq.NewTask(TypeWebhookRetry, payload)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(webhookRetryDelays[0]),
		asynq.MaxRetry(len(webhookRetryDelays)-1),
	)
	return err
}

// EnqueueRefund schedules a refund for a cancelled paid booking.
func (q *Queue) EnqueueRefund(ctx context.Context, bookingID, paymentIntentID string) error {
	payload, err := json.Marshal(RefundPayload{BookingID: bookingID, PaymentIntentID: paymentIntentID})
	if err != nil {
		return fmt.Errorf("failed to encode refund task: %w", err)
	}
	_, err = q.client.EnqueueContext(ctx, asynq.NewTask(TypeRefund, payload))
	return err
}

// EnqueueNotice schedules a confirmation or cancellation notice.
func (q *Queue) EnqueueNotice(ctx context.Context, kind, bookingID string) error {
	payload, err := json.Marshal(NoticePayload{Kind: kind, BookingID: bookingID})
	if err != nil {
		return fmt.Errorf("failed to encode notice task: %w", err)
	}
	_, err = q.client.EnqueueContext(ctx, asynq.NewTask(TypeNotice, payload))
	return err
}

// EnqueueSchedulingCancel schedules an outbound provider-event cancel.
func (q *Queue) EnqueueSchedulingCancel(ctx context.Context, bookingID, eventURI, reason string) error {
	payload, err := json.Marshal(SchedulingCancelPayload{BookingID: bookingID, EventURI: eventURI, Reason: reason})
	if err != nil {
		return fmt.Errorf("failed to encode scheduling cancel task: %w", err)
	}
	_, err = q.client.EnqueueContext(ctx, asynq.NewTask(TypeSchedulingCancel, payload))
	return err
}
