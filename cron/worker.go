package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"bookflow/config"
	deadletterRepo "bookflow/database/repository/deadletter"
	"bookflow/models"
	"bookflow/services/booking"
	"bookflow/services/notification"
	"bookflow/services/scheduling"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Refunder is the slice of the payment adapter the worker needs.
type Refunder interface {
	Refund(ctx context.Context, paymentIntentID string) error
}

// WorkerDeps are the collaborators the background worker drives.
type WorkerDeps struct {
	Flow        booking.FlowService
	Scheduling  scheduling.Service
	Payments    Refunder
	Notifier    notification.NotificationService
	DeadLetters deadletterRepo.DeadLetterRepository
}

// InitWorker starts the asynq server and the periodic scheduler in the
// background.
func InitWorker(deps WorkerDeps) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			RetryDelayFunc: retryDelay,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeWebhookRetry, handleWebhookRetry(deps))
	mux.HandleFunc(TypeRefund, handleRefund(deps))
	mux.HandleFunc(TypeNotice, handleNotice(deps))
	mux.HandleFunc(TypeSchedulingCancel, handleSchedulingCancel(deps))
	mux.HandleFunc(TypeSweep, handleSweep(deps))

	go runScheduler(redisOpts)

	// Start async worker with retry logic
	go func() {
		log.Println("[Worker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[Worker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[Worker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

// retryDelay applies the webhook ladder to webhook retries and the asynq
// default backoff to everything else.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	if task.Type() == TypeWebhookRetry {
		// n counts completed retries; rung 0 of the ladder was consumed by
		// the enqueue delay.
		idx := n + 1
		if idx >= len(webhookRetryDelays) {
			idx = len(webhookRetryDelays) - 1
		}
		return webhookRetryDelays[idx]
	}
	return asynq.DefaultRetryDelayFunc(n, err, task)
}

// runScheduler registers the periodic sweep of abandoned bookings.
func runScheduler(opt asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})
	if _, err := scheduler.Register("@every 10m", asynq.NewTask(TypeSweep, nil)); err != nil {
		log.Printf("[Worker] ❌ Failed to register sweep schedule: %v", err)
		return
	}
	if err := scheduler.Run(); err != nil {
		log.Printf("[Worker] ❌ Scheduler stopped: %v", err)
	}
}

// handleWebhookRetry re-runs the processing of a webhook body. When the
// retry budget is exhausted the body is written to the dead-letter store
// and the task is consumed.
func handleWebhookRetry(deps WorkerDeps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p WebhookRetryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[WebhookRetry] 🔴 Invalid payload: %v", err)
			return nil
		}

		err := deps.Scheduling.Process(ctx, p.Body)
		if err == nil {
			return nil
		}
		if terr, ok := booking.AsTransitionError(err); ok && !terr.Retryable() && terr.Code != booking.CodeExternalProvider {
			// The engine's answer won't change; drop without dead-lettering.
			log.Printf("[WebhookRetry] ⚠️ Webhook permanently rejected: %v", err)
			return nil
		}

		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry {
			log.Printf("[WebhookRetry] ❌ Retry budget exhausted, dead-lettering: %v", err)
			var hook models.SchedulingWebhook
			_ = json.Unmarshal(p.Body, &hook)
			dl := &models.DeadLetter{
				ID:              uuid.New().String(),
				Source:          p.Source,
				ProviderEventID: hook.ID,
				BookingID:       hook.Payload.Tracking.UTMContent,
				Body:            p.Body,
				Attempts:        retried + 1,
				LastError:       err.Error(),
				CreatedAt:       time.Now().UTC(),
			}
			if insErr := deps.DeadLetters.Insert(ctx, dl); insErr != nil {
				log.Printf("[WebhookRetry] ❌ Dead-letter insert failed: %v", insErr)
				return insErr
			}
			return nil
		}
		return err
	}
}

// handleRefund refunds the payment and confirms the cancellation. Replays
// against an already-cancelled booking succeed quietly.
func handleRefund(deps WorkerDeps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p RefundPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[Refund] 🔴 Invalid payload: %v", err)
			return nil
		}

		if err := deps.Payments.Refund(ctx, p.PaymentIntentID); err != nil {
			log.Printf("[Refund] ❌ Refund failed for booking %s: %v", p.BookingID, err)
			return err
		}

		_, err := deps.Flow.Apply(ctx, p.BookingID, models.EventConfirmCancellation, models.TransitionPayload{
			Reason: "refund issued",
		})
		if err != nil {
			if booking.IsCode(err, booking.CodeIllegalTransition) || booking.IsCode(err, booking.CodeConflictingState) {
				// Already cancelled through another path.
				return nil
			}
			log.Printf("[Refund] ❌ Failed to confirm cancellation for booking %s: %v", p.BookingID, err)
			return err
		}
		log.Printf("[Refund] ✅ Refunded and cancelled booking %s", p.BookingID)
		return nil
	}
}

func handleNotice(deps WorkerDeps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p NoticePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[Notice] 🔴 Invalid payload: %v", err)
			return nil
		}

		b, err := deps.Flow.Get(ctx, p.BookingID)
		if err != nil {
			log.Printf("[Notice] ❌ Booking %s not found: %v", p.BookingID, err)
			return err
		}

		switch p.Kind {
		case booking.NoticeConfirmation:
			err = deps.Notifier.SendBookingConfirmation(ctx, b)
		case booking.NoticeCancellation:
			err = deps.Notifier.SendCancellationNotice(ctx, b)
		default:
			log.Printf("[Notice] ⚠️ Unknown notice kind: %s", p.Kind)
			return nil
		}
		if err != nil {
			log.Printf("[Notice] ❌ Failed to send %s notice for booking %s: %v", p.Kind, p.BookingID, err)
		}
		return err
	}
}

func handleSchedulingCancel(deps WorkerDeps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p SchedulingCancelPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[SchedulingCancel] 🔴 Invalid payload: %v", err)
			return nil
		}

		if err := deps.Scheduling.CancelEvent(ctx, p.EventURI, p.Reason); err != nil {
			log.Printf("[SchedulingCancel] ❌ Failed to cancel event for booking %s: %v", p.BookingID, err)
			return err
		}
		log.Printf("[SchedulingCancel] ✅ Cancelled provider event for booking %s", p.BookingID)
		return nil
	}
}

func handleSweep(deps WorkerDeps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		n, err := deps.Flow.SweepAbandoned(ctx, config.AppConfig.BookingExpiry)
		if err != nil {
			log.Printf("[Sweep] ❌ Sweep failed: %v", err)
			return err
		}
		if n > 0 {
			log.Printf("[Sweep] 🧹 Reset %d abandoned bookings", n)
		}
		return nil
	}
}
