package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookflow/config"
	"bookflow/cron"
	"bookflow/database"
	bookingRepoPkg "bookflow/database/repository/booking"
	deadletterRepoPkg "bookflow/database/repository/deadletter"
	sessiontypeRepoPkg "bookflow/database/repository/sessiontype"
	"bookflow/handlers"
	"bookflow/routes"
	"bookflow/services/booking"
	"bookflow/services/flow"
	"bookflow/services/notification"
	"bookflow/services/payment"
	"bookflow/services/scheduling"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitFlowCache()
	utils.InitDedupCache()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	sessionTypeRepo := sessiontypeRepoPkg.NewMongoSessionTypeRepo()
	deadLetterRepo := deadletterRepoPkg.NewMongoDeadLetterRepo()

	// task queue.
	queue := cron.NewQueue(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer queue.Close()

	// services. The payment adapter and the flow service need each other:
	// the adapter is the flow's checkout gateway, the flow drives the
	// adapter's webhook transitions. Construct the adapter first and close
	// the loop after the flow service exists.
	dedup := utils.NewRedisDeduper(utils.GetDedupClient())
	paymentService := payment.NewPaymentService(dedup, config.AppConfig.StripeWebhookSecret, logger)

	flowService := booking.NewFlowService(bookingRepo, sessionTypeRepo, paymentService, queue, logger)
	paymentService.Flow = flowService

	schedulingClient := scheduling.NewAPIClient(config.AppConfig.SchedulingAPIToken, logger)
	schedulingService := scheduling.NewService(flowService, dedup, queue, schedulingClient, logger)

	coordinator := flow.NewCoordinatorService(flowService, paymentService, utils.GetFlowCacheClient(), logger)
	notifier := notification.NewLogNotifier(logger)

	// background worker.
	cron.InitWorker(cron.WorkerDeps{
		Flow:        flowService,
		Scheduling:  schedulingService,
		Payments:    paymentService,
		Notifier:    notifier,
		DeadLetters: deadLetterRepo,
	})

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		InitializeBooking: handlers.InitializeBooking(flowService),
		ApplyTransition:   handlers.ApplyTransition(flowService),
		GetBooking:        handlers.GetBooking(flowService),
		ResumeFlow:        handlers.ResumeFlow(coordinator),
		ListSessionTypes:  handlers.ListSessionTypes(sessionTypeRepo),

		CreateCheckout: handlers.CreateCheckout(paymentService),
		CheckoutStatus: handlers.CheckoutStatus(paymentService),

		SchedulingWebhook: handlers.SchedulingWebhook(schedulingService),
		PaymentWebhook:    handlers.PaymentWebhook(paymentService),

		ListDeadLetters: handlers.ListDeadLetters(deadLetterRepo),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
