package routes

import (
	"net/http"
	"time"

	"bookflow/handlers"
	"bookflow/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes sets up the booking flow endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.RateLimitMiddleware())
		api.POST("/initialize", hb.InitializeBooking)
		// Resume is registered before the :id routes so "resume" is never
		// read as a booking id.
		api.GET("/resume", hb.ResumeFlow)
		api.POST("/:id/transition", hb.ApplyTransition)
		api.GET("/:id", hb.GetBooking)
	}
}

// RegisterSessionTypeRoutes sets up the offering catalog endpoints.
func RegisterSessionTypeRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/session-types")
	{
		api.Use(middleware.RateLimitMiddleware())
		api.GET("", hb.ListSessionTypes)
	}
}

// RegisterPaymentRoutes sets up the checkout endpoints.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/payments")
	{
		api.Use(middleware.RateLimitMiddleware())
		api.POST("/checkout/create", hb.CreateCheckout)
		api.GET("/checkout/status", hb.CheckoutStatus)
	}
}

// RegisterWebhookRoutes sets up provider webhook intake. No rate limiting:
// providers batch redeliveries and signature checks gate abuse.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/webhooks")
	{
		api.POST("/scheduling", hb.SchedulingWebhook)
		api.POST("/payment", hb.PaymentWebhook)
	}
}

// RegisterAdminRoutes sets up endpoints for operator inspection.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/admin")
	{
		api.Use(middleware.RateLimitMiddleware())
		api.GET("/dead-letters", hb.ListDeadLetters)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterBookingRoutes(r, hb)
	RegisterSessionTypeRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterWebhookRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
	RegisterHealthRoute(r)
}
