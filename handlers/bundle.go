package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Booking endpoints
	InitializeBooking gin.HandlerFunc
	ApplyTransition   gin.HandlerFunc
	GetBooking        gin.HandlerFunc
	ResumeFlow        gin.HandlerFunc
	ListSessionTypes  gin.HandlerFunc

	// Payment endpoints
	CreateCheckout gin.HandlerFunc
	CheckoutStatus gin.HandlerFunc

	// Webhook endpoints
	SchedulingWebhook gin.HandlerFunc
	PaymentWebhook    gin.HandlerFunc

	// Admin endpoints
	ListDeadLetters gin.HandlerFunc
}
