package handlers

import (
	"net/http"

	"bookflow/services/payment"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
)

type createCheckoutRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
	ReturnURL string `json:"returnUrl" binding:"required,url"`
}

// CreateCheckout creates a hosted checkout session for a booking and moves
// it into PAYMENT_PENDING.
func CreateCheckout(svc payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}

		sess, err := svc.CreateCheckout(c.Request.Context(), req.BookingID, req.ReturnURL)
		if err != nil {
			respondFlowError(c, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

// CheckoutStatus polls the provider for a checkout session's status.
func CheckoutStatus(svc payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Query("sessionId")
		if sessionID == "" {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", "sessionId is required")
			return
		}

		status, err := svc.CheckoutStatus(c.Request.Context(), sessionID)
		if err != nil {
			utils.JSONError(c, http.StatusBadGateway, "status check failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
