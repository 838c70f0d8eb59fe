package handlers

import (
	"errors"
	"io"
	"net/http"

	"bookflow/config"
	"bookflow/services/payment"
	"bookflow/services/scheduling"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
)

// Webhook bodies are small; cap reads to keep a hostile sender from
// streaming at us.
const maxWebhookBody = 1 << 20

// SchedulingWebhook verifies and ingests a scheduling-provider webhook.
// After the signature check it always answers 200: failed processing goes
// through the internal retry ladder, never back to the provider.
func SchedulingWebhook(svc scheduling.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "unreadable body", err.Error())
			return
		}

		sig := c.GetHeader("Calendly-Webhook-Signature")
		if err := scheduling.VerifySignature(body, sig, config.AppConfig.SchedulingWebhookKey); err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "signature verification failed", "")
			return
		}

		if err := svc.HandleInbound(c.Request.Context(), body); err != nil {
			// HandleInbound swallows processing failures; anything surfacing
			// here is unexpected.
			utils.JSONError(c, http.StatusInternalServerError, "webhook intake failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

// PaymentWebhook verifies and applies a payment-provider webhook. Transient
// failures answer 503 so the provider redelivers.
func PaymentWebhook(svc payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "unreadable body", err.Error())
			return
		}

		err = svc.HandleWebhook(c.Request.Context(), body, c.GetHeader("Stripe-Signature"))
		if err != nil {
			if errors.Is(err, payment.ErrInvalidSignature) {
				utils.JSONError(c, http.StatusBadRequest, "signature verification failed", "")
				return
			}
			utils.JSONError(c, http.StatusServiceUnavailable, "webhook processing failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
