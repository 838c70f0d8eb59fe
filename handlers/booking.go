package handlers

import (
	"errors"
	"net/http"

	bookingRepo "bookflow/database/repository/booking"
	"bookflow/models"
	"bookflow/services/booking"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
)

// transitionRequest is the body of the transition endpoint: the event name
// plus its event-specific data.
type transitionRequest struct {
	Event string                   `json:"event" binding:"required"`
	Data  models.TransitionPayload `json:"data"`
}

// InitializeBooking creates a booking and drives it to SESSION_TYPE_SELECTED.
func InitializeBooking(svc booking.FlowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req booking.InitializeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}

		b, token, err := svc.Initialize(c.Request.Context(), req)
		if err != nil {
			respondFlowError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"booking":       b,
			"recoveryToken": token,
		})
	}
}

// ApplyTransition applies one public event to a booking.
func ApplyTransition(svc booking.FlowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("id")

		var req transitionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}

		event := models.BookingEvent(req.Event)
		if !models.KnownEvent(event) || event.Internal() {
			utils.JSONError(c, http.StatusBadRequest, "unknown event", string(event))
			return
		}

		b, err := svc.Apply(c.Request.Context(), bookingID, event, req.Data)
		if err != nil {
			respondFlowError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// GetBooking returns the authoritative booking record.
func GetBooking(svc booking.FlowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondFlowError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// respondFlowError maps the transition error taxonomy onto HTTP statuses.
func respondFlowError(c *gin.Context, err error) {
	if errors.Is(err, bookingRepo.ErrNotFound) {
		utils.JSONError(c, http.StatusNotFound, "booking not found", "")
		return
	}

	terr, ok := booking.AsTransitionError(err)
	if !ok {
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		return
	}

	switch terr.Code {
	case booking.CodeMissingPrerequisite:
		utils.JSONError(c, http.StatusBadRequest, terr.Code, terr.Message)
	case booking.CodeConcurrencyConflict:
		c.JSON(http.StatusConflict, utils.ErrorResponse{
			Message:   terr.Code,
			Details:   terr.Message,
			Retryable: true,
		})
	case booking.CodeIllegalTransition, booking.CodeConflictingState:
		c.JSON(http.StatusConflict, utils.ErrorResponse{
			Message: terr.Code,
			Details: terr.Message,
		})
	case booking.CodeExternalProvider:
		utils.JSONError(c, http.StatusBadGateway, terr.Code, terr.Message)
	default:
		utils.JSONError(c, http.StatusInternalServerError, terr.Code, terr.Message)
	}
}
