package handlers

import (
	"errors"
	"net/http"

	bookingRepo "bookflow/database/repository/booking"
	"bookflow/models"
	"bookflow/services/flow"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
)

// ResumeFlow rebuilds the client flow snapshot from the authoritative
// record, reconciling any payment left in flight by a redirect.
func ResumeFlow(svc flow.CoordinatorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params models.FlowParams
		if err := c.ShouldBindQuery(&params); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}

		snap, err := svc.Resume(c.Request.Context(), params)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrRecoveryTokenInvalid):
				utils.JSONError(c, http.StatusUnauthorized, "recovery token invalid or expired", "")
			case errors.Is(err, bookingRepo.ErrNotFound):
				utils.JSONError(c, http.StatusNotFound, "booking not found", "")
			default:
				utils.JSONError(c, http.StatusInternalServerError, "resume failed", err.Error())
			}
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}
