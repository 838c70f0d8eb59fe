package handlers

import (
	"net/http"
	"strconv"

	deadletterRepo "bookflow/database/repository/deadletter"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
)

// ListDeadLetters returns webhooks that exhausted their retry budget, for
// manual inspection and replay.
func ListDeadLetters(repo deadletterRepo.DeadLetterRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := int64(50)
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 1 || parsed > 500 {
				utils.JSONError(c, http.StatusBadRequest, "invalid limit", raw)
				return
			}
			limit = parsed
		}

		letters, err := repo.List(c.Request.Context(), c.Query("source"), limit)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "failed to list dead letters", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"deadLetters": letters})
	}
}
