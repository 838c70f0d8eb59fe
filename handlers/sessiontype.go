package handlers

import (
	"net/http"

	sessiontypeRepo "bookflow/database/repository/sessiontype"
	"bookflow/models"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
)

// ListSessionTypes returns the bookable offerings of a builder, for the
// session-selection step of the flow.
func ListSessionTypes(repo sessiontypeRepo.SessionTypeRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		builderID := c.Query("builderId")
		if builderID == "" {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", "builderId query parameter is required")
			return
		}

		types, err := repo.ListByBuilder(c.Request.Context(), builderID)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "failed to list session types", err.Error())
			return
		}
		if types == nil {
			types = []models.SessionType{}
		}
		c.JSON(http.StatusOK, gin.H{"sessionTypes": types})
	}
}
