package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"image-translator-backend/internal/models"
)

// HealthHandler godoc
// @Summary     Health check
// @Description Returns 503 once the upstream image service has rejected our credentials.
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Failure     503 {object} models.HealthResponse
// @Router      /health [get]
func HealthHandler(svc Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Healthy(); err != nil {
			c.JSON(http.StatusServiceUnavailable, models.HealthResponse{Status: "unhealthy", Reason: err.Error()})
			return
		}
		c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
	}
}
