package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"image-translator-backend/internal/config"
)

// FeaturesHandler godoc
// @Summary     UI feature flags
// @Description Which canvas controls the client should show. Read-only.
// @Tags        features
// @Produce     json
// @Success     200 {object} config.UIFeatures
// @Router      /features [get]
func FeaturesHandler(features config.UIFeatures) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, features)
	}
}
