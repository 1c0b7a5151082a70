package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"image-translator-backend/internal/config"
	"image-translator-backend/internal/ledger"
	"image-translator-backend/internal/middleware"
	"image-translator-backend/internal/sessions"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Config   *config.Config
	Service  Orchestrator
	Sessions *sessions.Store
	Ledger   ledger.Ledger
	Log      logrus.FieldLogger
}

// NewRouter wires every route onto a new gin engine.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 32 << 20

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Log))
	router.Use(gin.Recovery())

	// Health check (no auth)
	router.GET("/health", HealthHandler(deps.Service))

	translateHandler := NewTranslateHandler(deps.Service)
	eraseHandler := NewEraseHandler(deps.Service)
	sessionsHandler := NewSessionsHandler(deps.Sessions)
	filesHandler := NewFilesHandler(deps.Service)
	creditsHandler := NewCreditsHandler(deps.Ledger)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(deps.Config))

	// Translation
	api.POST("/translate/upload", translateHandler.Upload)
	api.POST("/translate/url", translateHandler.URL)
	api.POST("/translate/base64", translateHandler.Base64)
	api.GET("/translate/result/:request_id", translateHandler.Result)

	// Erase
	api.POST("/translate/erase", eraseHandler.Erase)
	api.POST("/translate/iopaint", eraseHandler.Inpaint)
	api.GET("/translate/erase/:job_id", eraseHandler.Status)
	api.POST("/translate/uploadIoInpaintImage", eraseHandler.UploadInpaintImage)
	api.POST("/translate/uploadExportedImage", eraseHandler.UploadExportedImage)

	// Canvas sessions
	api.POST("/translate/save", sessionsHandler.Save)
	api.POST("/sessions", sessionsHandler.Create)
	api.GET("/sessions/:id", sessionsHandler.Get)
	api.PUT("/sessions/:id", sessionsHandler.Save)
	api.POST("/sessions/:id/operations", sessionsHandler.Push)
	api.POST("/sessions/:id/undo", sessionsHandler.Undo)
	api.POST("/sessions/:id/redo", sessionsHandler.Redo)
	api.POST("/sessions/:id/reset", sessionsHandler.Reset)

	api.GET("/files/*ref", filesHandler.Get)
	api.GET("/credits", creditsHandler.Get)
	api.GET("/features", FeaturesHandler(deps.Config.UI))

	return router
}
