package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"image-translator-backend/internal/models"
	"image-translator-backend/internal/services"
)

// Orchestrator is what the HTTP layer needs from services.Orchestrator.
type Orchestrator interface {
	SubmitTranslation(ctx context.Context, in services.SubmitTranslationInput) (*models.TranslationRequest, error)
	PollTranslation(ctx context.Context, accountKey, id string) (*models.TranslationRequest, error)
	SubmitErase(ctx context.Context, in services.SubmitEraseInput) (*models.EraseJob, error)
	PollErase(ctx context.Context, accountKey, id string) (*models.EraseJob, error)
	StoreEraseResult(ctx context.Context, accountKey, jobID string, data []byte) (*models.StoredFile, error)
	StoreExport(ctx context.Context, sessionID string, data []byte) (*models.StoredFile, error)
	GetFile(ctx context.Context, ref string) ([]byte, *models.StoredFile, error)
	Healthy() error
}

var _ Orchestrator = (*services.Orchestrator)(nil)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrAuth):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrUpstreamSubmit),
		errors.Is(err, models.ErrUpstreamTransient),
		errors.Is(err, models.ErrUpstreamBusiness),
		errors.Is(err, models.ErrMalformedResponse),
		errors.Is(err, models.ErrRateLimited):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	resp := models.ErrorResponse{Error: http.StatusText(status), Message: err.Error()}
	if kind := models.ErrorKind(err); kind != "" {
		resp.Error = kind
	}
	if status == http.StatusInternalServerError {
		resp.Message = "internal error"
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string, err error) {
	resp := models.ErrorResponse{Error: msg}
	if err != nil {
		resp.Message = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

func fileURL(ref string) string {
	return "/api/files/" + ref
}
