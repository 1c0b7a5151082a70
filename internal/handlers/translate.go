package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"image-translator-backend/internal/imageutil"
	"image-translator-backend/internal/middleware"
	"image-translator-backend/internal/models"
	"image-translator-backend/internal/services"
)

type TranslateHandler struct {
	svc Orchestrator
}

func NewTranslateHandler(svc Orchestrator) *TranslateHandler {
	return &TranslateHandler{svc: svc}
}

// Upload godoc
// @Summary     Translate an uploaded image
// @Description Stores the image and starts a detect+translate task. Poll the result endpoint with the returned requestId.
// @Tags        translate
// @Accept      multipart/form-data
// @Produce     json
// @Param       file formData file true "Image file"
// @Param       sourceLanguage formData string true "Source language code"
// @Param       targetLanguage formData string true "Target language code"
// @Success     202 {object} models.SubmitResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /translate/upload [post]
func (h *TranslateHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required", err)
		return
	}
	if fileHeader.Size > imageutil.MaxImageSize {
		badRequest(c, fmt.Sprintf("file exceeds %d bytes", imageutil.MaxImageSize), nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "failed to open file", err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, imageutil.MaxImageSize+1))
	if err != nil {
		badRequest(c, "failed to read file", err)
		return
	}
	if int64(len(data)) > imageutil.MaxImageSize {
		badRequest(c, fmt.Sprintf("file exceeds %d bytes", imageutil.MaxImageSize), nil)
		return
	}

	h.submit(c, services.SubmitTranslationInput{
		Image:          data,
		SourceLanguage: c.PostForm("sourceLanguage"),
		TargetLanguage: c.PostForm("targetLanguage"),
	})
}

// URL godoc
// @Summary     Translate an image by URL
// @Tags        translate
// @Accept      json
// @Produce     json
// @Param       request body models.URLTranslationRequest true "Image URL and languages"
// @Success     202 {object} models.SubmitResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /translate/url [post]
func (h *TranslateHandler) URL(c *gin.Context) {
	var req models.URLTranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	h.submit(c, services.SubmitTranslationInput{
		ImageURL:       strings.TrimSpace(req.ImageURL),
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	})
}

// Base64 godoc
// @Summary     Translate a base64 encoded image
// @Description Accepts raw base64 or a data: URL.
// @Tags        translate
// @Accept      json
// @Produce     json
// @Param       request body models.Base64TranslationRequest true "Image and languages"
// @Success     202 {object} models.SubmitResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /translate/base64 [post]
func (h *TranslateHandler) Base64(c *gin.Context) {
	var req models.Base64TranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	data, err := imageutil.DecodeBase64(req.ImageBase64)
	if err != nil {
		respondError(c, err)
		return
	}
	h.submit(c, services.SubmitTranslationInput{
		Image:          data,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	})
}

func (h *TranslateHandler) submit(c *gin.Context, in services.SubmitTranslationInput) {
	in.AccountKey = middleware.AccountKey(c)
	req, err := h.svc.SubmitTranslation(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, models.SubmitResponse{RequestID: req.ID, Status: req.Status})
}

// Result godoc
// @Summary     Get a translation result
// @Description Returns the request, refreshing it from upstream while it is not finished.
// @Tags        translate
// @Produce     json
// @Param       request_id path string true "Request ID"
// @Success     200 {object} models.TranslationRequest
// @Failure     404 {object} models.ErrorResponse
// @Router      /translate/result/{request_id} [get]
func (h *TranslateHandler) Result(c *gin.Context) {
	req, err := h.svc.PollTranslation(c.Request.Context(), middleware.AccountKey(c), c.Param("request_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
