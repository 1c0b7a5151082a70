package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"image-translator-backend/internal/imageutil"
	"image-translator-backend/internal/middleware"
	"image-translator-backend/internal/models"
	"image-translator-backend/internal/services"
)

type EraseHandler struct {
	svc Orchestrator
}

func NewEraseHandler(svc Orchestrator) *EraseHandler {
	return &EraseHandler{svc: svc}
}

// Erase godoc
// @Summary     Erase a region of a translated image
// @Description Charges one credit and starts an inpainting job. The region is either a list of rectangles or a base64 mask image (white = erase).
// @Description Sending the same jobId again returns the existing job without a second charge.
// @Tags        erase
// @Accept      json
// @Produce     json
// @Param       request body models.EraseRequest true "Erase request"
// @Success     202 {object} models.EraseSubmitResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     402 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /translate/erase [post]
func (h *EraseHandler) Erase(c *gin.Context) {
	var req models.EraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	in := services.SubmitEraseInput{
		RequestID: req.RequestID,
		JobID:     req.JobID,
		Region:    models.RegionMask{Rects: req.Region},
	}
	if req.MaskBase64 != "" {
		mask, err := imageutil.DecodeBase64(req.MaskBase64)
		if err != nil {
			respondError(c, err)
			return
		}
		in.Region = models.RegionMask{MaskImage: mask}
	}
	if req.ImageBase64 != "" {
		img, err := imageutil.DecodeBase64(req.ImageBase64)
		if err != nil {
			respondError(c, err)
			return
		}
		in.Image = img
	}
	h.submit(c, in)
}

// Inpaint godoc
// @Summary     Erase with an explicit image and mask
// @Description Canvas eraser form of /translate/erase: both image and mask are base64 encoded.
// @Tags        erase
// @Accept      json
// @Produce     json
// @Param       request body models.InpaintRequest true "Image and mask"
// @Success     202 {object} models.EraseSubmitResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     402 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /translate/iopaint [post]
func (h *EraseHandler) Inpaint(c *gin.Context) {
	var req models.InpaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	img, err := imageutil.DecodeBase64(req.Image)
	if err != nil {
		respondError(c, err)
		return
	}
	mask, err := imageutil.DecodeBase64(req.Mask)
	if err != nil {
		respondError(c, err)
		return
	}
	h.submit(c, services.SubmitEraseInput{
		RequestID: req.RequestID,
		JobID:     req.JobID,
		Region:    models.RegionMask{MaskImage: mask},
		Image:     img,
	})
}

func (h *EraseHandler) submit(c *gin.Context, in services.SubmitEraseInput) {
	in.AccountKey = middleware.AccountKey(c)
	job, err := h.svc.SubmitErase(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, models.EraseSubmitResponse{JobID: job.ID, Status: job.Status})
}

// Status godoc
// @Summary     Get an erase job
// @Tags        erase
// @Produce     json
// @Param       job_id path string true "Erase job ID"
// @Success     200 {object} models.EraseJob
// @Failure     404 {object} models.ErrorResponse
// @Router      /translate/erase/{job_id} [get]
func (h *EraseHandler) Status(c *gin.Context) {
	job, err := h.svc.PollErase(c.Request.Context(), middleware.AccountKey(c), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// UploadInpaintImage godoc
// @Summary     Store a client-side erase result
// @Description Saves a new revision of the image for an erase job. Earlier revisions stay readable.
// @Tags        erase
// @Accept      json
// @Produce     json
// @Param       request body models.UploadInpaintImageRequest true "Job and image"
// @Success     200 {object} models.Envelope{Data=models.FileRefResponse}
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /translate/uploadIoInpaintImage [post]
func (h *EraseHandler) UploadInpaintImage(c *gin.Context) {
	var req models.UploadInpaintImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	data, err := imageutil.DecodeBase64(req.ImageData)
	if err != nil {
		respondError(c, err)
		return
	}
	stored, err := h.svc.StoreEraseResult(c.Request.Context(), middleware.AccountKey(c), req.JobID, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadedEnvelope(stored))
}

// UploadExportedImage godoc
// @Summary     Store a final exported image
// @Description Saves the composed image and records it on the session. Exports survive a session reset.
// @Tags        erase
// @Accept      json
// @Produce     json
// @Param       request body models.UploadExportedImageRequest true "Session and image"
// @Success     200 {object} models.Envelope{Data=models.FileRefResponse}
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /translate/uploadExportedImage [post]
func (h *EraseHandler) UploadExportedImage(c *gin.Context) {
	var req models.UploadExportedImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	data, err := imageutil.DecodeBase64(req.ImageBase64)
	if err != nil {
		respondError(c, err)
		return
	}
	stored, err := h.svc.StoreExport(c.Request.Context(), req.SessionID, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadedEnvelope(stored))
}

func uploadedEnvelope(stored *models.StoredFile) models.Envelope {
	return models.Envelope{
		Code:    http.StatusOK,
		Message: "success",
		Data:    models.FileRefResponse{URL: fileURL(stored.Ref), FileRef: stored.Ref},
	}
}
