package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type FilesHandler struct {
	svc Orchestrator
}

func NewFilesHandler(svc Orchestrator) *FilesHandler {
	return &FilesHandler{svc: svc}
}

// Get godoc
// @Summary     Read a stored file
// @Description Streams an original upload, erase result or export by its file ref.
// @Tags        files
// @Produce     image/png
// @Produce     image/jpeg
// @Produce     image/webp
// @Param       ref path string true "File ref, e.g. export/2024-05-01/<owner>/<id>.png"
// @Success     200 {file} binary
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /files/{ref} [get]
func (h *FilesHandler) Get(c *gin.Context) {
	ref := strings.TrimPrefix(c.Param("ref"), "/")
	data, file, err := h.svc.GetFile(c.Request.Context(), ref)
	if err != nil {
		respondError(c, err)
		return
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if file.Checksum != "" {
		c.Header("ETag", `"`+file.Checksum+`"`)
	}
	// Stored files are immutable.
	c.Header("Cache-Control", "private, max-age=31536000, immutable")
	c.Data(http.StatusOK, contentType, data)
}
