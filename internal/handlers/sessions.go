package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"image-translator-backend/internal/models"
	"image-translator-backend/internal/sessions"
)

type SessionsHandler struct {
	store *sessions.Store
}

func NewSessionsHandler(store *sessions.Store) *SessionsHandler {
	return &SessionsHandler{store: store}
}

// Create godoc
// @Summary     Start a canvas session
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       request body models.CreateSessionRequest true "Base image"
// @Success     201 {object} models.CanvasSession
// @Failure     400 {object} models.ErrorResponse
// @Router      /sessions [post]
func (h *SessionsHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	sess, err := h.store.Create(c.Request.Context(), req.BaseImageRef, req.RequestID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// Get godoc
// @Summary     Get a canvas session
// @Tags        sessions
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     200 {object} models.CanvasSession
// @Failure     404 {object} models.ErrorResponse
// @Router      /sessions/{id} [get]
func (h *SessionsHandler) Get(c *gin.Context) {
	sess, err := h.store.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Save godoc
// @Summary     Save a session's layer stack
// @Description Replaces the layer stack with the given operations. Saving the same operations twice is a no-op.
// @Description The session id comes from the path, or from the body on POST /translate/save.
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       id path string false "Session ID"
// @Param       request body models.SaveSessionRequest true "Operations"
// @Success     200 {object} models.SaveResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /sessions/{id} [put]
// @Router      /translate/save [post]
func (h *SessionsHandler) Save(c *gin.Context) {
	var req models.SaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	id := c.Param("id")
	if id == "" {
		id = req.SessionID
	}
	if id == "" {
		badRequest(c, "sessionId is required", nil)
		return
	}

	sess, err := h.store.Save(c.Request.Context(), id, req.Operations)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SaveResponse{
		SessionID:   sess.ID,
		UndoPointer: sess.UndoPointer,
		Length:      len(sess.LayerStack),
		UpdatedAt:   sess.UpdatedAt,
	})
}

// Push godoc
// @Summary     Apply one operation
// @Description Appends the operation and discards anything that could have been redone. A reset operation clears the stack.
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       id path string true "Session ID"
// @Param       request body models.Operation true "Operation"
// @Success     200 {object} models.CanvasSession
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /sessions/{id}/operations [post]
func (h *SessionsHandler) Push(c *gin.Context) {
	var op models.Operation
	if err := c.ShouldBindJSON(&op); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	sess, err := h.store.Push(c.Request.Context(), c.Param("id"), op)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Undo godoc
// @Summary     Undo the last operation
// @Tags        sessions
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     200 {object} models.CanvasSession
// @Failure     404 {object} models.ErrorResponse
// @Router      /sessions/{id}/undo [post]
func (h *SessionsHandler) Undo(c *gin.Context) {
	h.respond(c, h.store.Undo)
}

// Redo godoc
// @Summary     Redo an undone operation
// @Tags        sessions
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     200 {object} models.CanvasSession
// @Failure     404 {object} models.ErrorResponse
// @Router      /sessions/{id}/redo [post]
func (h *SessionsHandler) Redo(c *gin.Context) {
	h.respond(c, h.store.Redo)
}

// Reset godoc
// @Summary     Clear the layer stack
// @Description Exports stay recorded on the session.
// @Tags        sessions
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     200 {object} models.CanvasSession
// @Failure     404 {object} models.ErrorResponse
// @Router      /sessions/{id}/reset [post]
func (h *SessionsHandler) Reset(c *gin.Context) {
	h.respond(c, h.store.Reset)
}

func (h *SessionsHandler) respond(c *gin.Context, step func(ctx context.Context, id string) (*models.CanvasSession, error)) {
	sess, err := step(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
