package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"image-translator-backend/internal/ledger"
	"image-translator-backend/internal/middleware"
	"image-translator-backend/internal/models"
)

type CreditsHandler struct {
	ledger ledger.Ledger
}

func NewCreditsHandler(l ledger.Ledger) *CreditsHandler {
	return &CreditsHandler{ledger: l}
}

// Get godoc
// @Summary     Get the caller's credits
// @Description Balance, credits currently held by running erase jobs and the committed history.
// @Tags        credits
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.CreditsResponse
// @Router      /credits [get]
func (h *CreditsHandler) Get(c *gin.Context) {
	acc, err := h.ledger.Balance(c.Request.Context(), middleware.AccountKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	history := acc.History
	if history == nil {
		history = []models.LedgerEntry{}
	}
	c.JSON(http.StatusOK, models.CreditsResponse{
		AccountKey: acc.AccountKey,
		Balance:    acc.Balance,
		Held:       acc.Held,
		History:    history,
	})
}
