package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmarkhas/loyaltycore/internal/server/http/dto"
)

// PointsHandler manages point ledger endpoints.
type PointsHandler struct {
	facade PointsFacade
}

// NewPointsHandler constructs PointsHandler.
func NewPointsHandler(facade PointsFacade) *PointsHandler {
	return &PointsHandler{facade: facade}
}

// Earn handles POST /api/members/:id/earn.
func (h *PointsHandler) Earn(c *gin.Context) {
	memberID := c.Param("id")
	var req dto.EarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	tx, err := h.facade.EarnPoints(c.Request.Context(), memberID, req.Points, req.ExpiresAt, req.Reference)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, transactionResponse(tx))
}

// Use handles POST /api/members/:id/use.
func (h *PointsHandler) Use(c *gin.Context) {
	memberID := c.Param("id")
	var req dto.UseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	tx, err := h.facade.UsePoints(c.Request.Context(), memberID, req.Points, req.Reference)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, transactionResponse(tx))
}

// Adjust handles POST /api/members/:id/adjust.
func (h *PointsHandler) Adjust(c *gin.Context) {
	memberID := c.Param("id")
	var req dto.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	tx, err := h.facade.AdjustPoints(c.Request.Context(), memberID, req.Delta, req.Reason)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, transactionResponse(tx))
}

// Balance handles GET /api/members/:id/balance.
func (h *PointsHandler) Balance(c *gin.Context) {
	memberID := c.Param("id")
	balance, err := h.facade.Balance(c.Request.Context(), memberID)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{MemberID: memberID, Balance: balance})
}

// Batches handles GET /api/members/:id/batches.
func (h *PointsHandler) Batches(c *gin.Context) {
	memberID := c.Param("id")
	batches, err := h.facade.ActiveBatches(c.Request.Context(), memberID)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	if len(batches) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	resp := make([]dto.BatchResponse, 0, len(batches))
	for _, batch := range batches {
		resp = append(resp, batchResponse(batch))
	}
	c.JSON(http.StatusOK, resp)
}

// Transactions handles GET /api/members/:id/transactions.
func (h *PointsHandler) Transactions(c *gin.Context) {
	memberID := c.Param("id")
	txs, err := h.facade.Transactions(c.Request.Context(), memberID)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	if len(txs) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	resp := make([]dto.TransactionResponse, 0, len(txs))
	for i := range txs {
		resp = append(resp, transactionResponse(&txs[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// ReleaseHold handles POST /api/members/:id/hold/release.
func (h *PointsHandler) ReleaseHold(c *gin.Context) {
	memberID := c.Param("id")
	if err := h.facade.ReleaseHold(c.Request.Context(), memberID); err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.Status(http.StatusOK)
}
