package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dmarkhas/loyaltycore/internal/server/http/dto"
)

// TierHandler manages tier evaluation endpoints.
type TierHandler struct {
	facade TierFacade
}

// NewTierHandler constructs TierHandler.
func NewTierHandler(facade TierFacade) *TierHandler {
	return &TierHandler{facade: facade}
}

// ApplySpend handles POST /api/members/:id/spend.
func (h *TierHandler) ApplySpend(c *gin.Context) {
	memberID := c.Param("id")
	var req dto.SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	spend, err := decimal.NewFromString(req.LifetimeSpend)
	if err != nil || spend.IsNegative() {
		c.Status(http.StatusBadRequest)
		return
	}

	member, err := h.facade.ApplySpend(c.Request.Context(), memberID, spend)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, dto.MemberTierResponse{
		MemberID:      member.ID,
		TierID:        member.TierID,
		LifetimeSpend: member.LifetimeSpend.String(),
	})
}

// SetTier handles POST /api/members/:id/tier.
func (h *TierHandler) SetTier(c *gin.Context) {
	memberID := c.Param("id")
	var req dto.SetTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	record, err := h.facade.SetMemberTier(c.Request.Context(), memberID, req.TierID)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, dto.TierChangeResponse{
		OldTierID: record.OldTierID,
		NewTierID: record.NewTierID,
		Reason:    string(record.Reason),
		ChangedAt: record.ChangedAt,
	})
}

// CurrentTier handles GET /api/members/:id/tier.
func (h *TierHandler) CurrentTier(c *gin.Context) {
	memberID := c.Param("id")
	tier, member, err := h.facade.MemberTier(c.Request.Context(), memberID)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, dto.MemberTierResponse{
		MemberID:      member.ID,
		TierID:        tier.ID,
		TierName:      tier.Name,
		Rank:          tier.Rank,
		LifetimeSpend: member.LifetimeSpend.String(),
	})
}

// History handles GET /api/members/:id/tier/history.
func (h *TierHandler) History(c *gin.Context) {
	memberID := c.Param("id")
	records, err := h.facade.TierHistory(c.Request.Context(), memberID)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	if len(records) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	resp := make([]dto.TierChangeResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, dto.TierChangeResponse{
			OldTierID: record.OldTierID,
			NewTierID: record.NewTierID,
			Reason:    string(record.Reason),
			ChangedAt: record.ChangedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Ladder handles GET /api/tiers.
func (h *TierHandler) Ladder(c *gin.Context) {
	tiers := h.facade.Ladder()
	resp := make([]dto.TierResponse, 0, len(tiers))
	for _, tier := range tiers {
		resp = append(resp, tierResponse(tier))
	}
	c.JSON(http.StatusOK, resp)
}
