package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"tip-chain.backend/internal/domain/entities"
	"tip-chain.backend/internal/interfaces/http/response"
	"tip-chain.backend/internal/usecases"
	"tip-chain.backend/pkg/utils"
)

type creatorQueries interface {
	GetCreator(ctx context.Context, address string) (*entities.CreatorProfile, error)
	Leaderboard(ctx context.Context, limit int) ([]*entities.CreatorProfile, error)
	Stats(ctx context.Context) (*entities.TipStats, error)
	RecentTips(ctx context.Context, limit int) ([]*entities.Tip, error)
	TipsForCreator(ctx context.Context, address string) ([]*entities.Tip, error)
}

// CreatorHandler serves the read projections
type CreatorHandler struct {
	queries creatorQueries
}

func NewCreatorHandler(queries creatorQueries) *CreatorHandler {
	return &CreatorHandler{queries: queries}
}

// GetCreator GET /api/v1/creators/:address
func (h *CreatorHandler) GetCreator(c *gin.Context) {
	creator, err := h.queries.GetCreator(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true, "creator": creator})
}

// GetCreatorTips GET /api/v1/creators/:address/tips
func (h *CreatorHandler) GetCreatorTips(c *gin.Context) {
	tips, err := h.queries.TipsForCreator(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true, "tips": tips})
}

// Leaderboard GET /api/v1/leaderboard?limit=
func (h *CreatorHandler) Leaderboard(c *gin.Context) {
	limit := utils.ClampLimit(c.Query("limit"), usecases.DefaultListLimit, usecases.MaxListLimit)
	creators, err := h.queries.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true, "creators": creators})
}

// Stats GET /api/v1/stats
func (h *CreatorHandler) Stats(c *gin.Context) {
	stats, err := h.queries.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true, "stats": stats})
}

// RecentTips GET /api/v1/tips?limit=
func (h *CreatorHandler) RecentTips(c *gin.Context) {
	limit := utils.ClampLimit(c.Query("limit"), usecases.DefaultListLimit, usecases.MaxListLimit)
	tips, err := h.queries.RecentTips(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true, "tips": tips})
}
