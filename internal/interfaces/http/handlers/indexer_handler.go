package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/interfaces/http/response"
)

type eventReconciler interface {
	HandleNotification(ctx context.Context, event string, data json.RawMessage) (*entities.ReconcileResult, error)
	SyncProfile(ctx context.Context, address string) (*entities.CreatorProfile, error)
}

type syncRunner interface {
	Run(ctx context.Context, opts entities.SyncOptions) (*entities.SyncReport, error)
}

// IndexerHandler exposes the write side: relayed events and sync triggers
type IndexerHandler struct {
	reconciler eventReconciler
	runner     syncRunner
}

func NewIndexerHandler(reconciler eventReconciler, runner syncRunner) *IndexerHandler {
	return &IndexerHandler{reconciler: reconciler, runner: runner}
}

// HandleEvent reconciles one relayed contract event
// POST /api/v1/indexer/events
func (h *IndexerHandler) HandleEvent(c *gin.Context) {
	var input struct {
		Event string          `json:"event" binding:"required"`
		Data  json.RawMessage `json:"data"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	result, err := h.reconciler.HandleNotification(c.Request.Context(), input.Event, input.Data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true, "result": result})
}

// TriggerSync runs one bulk sync and returns its report
// POST /api/v1/indexer/sync?full=true
func (h *IndexerHandler) TriggerSync(c *gin.Context) {
	var opts entities.SyncOptions
	if raw := c.Query("full"); raw != "" {
		full, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, domainerrors.BadRequest("full must be a boolean"))
			return
		}
		opts.Full = full
	}

	report, err := h.runner.Run(c.Request.Context(), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"success":  true,
		"repaired": report.Repaired,
		"report":   report,
	})
}

// SyncProfile reconciles a single creator from the chain
// POST /api/v1/indexer/profiles/:address/sync
func (h *IndexerHandler) SyncProfile(c *gin.Context) {
	profile, err := h.reconciler.SyncProfile(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true, "profile": profile})
}
