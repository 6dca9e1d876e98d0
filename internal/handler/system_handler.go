package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/pkg/response"
)

type sweeperRunner interface {
	RunOnce(ctx context.Context) (service.SweepResult, error)
}

// SystemHandler exposes operational endpoints: metrics snapshot and an
// on-demand sweeper run.
type SystemHandler struct {
	metrics *service.MetricsService
	sweeper sweeperRunner
}

// NewSystemHandler constructs the handler.
func NewSystemHandler(metrics *service.MetricsService, sweeper sweeperRunner) *SystemHandler {
	return &SystemHandler{metrics: metrics, sweeper: sweeper}
}

// Snapshot godoc
// @Summary Aggregated system metrics
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /system/metrics [get]
func (h *SystemHandler) Snapshot(c *gin.Context) {
	var snapshot models.SystemMetrics
	if h.metrics != nil {
		snapshot = h.metrics.Snapshot()
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// RunSweep godoc
// @Summary Run the completion sweeper immediately
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /system/sweep [post]
func (h *SystemHandler) RunSweep(c *gin.Context) {
	result, err := h.sweeper.RunOnce(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
