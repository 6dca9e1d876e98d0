package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
	"github.com/noah-isme/counseling-api/pkg/response"
)

type extensionService interface {
	Create(ctx context.Context, req dto.CreateExtensionRequest, actor models.Actor) (*models.SessionExtensionRequest, error)
	Get(ctx context.Context, id string) (*models.SessionExtensionRequest, error)
	ConfirmDeposit(ctx context.Context, id string, actor models.Actor) (*models.SessionExtensionRequest, error)
	Approve(ctx context.Context, id string, req dto.ReviewExtensionRequest, actor models.Actor) (*models.SessionExtensionRequest, error)
	Reject(ctx context.Context, id string, req dto.ReviewExtensionRequest, actor models.Actor) (*models.SessionExtensionRequest, error)
	List(ctx context.Context, filter models.ExtensionFilter) ([]models.SessionExtensionRequest, *models.Pagination, error)
	Statistics(ctx context.Context) (*models.ExtensionStatistics, error)
}

// ExtensionHandler exposes REST endpoints for session extensions.
type ExtensionHandler struct {
	service extensionService
}

// NewExtensionHandler constructs the handler.
func NewExtensionHandler(service extensionService) *ExtensionHandler {
	return &ExtensionHandler{service: service}
}

// Create godoc
// @Summary Request additional sessions
// @Tags Extensions
// @Accept json
// @Produce json
// @Param payload body dto.CreateExtensionRequest true "Extension payload"
// @Success 201 {object} response.Envelope
// @Router /extensions [post]
func (h *ExtensionHandler) Create(c *gin.Context) {
	var req dto.CreateExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid extension payload"))
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Get godoc
// @Summary Get one extension request
// @Tags Extensions
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /extensions/{id} [get]
func (h *ExtensionHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// ConfirmDeposit godoc
// @Summary Confirm the extension deposit
// @Tags Extensions
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /extensions/{id}/deposit [post]
func (h *ExtensionHandler) ConfirmDeposit(c *gin.Context) {
	request, err := h.service.ConfirmDeposit(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Approve godoc
// @Summary Approve an extension and credit the mapping
// @Tags Extensions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /extensions/{id}/approve [post]
func (h *ExtensionHandler) Approve(c *gin.Context) {
	var req dto.ReviewExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	request, err := h.service.Approve(c.Request.Context(), c.Param("id"), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject an extension request
// @Tags Extensions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewExtensionRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /extensions/{id}/reject [post]
func (h *ExtensionHandler) Reject(c *gin.Context) {
	var req dto.ReviewExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	request, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// List godoc
// @Summary List extension requests
// @Tags Extensions
// @Produce json
// @Param mapping_id query string false "Filter by mapping"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /extensions [get]
func (h *ExtensionHandler) List(c *gin.Context) {
	filter := models.ExtensionFilter{
		MappingID:   c.Query("mapping_id"),
		RequesterID: c.Query("requester_id"),
		Status:      models.ExtensionStatus(c.Query("status")),
	}
	filter.Page, filter.PageSize = paginationParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Statistics godoc
// @Summary Aggregate extension requests by status
// @Tags Extensions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /extensions/statistics [get]
func (h *ExtensionHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
