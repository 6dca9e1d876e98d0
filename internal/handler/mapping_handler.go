package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
	"github.com/noah-isme/counseling-api/pkg/response"
)

type mappingService interface {
	Create(ctx context.Context, req dto.CreateMappingRequest, actor models.Actor) (*models.Mapping, error)
	Get(ctx context.Context, id string) (*models.Mapping, error)
	List(ctx context.Context, filter models.MappingFilter) ([]models.MappingDetail, *models.Pagination, error)
	ConfirmDeposit(ctx context.Context, id string, req dto.ConfirmDepositRequest, actor models.Actor) (*models.Mapping, error)
	ApprovePayment(ctx context.Context, id string, req dto.ApprovePaymentRequest, actor models.Actor) (*models.Mapping, error)
	RejectPayment(ctx context.Context, id string, req dto.RejectPaymentRequest, actor models.Actor) (*models.Mapping, error)
	Transfer(ctx context.Context, id string, req dto.TransferMappingRequest, actor models.Actor) (*models.Mapping, error)
}

// MappingHandler exposes REST endpoints for the entitlement ledger.
type MappingHandler struct {
	service mappingService
}

// NewMappingHandler constructs the handler.
func NewMappingHandler(service mappingService) *MappingHandler {
	return &MappingHandler{service: service}
}

// Create godoc
// @Summary Create a consultant-client mapping
// @Tags Mappings
// @Accept json
// @Produce json
// @Param payload body dto.CreateMappingRequest true "Mapping payload"
// @Success 201 {object} response.Envelope
// @Router /mappings [post]
func (h *MappingHandler) Create(c *gin.Context) {
	var req dto.CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid mapping payload"))
		return
	}
	mapping, err := h.service.Create(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mapping)
}

// Get godoc
// @Summary Get one mapping
// @Tags Mappings
// @Produce json
// @Param id path string true "Mapping ID"
// @Success 200 {object} response.Envelope
// @Router /mappings/{id} [get]
func (h *MappingHandler) Get(c *gin.Context) {
	mapping, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping, nil)
}

// List godoc
// @Summary List mappings
// @Tags Mappings
// @Produce json
// @Param consultant_id query string false "Filter by consultant"
// @Param client_id query string false "Filter by client"
// @Param branch_code query string false "Filter by branch"
// @Param status query string false "Filter by mapping status"
// @Param payment_status query string false "Filter by payment status"
// @Success 200 {object} response.Envelope
// @Router /mappings [get]
func (h *MappingHandler) List(c *gin.Context) {
	filter := models.MappingFilter{
		ConsultantID: c.Query("consultant_id"),
		ClientID:     c.Query("client_id"),
		BranchCode:   c.Query("branch_code"),
		Status:       models.MappingStatus(c.Query("status")),
		PayStatus:    models.PaymentStatus(c.Query("payment_status")),
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = paginationParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ConfirmDeposit godoc
// @Summary Confirm the client's deposit
// @Tags Mappings
// @Accept json
// @Produce json
// @Param id path string true "Mapping ID"
// @Param payload body dto.ConfirmDepositRequest true "Deposit payload"
// @Success 200 {object} response.Envelope
// @Router /mappings/{id}/deposit [post]
func (h *MappingHandler) ConfirmDeposit(c *gin.Context) {
	var req dto.ConfirmDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid deposit payload"))
		return
	}
	mapping, err := h.service.ConfirmDeposit(c.Request.Context(), c.Param("id"), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping, nil)
}

// Approve godoc
// @Summary Approve the payment and activate the mapping
// @Tags Mappings
// @Accept json
// @Produce json
// @Param id path string true "Mapping ID"
// @Success 200 {object} response.Envelope
// @Router /mappings/{id}/approve [post]
func (h *MappingHandler) Approve(c *gin.Context) {
	var req dto.ApprovePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
		return
	}
	mapping, err := h.service.ApprovePayment(c.Request.Context(), c.Param("id"), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping, nil)
}

// Reject godoc
// @Summary Reject a pending payment
// @Tags Mappings
// @Accept json
// @Produce json
// @Param id path string true "Mapping ID"
// @Param payload body dto.RejectPaymentRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /mappings/{id}/reject [post]
func (h *MappingHandler) Reject(c *gin.Context) {
	var req dto.RejectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	mapping, err := h.service.RejectPayment(c.Request.Context(), c.Param("id"), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping, nil)
}

// Transfer godoc
// @Summary Transfer the mapping to another consultant
// @Tags Mappings
// @Accept json
// @Produce json
// @Param id path string true "Mapping ID"
// @Param payload body dto.TransferMappingRequest true "Transfer payload"
// @Success 200 {object} response.Envelope
// @Router /mappings/{id}/transfer [post]
func (h *MappingHandler) Transfer(c *gin.Context) {
	var req dto.TransferMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transfer payload"))
		return
	}
	mapping, err := h.service.Transfer(c.Request.Context(), c.Param("id"), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping, nil)
}

// paginationParams reads page/page_size query params with defaults.
func paginationParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || size < 1 || size > 100 {
		size = 20
	}
	return page, size
}
