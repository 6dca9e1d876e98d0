package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
	"github.com/noah-isme/counseling-api/pkg/response"
)

type refundService interface {
	Quote(ctx context.Context, mappingID string, sessions int) (*dto.RefundQuote, error)
	Partial(ctx context.Context, mappingID string, req dto.PartialRefundRequest, actor models.Actor) (*models.RefundAudit, error)
	Terminate(ctx context.Context, mappingID string, req dto.TerminateMappingRequest, actor models.Actor) (*models.RefundAudit, error)
	History(ctx context.Context, filter models.RefundAuditFilter) ([]models.RefundAudit, *models.Pagination, error)
	Statement(ctx context.Context, auditID string) ([]byte, error)
}

// RefundHandler exposes REST endpoints for refunds and terminations.
type RefundHandler struct {
	service refundService
}

// NewRefundHandler constructs the handler.
func NewRefundHandler(service refundService) *RefundHandler {
	return &RefundHandler{service: service}
}

// Quote godoc
// @Summary Preview a partial refund amount
// @Tags Refunds
// @Produce json
// @Param id path string true "Mapping ID"
// @Param sessions query int true "Sessions to refund"
// @Success 200 {object} response.Envelope
// @Router /mappings/{id}/refunds/quote [get]
func (h *RefundHandler) Quote(c *gin.Context) {
	sessions, err := strconv.Atoi(c.Query("sessions"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sessions must be an integer"))
		return
	}
	quote, err := h.service.Quote(c.Request.Context(), c.Param("id"), sessions)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}

// Partial godoc
// @Summary Apply a partial refund
// @Tags Refunds
// @Accept json
// @Produce json
// @Param id path string true "Mapping ID"
// @Param payload body dto.PartialRefundRequest true "Refund payload"
// @Success 201 {object} response.Envelope
// @Router /mappings/{id}/refunds [post]
func (h *RefundHandler) Partial(c *gin.Context) {
	var req dto.PartialRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid refund payload"))
		return
	}
	audit, err := h.service.Partial(c.Request.Context(), c.Param("id"), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, audit)
}

// Terminate godoc
// @Summary Terminate a mapping with a full refund
// @Tags Refunds
// @Accept json
// @Produce json
// @Param id path string true "Mapping ID"
// @Param payload body dto.TerminateMappingRequest true "Termination payload"
// @Success 201 {object} response.Envelope
// @Router /mappings/{id}/terminate [post]
func (h *RefundHandler) Terminate(c *gin.Context) {
	var req dto.TerminateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid termination payload"))
		return
	}
	audit, err := h.service.Terminate(c.Request.Context(), c.Param("id"), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, audit)
}

// History godoc
// @Summary List refund audit records
// @Tags Refunds
// @Produce json
// @Param mapping_id query string false "Filter by mapping"
// @Param kind query string false "FULL or PARTIAL"
// @Success 200 {object} response.Envelope
// @Router /refunds [get]
func (h *RefundHandler) History(c *gin.Context) {
	filter := models.RefundAuditFilter{
		MappingID: c.Query("mapping_id"),
		Kind:      models.RefundKind(c.Query("kind")),
	}
	filter.Page, filter.PageSize = paginationParams(c)

	items, pagination, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Statement godoc
// @Summary Download the PDF statement for one refund
// @Tags Refunds
// @Produce application/pdf
// @Param id path string true "Refund audit ID"
// @Success 200 {file} binary
// @Router /refunds/{id}/statement [get]
func (h *RefundHandler) Statement(c *gin.Context) {
	pdf, err := h.service.Statement(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=refund-%s.pdf", c.Param("id")))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
