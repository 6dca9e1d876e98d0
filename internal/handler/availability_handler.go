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

type availabilityService interface {
	CreateSlot(ctx context.Context, req dto.CreateSlotRequest, actor models.Actor) (*models.AvailabilitySlot, error)
	UpdateSlot(ctx context.Context, id string, req dto.UpdateSlotRequest, actor models.Actor) (*models.AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, id string, actor models.Actor) error
	ListSlots(ctx context.Context, consultantID string) ([]models.AvailabilitySlot, error)
	CreateVacation(ctx context.Context, req dto.CreateVacationRequest, actor models.Actor) (*models.VacationException, error)
	DeleteVacation(ctx context.Context, id string, actor models.Actor) error
	ListVacations(ctx context.Context, consultantID, from, to string) ([]models.VacationException, error)
	ResolveDay(ctx context.Context, consultantID, date string) (*dto.DayAvailability, error)
}

// AvailabilityHandler exposes REST endpoints for the availability calendar.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// CreateSlot godoc
// @Summary Add a recurring weekly availability slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /availability/slots [post]
func (h *AvailabilityHandler) CreateSlot(c *gin.Context) {
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid slot payload"))
		return
	}
	slot, err := h.service.CreateSlot(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// UpdateSlot godoc
// @Summary Move a weekly availability slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.UpdateSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /availability/slots/{id} [put]
func (h *AvailabilityHandler) UpdateSlot(c *gin.Context) {
	var req dto.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid slot payload"))
		return
	}
	slot, err := h.service.UpdateSlot(c.Request.Context(), c.Param("id"), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// DeleteSlot godoc
// @Summary Remove a weekly availability slot
// @Tags Availability
// @Param id path string true "Slot ID"
// @Success 204
// @Router /availability/slots/{id} [delete]
func (h *AvailabilityHandler) DeleteSlot(c *gin.Context) {
	if err := h.service.DeleteSlot(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSlots godoc
// @Summary List a consultant's weekly slots
// @Tags Availability
// @Produce json
// @Param consultant_id path string true "Consultant ID"
// @Success 200 {object} response.Envelope
// @Router /availability/consultants/{consultant_id}/slots [get]
func (h *AvailabilityHandler) ListSlots(c *gin.Context) {
	slots, err := h.service.ListSlots(c.Request.Context(), c.Param("consultant_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// CreateVacation godoc
// @Summary Register a vacation exception
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.CreateVacationRequest true "Vacation payload"
// @Success 201 {object} response.Envelope
// @Router /availability/vacations [post]
func (h *AvailabilityHandler) CreateVacation(c *gin.Context) {
	var req dto.CreateVacationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid vacation payload"))
		return
	}
	vacation, err := h.service.CreateVacation(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, vacation)
}

// DeleteVacation godoc
// @Summary Remove a vacation exception
// @Tags Availability
// @Param id path string true "Vacation ID"
// @Success 204
// @Router /availability/vacations/{id} [delete]
func (h *AvailabilityHandler) DeleteVacation(c *gin.Context) {
	if err := h.service.DeleteVacation(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListVacations godoc
// @Summary List a consultant's vacation exceptions
// @Tags Availability
// @Produce json
// @Param consultant_id path string true "Consultant ID"
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /availability/consultants/{consultant_id}/vacations [get]
func (h *AvailabilityHandler) ListVacations(c *gin.Context) {
	vacations, err := h.service.ListVacations(c.Request.Context(), c.Param("consultant_id"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vacations, nil)
}

// Day godoc
// @Summary Resolve the bookable picture of one day
// @Tags Availability
// @Produce json
// @Param consultant_id path string true "Consultant ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /availability/consultants/{consultant_id}/day [get]
func (h *AvailabilityHandler) Day(c *gin.Context) {
	day, err := h.service.ResolveDay(c.Request.Context(), c.Param("consultant_id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}
