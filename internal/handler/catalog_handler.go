package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/pkg/response"
)

type catalogService interface {
	Branches(ctx context.Context) ([]models.Branch, error)
	Codes(ctx context.Context, group string) ([]models.CommonCode, error)
}

// CatalogHandler exposes branches and display codes.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// Branches godoc
// @Summary List active branches
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/branches [get]
func (h *CatalogHandler) Branches(c *gin.Context) {
	branches, err := h.service.Branches(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branches, nil)
}

// Codes godoc
// @Summary List display codes of one group
// @Tags Catalog
// @Produce json
// @Param group path string true "Code group"
// @Success 200 {object} response.Envelope
// @Router /catalog/codes/{group} [get]
func (h *CatalogHandler) Codes(c *gin.Context) {
	codes, err := h.service.Codes(c.Request.Context(), c.Param("group"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, codes, nil)
}
