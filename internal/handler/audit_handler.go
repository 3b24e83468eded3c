package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/middleware"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/repository"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/pkg/response"
)

// AuditHandler handles HTTP requests for the audit trail
type AuditHandler struct {
	repo *repository.AuditRepository
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(repo *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// List handles GET /api/v1/audit-events
func (h *AuditHandler) List(c *gin.Context) {
	var filter models.AuditFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}
	siteID, err := middleware.ResolveSiteScope(c, filter.SiteID)
	if err != nil {
		response.Error(c, http.StatusForbidden, "Site scope violation", err)
		return
	}
	filter.SiteID = siteID

	events, err := h.repo.List(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to list audit events", err)
		return
	}
	response.Success(c, events)
}
