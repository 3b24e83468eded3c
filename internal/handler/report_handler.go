package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/middleware"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/service"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/pkg/response"
)

// ReportHandler handles HTTP requests for pilot automation reports
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Create handles POST /api/v1/pilot-reports
func (h *ReportHandler) Create(c *gin.Context) {
	var payload models.PilotReportCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid pilot report payload", err)
		return
	}
	if err := payload.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid pilot report payload", err)
		return
	}
	if err := middleware.EnforcePayloadSiteScope(c, payload.SiteID); err != nil {
		response.Error(c, http.StatusForbidden, "Site scope violation", err)
		return
	}

	record, err := h.service.Create(&payload)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to create pilot report", err)
		return
	}
	response.Created(c, record)
}

// List handles GET /api/v1/pilot-reports
func (h *ReportHandler) List(c *gin.Context) {
	var filter models.ReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}
	if filter.ReportType != "" && !models.ValidReportType(filter.ReportType) {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters",
			fmt.Errorf("unknown report_type %q", filter.ReportType))
		return
	}
	siteID, err := middleware.ResolveSiteScope(c, filter.SiteID)
	if err != nil {
		response.Error(c, http.StatusForbidden, "Site scope violation", err)
		return
	}
	filter.SiteID = siteID

	items, err := h.service.List(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to list pilot reports", err)
		return
	}
	response.Success(c, items)
}

// GetByID handles GET /api/v1/pilot-reports/:id
func (h *ReportHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid pilot report ID", err)
		return
	}

	record, err := h.service.GetByID(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get pilot report", err)
		return
	}
	if record == nil {
		response.Error(c, http.StatusNotFound, "Pilot report not found", nil)
		return
	}
	if err := middleware.EnforceRowSiteScope(c, record.SiteID); err != nil {
		response.Error(c, http.StatusForbidden, "Site scope violation", err)
		return
	}
	response.Success(c, record)
}
