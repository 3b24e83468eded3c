package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/middleware"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/service"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/pkg/response"
)

// MeasurementHandler handles HTTP requests for paired measurements
type MeasurementHandler struct {
	service *service.MeasurementService
}

// NewMeasurementHandler creates a new measurement handler
func NewMeasurementHandler(service *service.MeasurementService) *MeasurementHandler {
	return &MeasurementHandler{service: service}
}

// Create handles POST /api/v1/paired-measurements
func (h *MeasurementHandler) Create(c *gin.Context) {
	var payload models.PairedMeasurementCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid measurement payload", err)
		return
	}
	if err := payload.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid measurement payload", err)
		return
	}
	if err := middleware.EnforcePayloadSiteScope(c, payload.Session.SiteID); err != nil {
		response.Error(c, http.StatusForbidden, "Site scope violation", err)
		return
	}

	record, created, err := h.service.Create(&payload)
	if err != nil {
		if errors.Is(err, service.ErrPayloadConflict) {
			response.Error(c, http.StatusConflict, "Conflicting paired measurement", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to create paired measurement", err)
		return
	}
	if created {
		response.Created(c, record)
		return
	}
	response.Success(c, record)
}

// List handles GET /api/v1/paired-measurements
func (h *MeasurementHandler) List(c *gin.Context) {
	var filter models.MeasurementFilter
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

	items, err := h.service.List(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to list paired measurements", err)
		return
	}
	response.Success(c, items)
}

// GetByID handles GET /api/v1/paired-measurements/:id
func (h *MeasurementHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid measurement ID", err)
		return
	}

	record, err := h.service.GetByID(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get paired measurement", err)
		return
	}
	if record == nil {
		response.Error(c, http.StatusNotFound, "Paired measurement not found", nil)
		return
	}
	if err := middleware.EnforceRowSiteScope(c, record.Session.SiteID); err != nil {
		response.Error(c, http.StatusForbidden, "Site scope violation", err)
		return
	}
	response.Success(c, record)
}

// Summary handles GET /api/v1/paired-measurements/summary
func (h *MeasurementHandler) Summary(c *gin.Context) {
	var filter models.SummaryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}
	if filter.Platform != "" && !models.ValidPlatform(filter.Platform) {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters",
			fmt.Errorf("unknown platform %q", filter.Platform))
		return
	}
	if filter.CaptureMode != "" && !models.ValidCaptureMode(filter.CaptureMode) {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters",
			fmt.Errorf("unknown capture_mode %q", filter.CaptureMode))
		return
	}
	siteID, err := middleware.ResolveSiteScope(c, filter.SiteID)
	if err != nil {
		response.Error(c, http.StatusForbidden, "Site scope violation", err)
		return
	}
	filter.SiteID = siteID

	summary, err := h.service.Summary(filter)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to build comparison summary", err)
		return
	}
	response.Success(c, summary)
}
