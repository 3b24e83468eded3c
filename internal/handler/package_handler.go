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

// PackageHandler handles HTTP requests for capture packages
type PackageHandler struct {
	service *service.PackageService
}

// NewPackageHandler creates a new package handler
func NewPackageHandler(service *service.PackageService) *PackageHandler {
	return &PackageHandler{service: service}
}

// Create handles POST /api/v1/capture-packages
func (h *PackageHandler) Create(c *gin.Context) {
	var payload models.CapturePackageCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid capture package payload", err)
		return
	}
	if err := payload.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid capture package payload", err)
		return
	}
	if err := middleware.EnforcePayloadSiteScope(c, payload.Session.SiteID); err != nil {
		response.Error(c, http.StatusForbidden, "Site scope violation", err)
		return
	}

	record, err := h.service.Create(&payload)
	if err != nil {
		if errors.Is(err, service.ErrPairedMeasurementMissing) {
			response.Error(c, http.StatusBadRequest, "Invalid capture package payload", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to create capture package", err)
		return
	}
	response.Created(c, record)
}

// List handles GET /api/v1/capture-packages
func (h *PackageHandler) List(c *gin.Context) {
	var filter models.PackageFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}
	if filter.PackageType != "" && !models.ValidPackageType(filter.PackageType) {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters",
			fmt.Errorf("unknown package_type %q", filter.PackageType))
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
		response.Error(c, http.StatusInternalServerError, "Failed to list capture packages", err)
		return
	}
	response.Success(c, items)
}

// GetByID handles GET /api/v1/capture-packages/:id
func (h *PackageHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid capture package ID", err)
		return
	}

	record, err := h.service.GetByID(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get capture package", err)
		return
	}
	if record == nil {
		response.Error(c, http.StatusNotFound, "Capture package not found", nil)
		return
	}
	if err := middleware.EnforceRowSiteScope(c, record.Session.SiteID); err != nil {
		response.Error(c, http.StatusForbidden, "Site scope violation", err)
		return
	}
	response.Success(c, record)
}
