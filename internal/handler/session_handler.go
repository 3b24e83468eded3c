package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/capture"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/service"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/pkg/response"
)

// SessionHandler handles HTTP requests for capture session analysis
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Analyze handles POST /api/v1/sessions/analyze
func (h *SessionHandler) Analyze(c *gin.Context) {
	var payload capture.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid capture payload", err)
		return
	}

	analysis, err := h.service.Analyze(&payload)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Capture session analysis failed", err)
		return
	}
	response.Success(c, analysis)
}
