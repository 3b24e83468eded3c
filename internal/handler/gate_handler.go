package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/gatemetrics"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/service"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/pkg/response"
)

// GateHandler handles HTTP requests for release gate evaluation
type GateHandler struct {
	service *service.GateService
}

// NewGateHandler creates a new gate handler
func NewGateHandler(service *service.GateService) *GateHandler {
	return &GateHandler{service: service}
}

// gateEvaluateRequest carries either a ready-made metric map, raw metric
// sources to aggregate, or both. Explicit metrics override aggregated ones.
type gateEvaluateRequest struct {
	Metrics        map[string]interface{} `json:"metrics"`
	ClinicalRows   []gatemetrics.Row      `json:"clinical_rows,omitempty"`
	BenchRows      []gatemetrics.Row      `json:"bench_rows,omitempty"`
	MappingProfile map[string]interface{} `json:"mapping_profile,omitempty"`
	QASummary      map[string]interface{} `json:"qa_summary,omitempty"`
	TFLSummary     map[string]interface{} `json:"tfl_summary,omitempty"`
	DriftSummary   map[string]interface{} `json:"drift_summary,omitempty"`
	G1Eval         map[string]interface{} `json:"g1_eval,omitempty"`
	Gates          []string               `json:"gates,omitempty"`
}

// Evaluate handles POST /api/v1/gates/evaluate
func (h *GateHandler) Evaluate(c *gin.Context) {
	var req gateEvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid gate evaluation request", err)
		return
	}

	metrics, err := h.service.BuildMetrics(gatemetrics.Inputs{
		ClinicalRows:   req.ClinicalRows,
		BenchRows:      req.BenchRows,
		MappingProfile: req.MappingProfile,
		QASummary:      req.QASummary,
		TFLSummary:     req.TFLSummary,
		DriftSummary:   req.DriftSummary,
		G1Eval:         req.G1Eval,
		Overrides:      req.Metrics,
	})
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to build gate metrics", err)
		return
	}

	summary, err := h.service.Evaluate(metrics, req.Gates)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Gate evaluation failed", err)
		return
	}
	response.Success(c, summary)
}
