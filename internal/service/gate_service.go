package service

import (
	"log"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/gatemetrics"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/gates"
)

// GateService evaluates release gates over uploaded metric sources
type GateService struct{}

// NewGateService creates a new gate service
func NewGateService() *GateService {
	return &GateService{}
}

// BuildMetrics aggregates uploaded metric sources into one metric map
func (s *GateService) BuildMetrics(inputs gatemetrics.Inputs) (map[string]interface{}, error) {
	return gatemetrics.BuildGateMetrics(inputs)
}

// Evaluate runs the requested gates (all configured gates when none are
// named) against the metric map using the default gate configuration.
func (s *GateService) Evaluate(metrics map[string]interface{}, gateNames []string) (*gates.EvaluationSummary, error) {
	summary, err := gates.EvaluateReleaseGates(metrics, nil, gateNames)
	if err != nil {
		return nil, err
	}
	log.Printf("[Gates] evaluated %d gates: overall_passed=%t", len(summary.GateResults), summary.Passed)
	return summary, nil
}
