package gatemetrics

// Inputs collects every source that can contribute gate metric values
type Inputs struct {
	ClinicalRows   []Row
	BenchRows      []Row
	MappingProfile map[string]any
	QASummary      map[string]any
	TFLSummary     map[string]any
	DriftSummary   map[string]any
	G1Eval         map[string]any
	Overrides      map[string]any
}

// BuildGateMetrics aggregates every input source into one metric map.
// CSV-derived values take precedence over JSON backfill sources, which apply
// first-source-wins in the order TFL, drift, G1 eval, QA summary. Explicit
// overrides always win.
func BuildGateMetrics(inputs Inputs) (map[string]any, error) {
	metrics := make(map[string]any)

	if len(inputs.ClinicalRows) > 0 {
		mapped, err := applyProfileToRows(inputs.ClinicalRows, inputs.MappingProfile, "clinical")
		if err != nil {
			return nil, err
		}
		if detectMetricValueTable(mapped) {
			for key, value := range extractMetricValueRows(mapped) {
				metrics[key] = value
			}
		} else {
			for key, value := range computeClinicalMetrics(mapped) {
				metrics[key] = value
			}
		}
	}

	if len(inputs.BenchRows) > 0 {
		mapped, err := applyProfileToRows(inputs.BenchRows, inputs.MappingProfile, "bench")
		if err != nil {
			return nil, err
		}
		for key, value := range computeBenchMetrics(mapped) {
			metrics[key] = value
		}
	}

	if len(inputs.TFLSummary) > 0 {
		mergeMetricBackfill(metrics, extractMetricsFromTFLSummary(inputs.TFLSummary))
	}
	if len(inputs.DriftSummary) > 0 {
		mergeMetricBackfill(metrics, extractMetricsFromDriftSummary(inputs.DriftSummary))
	}
	if len(inputs.G1Eval) > 0 {
		mergeMetricBackfill(metrics, extractMetricsFromG1Eval(inputs.G1Eval))
	}
	if len(inputs.QASummary) > 0 {
		mergeMetricBackfill(metrics, extractMetricsFromQASummary(inputs.QASummary))
	}

	for key, value := range inputs.Overrides {
		metrics[key] = value
	}

	return metrics, nil
}
