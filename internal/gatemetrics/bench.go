package gatemetrics

import (
	"fmt"
	"math"
	"strings"
)

// scenarioBucketOf classifies a bench row into a noise bucket by keyword.
// Unrecognized scenarios count as quiet.
func scenarioBucketOf(row Row) string {
	value := pickValue(row, []string{"scenario", "test_scenario", "condition"})
	text := ""
	if value != nil {
		text = normalizeKey(fmt.Sprintf("%v", value))
	}
	for _, token := range []string{"noise", "noisy", "fan", "flush", "music"} {
		if strings.Contains(text, token) {
			return "noise"
		}
	}
	for _, token := range []string{"multi", "toilet", "cross_site", "cross-site"} {
		if strings.Contains(text, token) {
			return "multi_toilet"
		}
	}
	if strings.Contains(text, "stress") {
		return "stress"
	}
	return "quiet"
}

// computeBenchMetrics aggregates bench-rig rows. A table that is already in
// metric/value form is passed through verbatim.
func computeBenchMetrics(rows []Row) map[string]any {
	metrics := make(map[string]any)
	if len(rows) == 0 {
		return metrics
	}

	if detectMetricValueTable(rows) {
		return extractMetricValueRows(rows)
	}

	qmaxErrorsByBucket := map[string][]float64{
		"quiet":        nil,
		"noise":        nil,
		"multi_toilet": nil,
	}
	notInWaterTP, notInWaterFN := 0, 0
	invalidTruthTotal, falseValidCount := 0, 0

	for _, row := range rows {
		refQmax, refOK := pickFloat(row, []string{"ref_qmax_ml_s", "qmax_ref", "reference_qmax_ml_s"})
		appQmax, appOK := pickFloat(row, []string{"app_qmax_ml_s", "qmax_app", "pred_qmax_ml_s"})
		if refOK && appOK {
			bucket := scenarioBucketOf(row)
			if _, tracked := qmaxErrorsByBucket[bucket]; tracked {
				qmaxErrorsByBucket[bucket] = append(qmaxErrorsByBucket[bucket], math.Abs(appQmax-refQmax))
			}
		}

		truth, truthOK := pickBool(row, []string{"not_in_water_truth", "artifact_not_in_water_truth", "not_in_water_gt"})
		pred, predOK := pickBool(row, []string{"not_in_water_pred", "artifact_not_in_water_pred", "not_in_water_detected"})
		if truthOK && truth && predOK {
			if pred {
				notInWaterTP++
			} else {
				notInWaterFN++
			}
		}

		truthValid, truthValidOK := pickBool(row, []string{"is_valid_truth", "valid_truth", "truth_valid"})
		predValid, predValidOK := pickBool(row, []string{"is_valid_pred", "valid_pred", "pred_valid"})
		if !predValidOK {
			predValid, predValidOK = parseQualityIsValid(pickValue(row, []string{"quality_status", "signal_quality_status"}))
		}
		if truthValidOK && !truthValid && predValidOK {
			invalidTruthTotal++
			if predValid {
				falseValidCount++
			}
		}
	}

	setMean(metrics, "bench_qmax_mae_quiet_ml_s", qmaxErrorsByBucket["quiet"])
	setMean(metrics, "bench_qmax_mae_noise_ml_s", qmaxErrorsByBucket["noise"])
	setMean(metrics, "bench_qmax_mae_multi_toilet_ml_s", qmaxErrorsByBucket["multi_toilet"])

	if notInWaterTP+notInWaterFN > 0 {
		metrics["not_in_water_sensitivity"] = float64(notInWaterTP) / float64(notInWaterTP+notInWaterFN)
	}
	if invalidTruthTotal > 0 {
		metrics["stress_false_valid_rate"] = float64(falseValidCount) / float64(invalidTruthTotal)
	}

	return metrics
}
