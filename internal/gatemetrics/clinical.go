package gatemetrics

import (
	"fmt"
	"math"
	"strings"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/stats"
)

func loa95Abs(differences []float64) (float64, bool) {
	if len(differences) == 0 {
		return 0, false
	}
	bias := stats.Mean(differences)
	sigma := 0.0
	if len(differences) > 1 {
		sigma = stats.StdDev(differences)
	}
	low := bias - 1.96*sigma
	high := bias + 1.96*sigma
	return math.Max(math.Abs(low), math.Abs(high)), true
}

func setMean(metrics map[string]any, key string, values []float64) {
	if len(values) > 0 {
		metrics[key] = stats.Mean(values)
	}
}

func setMedian(metrics map[string]any, key string, values []float64) {
	if len(values) > 0 {
		metrics[key] = stats.Median(values)
	}
}

func setLoA95(metrics map[string]any, key string, diffs []float64) {
	if value, ok := loa95Abs(diffs); ok {
		metrics[key] = value
	}
}

// cohortOf buckets a row into home or clinic; clinic is the default
func cohortOf(row Row) string {
	value := pickValue(row, []string{"cohort", "setting", "environment", "site_mode"})
	text := ""
	if value != nil {
		text = normalizeKey(fmt.Sprintf("%v", value))
	}
	if strings.Contains(text, "home") {
		return "home"
	}
	return "clinic"
}

func pickFloat(row Row, aliases []string) (float64, bool) {
	return parseFloat(pickValue(row, aliases))
}

func pickBool(row Row, aliases []string) (bool, bool) {
	return parseBool(pickValue(row, aliases))
}

// computeClinicalMetrics aggregates paired app-versus-reference rows into the
// clinical gate metric map. Rows missing a pair for some quantity simply do
// not contribute to that metric.
func computeClinicalMetrics(rows []Row) map[string]any {
	metrics := make(map[string]any)
	if len(rows) == 0 {
		return metrics
	}

	var qmaxAbsErrors, qmaxDiffs []float64
	var qavgAbsErrors []float64
	var vvoidAbsErrors, vvoidAbsPctErrors, vvoidDiffs []float64
	var dtStartAbsErrors, dtEndAbsErrors []float64
	privacyEvents, privacyTotal := 0, 0
	validCounts := map[string]int{"clinic": 0, "home": 0}
	totalCounts := map[string]int{"clinic": 0, "home": 0}
	subgroupQmaxErrors := make(map[string][]float64)
	flushTP, flushFN := 0, 0

	for _, row := range rows {
		refQmax, refOK := pickFloat(row, []string{"ref_qmax_ml_s", "qmax_ref", "reference_qmax_ml_s"})
		appQmax, appOK := pickFloat(row, []string{"app_qmax_ml_s", "qmax_app", "pred_qmax_ml_s", "estimated_qmax_ml_s"})
		if refOK && appOK {
			diff := appQmax - refQmax
			qmaxDiffs = append(qmaxDiffs, diff)
			absError := math.Abs(diff)
			qmaxAbsErrors = append(qmaxAbsErrors, absError)

			if subgroupValue := pickValue(row, []string{"subgroup", "sex", "group"}); subgroupValue != nil {
				subgroup := normalizeKey(fmt.Sprintf("%v", subgroupValue))
				if subgroup != "" {
					subgroupQmaxErrors[subgroup] = append(subgroupQmaxErrors[subgroup], absError)
				}
			}
		}

		refQavg, refOK := pickFloat(row, []string{"ref_qavg_ml_s", "qavg_ref", "reference_qavg_ml_s"})
		appQavg, appOK := pickFloat(row, []string{"app_qavg_ml_s", "qavg_app", "pred_qavg_ml_s", "estimated_qavg_ml_s"})
		if refOK && appOK {
			qavgAbsErrors = append(qavgAbsErrors, math.Abs(appQavg-refQavg))
		}

		refVvoid, refOK := pickFloat(row, []string{"ref_vvoid_ml", "vvoid_ref", "reference_vvoid_ml"})
		appVvoid, appOK := pickFloat(row, []string{"app_vvoid_ml", "vvoid_app", "pred_vvoid_ml", "estimated_vvoid_ml"})
		if refOK && appOK {
			diff := appVvoid - refVvoid
			vvoidDiffs = append(vvoidDiffs, diff)
			vvoidAbsErrors = append(vvoidAbsErrors, math.Abs(diff))
			if refVvoid != 0 {
				vvoidAbsPctErrors = append(vvoidAbsPctErrors, math.Abs(diff)/math.Abs(refVvoid)*100.0)
			}
		}

		refStart, refOK := pickFloat(row, []string{"ref_t_start_s", "ref_start_time_s", "start_ref_s"})
		appStart, appOK := pickFloat(row, []string{"app_t_start_s", "app_start_time_s", "start_app_s"})
		if refOK && appOK {
			dtStartAbsErrors = append(dtStartAbsErrors, math.Abs(appStart-refStart))
		}

		refEnd, refOK := pickFloat(row, []string{"ref_t_end_s", "ref_end_time_s", "end_ref_s"})
		appEnd, appOK := pickFloat(row, []string{"app_t_end_s", "app_end_time_s", "end_app_s"})
		if refOK && appOK {
			dtEndAbsErrors = append(dtEndAbsErrors, math.Abs(appEnd-refEnd))
		}

		if fullFrame, ok := pickBool(row, []string{"full_frame_stored", "privacy_full_frame_stored", "store_full_frame"}); ok {
			privacyTotal++
			if fullFrame {
				privacyEvents++
			}
		}

		if isValid, ok := parseQualityIsValid(pickValue(row, []string{"quality_status", "signal_quality_status", "quality_label"})); ok {
			cohort := cohortOf(row)
			totalCounts[cohort]++
			if isValid {
				validCounts[cohort]++
			}
		}

		flushTruth, truthOK := pickBool(row, []string{"flush_truth", "artifact_flush_truth", "flush_gt"})
		flushPred, predOK := pickBool(row, []string{"flush_pred", "artifact_flush_pred", "flush_detected"})
		if truthOK && flushTruth && predOK {
			if flushPred {
				flushTP++
			} else {
				flushFN++
			}
		}
	}

	setMean(metrics, "qmax_mae_ml_s", qmaxAbsErrors)
	if len(qmaxDiffs) > 0 {
		metrics["qmax_bias_abs_ml_s"] = math.Abs(stats.Mean(qmaxDiffs))
	}
	setLoA95(metrics, "qmax_loa95_abs_ml_s", qmaxDiffs)

	setMean(metrics, "qavg_mae_ml_s", qavgAbsErrors)
	setMean(metrics, "vvoid_mae_ml", vvoidAbsErrors)
	setMean(metrics, "vvoid_mape_pct", vvoidAbsPctErrors)
	setLoA95(metrics, "vvoid_loa95_abs_ml", vvoidDiffs)
	setMedian(metrics, "dt_start_median_abs_s", dtStartAbsErrors)
	setMedian(metrics, "dt_end_median_abs_s", dtEndAbsErrors)

	if totalCounts["clinic"] > 0 {
		metrics["valid_rate_clinic"] = float64(validCounts["clinic"]) / float64(totalCounts["clinic"])
	}
	if totalCounts["home"] > 0 {
		metrics["valid_rate_home"] = float64(validCounts["home"]) / float64(totalCounts["home"])
	}
	if privacyTotal > 0 {
		metrics["privacy_full_frame_storage_rate"] = float64(privacyEvents) / float64(privacyTotal)
	}
	if flushTP+flushFN > 0 {
		metrics["flush_recall"] = float64(flushTP) / float64(flushTP+flushFN)
	}

	var subgroupMAEs []float64
	for _, values := range subgroupQmaxErrors {
		if len(values) > 0 {
			subgroupMAEs = append(subgroupMAEs, stats.Mean(values))
		}
	}
	if len(subgroupMAEs) >= 2 {
		maxMAE, minMAE := subgroupMAEs[0], subgroupMAEs[0]
		for _, value := range subgroupMAEs[1:] {
			maxMAE = math.Max(maxMAE, value)
			minMAE = math.Min(minMAE, value)
		}
		if minMAE > 0 {
			metrics["subgroup_max_mae_ratio"] = maxMAE / minMAE
		}
	}

	return metrics
}
