package gatemetrics

import "math"

// The backfill extractors lift metric values out of upstream analysis
// artifacts (TFL summary, drift report, G1 evaluation, QA summary). They only
// fill keys the primary CSV aggregation did not produce.

func getObject(payload map[string]any, key string) (map[string]any, bool) {
	value, ok := payload[key].(map[string]any)
	return value, ok
}

func getFloat(payload map[string]any, key string) (float64, bool) {
	return parseFloat(payload[key])
}

func extractMetricsFromTFLSummary(payload map[string]any) map[string]any {
	metrics := make(map[string]any)

	nTotal, totalOK := getFloat(payload, "n_total")
	nValid, validOK := getFloat(payload, "n_valid")
	if totalOK && nTotal > 0 && validOK {
		metrics["valid_rate_clinic"] = nValid / nTotal
	}

	metricsPayload, ok := getObject(payload, "metrics")
	if !ok {
		return metrics
	}

	if qmax, ok := getObject(metricsPayload, "Qmax"); ok {
		if mae, ok := getFloat(qmax, "mae"); ok {
			metrics["qmax_mae_ml_s"] = mae
		}
		if bias, ok := getFloat(qmax, "bias"); ok {
			metrics["qmax_bias_abs_ml_s"] = math.Abs(bias)
		}
		loaLow, lowOK := getFloat(qmax, "loa_low")
		loaHigh, highOK := getFloat(qmax, "loa_high")
		if lowOK && highOK {
			metrics["qmax_loa95_abs_ml_s"] = math.Max(math.Abs(loaLow), math.Abs(loaHigh))
		}
	}

	if qavg, ok := getObject(metricsPayload, "Qavg"); ok {
		if mae, ok := getFloat(qavg, "mae"); ok {
			metrics["qavg_mae_ml_s"] = mae
		}
	}

	if vvoid, ok := getObject(metricsPayload, "Vvoid"); ok {
		if mae, ok := getFloat(vvoid, "mae"); ok {
			metrics["vvoid_mae_ml"] = mae
		}
		if mape, ok := getFloat(vvoid, "mape"); ok {
			metrics["vvoid_mape_pct"] = mape
		}
		loaLow, lowOK := getFloat(vvoid, "loa_low")
		loaHigh, highOK := getFloat(vvoid, "loa_high")
		if lowOK && highOK {
			metrics["vvoid_loa95_abs_ml"] = math.Max(math.Abs(loaLow), math.Abs(loaHigh))
		}
	}

	if flowTime, ok := getObject(metricsPayload, "FlowTime"); ok {
		if mae, ok := getFloat(flowTime, "mae"); ok {
			metrics["flow_time_mae_s"] = mae
		}
	}

	return metrics
}

func extractMetricsFromDriftSummary(payload map[string]any) map[string]any {
	metrics := make(map[string]any)
	overall, ok := getObject(payload, "overall")
	if !ok {
		return metrics
	}

	if qmaxMAE, ok := getFloat(overall, "Qmax_mae"); ok {
		metrics["qmax_mae_ml_s"] = qmaxMAE
	}
	if vvoidMAPE, ok := getFloat(overall, "Vvoid_mape"); ok {
		metrics["vvoid_mape_pct"] = vvoidMAPE
	}
	return metrics
}

func extractMetricsFromG1Eval(payload map[string]any) map[string]any {
	metrics := make(map[string]any)

	mapping := []struct {
		sourceKey string
		metricKey string
	}{
		{"valid_rate", "valid_rate_clinic"},
		{"mae_qmax", "qmax_mae_ml_s"},
		{"mae_qavg", "qavg_mae_ml_s"},
		{"mape_vvoid", "vvoid_mape_pct"},
		{"mae_flowtime", "flow_time_mae_s"},
	}
	for _, entry := range mapping {
		sourceValue := payload[entry.sourceKey]
		var value float64
		var ok bool
		if nested, isObject := sourceValue.(map[string]any); isObject {
			value, ok = getFloat(nested, "value")
		} else {
			value, ok = parseFloat(sourceValue)
		}
		if ok {
			metrics[entry.metricKey] = value
		}
	}

	if _, present := metrics["valid_rate_clinic"]; !present {
		if counts, ok := getObject(payload, "_counts"); ok {
			nTotal, totalOK := getFloat(counts, "n_total")
			nValid, validOK := getFloat(counts, "n_valid")
			if totalOK && nTotal > 0 && validOK {
				metrics["valid_rate_clinic"] = nValid / nTotal
			}
		}
	}

	return metrics
}

func extractMetricsFromQASummary(payload map[string]any) map[string]any {
	metrics := make(map[string]any)

	nChecked, checkedOK := getFloat(payload, "n_records_checked")
	if nPass, ok := getFloat(payload, "n_pass"); ok && checkedOK && nChecked > 0 {
		metrics["valid_rate_clinic"] = nPass / nChecked
	}
	if nFail, ok := getFloat(payload, "n_fail"); ok && checkedOK && nChecked > 0 {
		metrics["qa_fail_rate"] = nFail / nChecked
	}
	return metrics
}

// mergeMetricBackfill adds backfill values without overwriting existing keys
func mergeMetricBackfill(base, backfill map[string]any) {
	for key, value := range backfill {
		if _, present := base[key]; present {
			continue
		}
		base[key] = value
	}
}
