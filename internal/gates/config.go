package gates

// DefaultConfig returns the shipping gate thresholds. G0 through G2 cover the
// clinical track; the BENCH_* gates cover bench-rig regression runs.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: "1.0",
		Order:         []string{"G0", "G1", "G2", "BENCH_G0", "BENCH_G1", "BENCH_G2"},
		Gates: map[string]Gate{
			"G0": {
				Description: "Pilot readiness gate",
				Rules: []Rule{
					{ID: "valid_rate_clinic", Metric: "valid_rate_clinic", Op: ">=", Value: 0.80},
					{ID: "qmax_mae", Metric: "qmax_mae_ml_s", Op: "<=", Value: 3.0},
					{ID: "qmax_bias_abs", Metric: "qmax_bias_abs_ml_s", Op: "<=", Value: 2.0},
					{ID: "vvoid_error", AnyOf: []Condition{
						{Metric: "vvoid_mape_pct", Op: "<=", Value: 15.0},
						{Metric: "vvoid_mae_ml", Op: "<=", Value: 30.0},
					}},
					{ID: "qavg_mae", Metric: "qavg_mae_ml_s", Op: "<=", Value: 2.5},
					{ID: "timing_start", Metric: "dt_start_median_abs_s", Op: "<=", Value: 0.3},
					{ID: "timing_end", Metric: "dt_end_median_abs_s", Op: "<=", Value: 0.5},
					{ID: "privacy_full_frame_storage", Metric: "privacy_full_frame_storage_rate", Op: "==", Value: 0.0},
				},
			},
			"G1": {
				Description: "Pivotal readiness gate",
				Rules: []Rule{
					{ID: "valid_rate_clinic", Metric: "valid_rate_clinic", Op: ">=", Value: 0.85},
					{ID: "valid_rate_home", Metric: "valid_rate_home", Op: ">=", Value: 0.70},
					{ID: "qmax_loa95", Metric: "qmax_loa95_abs_ml_s", Op: "<=", Value: 5.0},
					{ID: "vvoid_loa95", Metric: "vvoid_loa95_abs_ml", Op: "<=", Value: 40.0},
					{ID: "qmax_mae", Metric: "qmax_mae_ml_s", Op: "<=", Value: 2.5},
					{ID: "vvoid_error", AnyOf: []Condition{
						{Metric: "vvoid_mape_pct", Op: "<=", Value: 10.0},
						{Metric: "vvoid_mae_ml", Op: "<=", Value: 20.0},
					}},
					{ID: "subgroup_robustness", Metric: "subgroup_max_mae_ratio", Op: "<=", Value: 1.5},
					{ID: "flush_detector_recall", Metric: "flush_recall", Op: ">=", Value: 0.95},
				},
			},
			"G2": {
				Description: "Release gate",
				Rules: []Rule{
					{ID: "verification_suite_pass", Metric: "verification_suite_pass", Op: "==", Value: true},
					{ID: "regression_suite_pass", Metric: "regression_suite_pass", Op: "==", Value: true},
					{ID: "residual_risk_acceptable", Metric: "residual_risk_acceptable", Op: "==", Value: true},
					{ID: "release_cr_approved", Metric: "release_cr_approved", Op: "==", Value: true},
					{ID: "pms_process_active", Metric: "pms_process_active", Op: "==", Value: true},
				},
			},
			"BENCH_G0": {
				Description: "Bench gate G0",
				Rules: []Rule{
					{ID: "qmax_mae_quiet", Metric: "bench_qmax_mae_quiet_ml_s", Op: "<=", Value: 2.0},
					{ID: "qmax_mae_noise", Metric: "bench_qmax_mae_noise_ml_s", Op: "<=", Value: 2.5},
					{ID: "not_in_water_sensitivity", Metric: "not_in_water_sensitivity", Op: ">=", Value: 0.90},
				},
			},
			"BENCH_G1": {
				Description: "Bench gate G1",
				Rules: []Rule{
					{ID: "qmax_mae_multi_toilet", Metric: "bench_qmax_mae_multi_toilet_ml_s", Op: "<=", Value: 2.5},
				},
			},
			"BENCH_G2": {
				Description: "Bench gate G2",
				Rules: []Rule{
					{ID: "stress_false_valid_rate", Metric: "stress_false_valid_rate", Op: "<=", Value: 0.02},
				},
			},
		},
	}
}
