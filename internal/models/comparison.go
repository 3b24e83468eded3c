package models

import "time"

// MethodComparisonFilters echoes back the filters a summary was computed
// under. QualityStatus nil means every status was considered.
type MethodComparisonFilters struct {
	SiteID        *string `json:"site_id"`
	SubjectID     *string `json:"subject_id"`
	Platform      *string `json:"platform"`
	CaptureMode   *string `json:"capture_mode"`
	QualityStatus *string `json:"quality_status"`
}

// MetricComparisonSummary is the app-vs-reference agreement summary for one
// uroflow metric. Pointer fields are omitted when too few samples exist.
type MetricComparisonSummary struct {
	Metric              string   `json:"metric"`
	PairedSamples       int      `json:"paired_samples"`
	MeanApp             *float64 `json:"mean_app,omitempty"`
	MeanReference       *float64 `json:"mean_reference,omitempty"`
	MeanError           *float64 `json:"mean_error,omitempty"`
	MeanAbsoluteError   *float64 `json:"mean_absolute_error,omitempty"`
	RMSE                *float64 `json:"rmse,omitempty"`
	MAPEPct             *float64 `json:"mape_pct,omitempty"`
	PearsonR            *float64 `json:"pearson_r,omitempty"`
	BlandAltmanBias     *float64 `json:"bland_altman_bias,omitempty"`
	BlandAltmanLoALower *float64 `json:"bland_altman_loa_lower,omitempty"`
	BlandAltmanLoAUpper *float64 `json:"bland_altman_loa_upper,omitempty"`
}

// MethodComparisonSummary aggregates paired measurements into per-metric
// agreement statistics.
type MethodComparisonSummary struct {
	GeneratedAt         time.Time                 `json:"generated_at"`
	Filters             MethodComparisonFilters   `json:"filters"`
	RecordsMatched      int                       `json:"records_matched_filters"`
	RecordsConsidered   int                       `json:"records_considered"`
	QualityDistribution map[string]int            `json:"quality_distribution"`
	Metrics             []MetricComparisonSummary `json:"metrics"`
}

// MethodComparisonRow is one paired_measurements row projected down to the
// columns the comparison summary needs.
type MethodComparisonRow struct {
	AppQualityStatus string
	AppQmaxMlS       *float64
	AppQavgMlS       *float64
	AppVvoidMl       *float64
	AppFlowTimeS     *float64
	AppTqmaxS        *float64
	RefQmaxMlS       *float64
	RefQavgMlS       *float64
	RefVvoidMl       *float64
	RefFlowTimeS     *float64
	RefTqmaxS        *float64
}

// SummaryFilter holds query parameters for the method comparison endpoint.
// QualityStatus "all" disables the quality filter.
type SummaryFilter struct {
	SiteID        string `form:"site_id"`
	SubjectID     string `form:"subject_id"`
	Platform      string `form:"platform"`
	CaptureMode   string `form:"capture_mode"`
	QualityStatus string `form:"quality_status"`
}
