package models

import (
	"fmt"
	"time"
)

// Pilot automation report types produced by the offline tooling.
const (
	ReportTypeQASummary    = "qa_summary"
	ReportTypeG1Eval       = "g1_eval"
	ReportTypeTFLSummary   = "tfl_summary"
	ReportTypeDriftSummary = "drift_summary"
	ReportTypeGateSummary  = "gate_summary"
)

// ValidReportType reports whether s is a known pilot report type.
func ValidReportType(s string) bool {
	switch s {
	case ReportTypeQASummary, ReportTypeG1Eval, ReportTypeTFLSummary, ReportTypeDriftSummary, ReportTypeGateSummary:
		return true
	}
	return false
}

// PilotReportCreate is the request payload for uploading one automation
// report produced by the pilot tooling.
type PilotReportCreate struct {
	SiteID         string                 `json:"site_id" binding:"required"`
	ReportDate     string                 `json:"report_date" binding:"required"`
	ReportType     string                 `json:"report_type" binding:"required"`
	PackageVersion *string                `json:"package_version,omitempty"`
	ModelID        *string                `json:"model_id,omitempty"`
	DatasetID      *string                `json:"dataset_id,omitempty"`
	Payload        map[string]interface{} `json:"payload" binding:"required"`
	Notes          *string                `json:"notes,omitempty"`
}

// Validate checks the report identity fields.
func (p *PilotReportCreate) Validate() error {
	if _, err := time.Parse("2006-01-02", p.ReportDate); err != nil {
		return fmt.Errorf("report_date must be formatted as YYYY-MM-DD: %w", err)
	}
	if !ValidReportType(p.ReportType) {
		return fmt.Errorf("unknown report_type %q", p.ReportType)
	}
	return nil
}

// PilotReportRecord is the stored form of a pilot automation report.
type PilotReportRecord struct {
	ID             int64                  `json:"id"`
	CreatedAt      time.Time              `json:"created_at"`
	SiteID         string                 `json:"site_id"`
	ReportDate     string                 `json:"report_date"`
	ReportType     string                 `json:"report_type"`
	PackageVersion *string                `json:"package_version,omitempty"`
	ModelID        *string                `json:"model_id,omitempty"`
	DatasetID      *string                `json:"dataset_id,omitempty"`
	Payload        map[string]interface{} `json:"payload"`
	Notes          *string                `json:"notes,omitempty"`
}

// PilotReportListItem is the compact list view of a pilot report.
type PilotReportListItem struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	SiteID         string    `json:"site_id"`
	ReportDate     string    `json:"report_date"`
	ReportType     string    `json:"report_type"`
	PackageVersion *string   `json:"package_version,omitempty"`
	ModelID        *string   `json:"model_id,omitempty"`
	DatasetID      *string   `json:"dataset_id,omitempty"`
}

// ReportFilter holds list-query parameters for pilot reports.
type ReportFilter struct {
	SiteID         string `form:"site_id"`
	ReportType     string `form:"report_type"`
	ReportDateFrom string `form:"report_date_from"`
	ReportDateTo   string `form:"report_date_to"`
	Limit          int    `form:"limit"`
	Offset         int    `form:"offset"`
}
