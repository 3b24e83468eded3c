package models

import (
	"fmt"
	"time"
)

// Capture package types accepted by the hub.
const (
	PackageTypeCaptureContract = "capture_contract_json"
	PackageTypeFeatureBundle   = "feature_bundle"
	PackageTypeMediaManifest   = "media_manifest"
)

// ValidPackageType reports whether s is a known capture package type.
func ValidPackageType(s string) bool {
	return s == PackageTypeCaptureContract || s == PackageTypeFeatureBundle || s == PackageTypeMediaManifest
}

// CapturePackageCreate is the request payload for archiving a raw capture
// bundle, optionally linked to a paired measurement.
type CapturePackageCreate struct {
	Session             SessionMeta            `json:"session" binding:"required"`
	PackageType         string                 `json:"package_type"`
	CapturePayload      map[string]interface{} `json:"capture_payload" binding:"required"`
	PairedMeasurementID *int64                 `json:"paired_measurement_id,omitempty"`
	Notes               *string                `json:"notes,omitempty"`
}

// Validate applies defaults and checks the payload.
func (p *CapturePackageCreate) Validate() error {
	if err := p.Session.Normalize(); err != nil {
		return err
	}
	if p.PackageType == "" {
		p.PackageType = PackageTypeCaptureContract
	}
	if !ValidPackageType(p.PackageType) {
		return fmt.Errorf("unknown package_type %q", p.PackageType)
	}
	if p.PairedMeasurementID != nil && *p.PairedMeasurementID < 1 {
		return fmt.Errorf("paired_measurement_id must be >= 1")
	}
	return nil
}

// CapturePackageRecord is the stored form of a capture package.
type CapturePackageRecord struct {
	ID                  int64                  `json:"id"`
	CreatedAt           time.Time              `json:"created_at"`
	Session             SessionMeta            `json:"session"`
	PackageType         string                 `json:"package_type"`
	CapturePayload      map[string]interface{} `json:"capture_payload"`
	PairedMeasurementID *int64                 `json:"paired_measurement_id,omitempty"`
	Notes               *string                `json:"notes,omitempty"`
}

// CapturePackageListItem is the compact list view of a capture package.
type CapturePackageListItem struct {
	ID                  int64     `json:"id"`
	CreatedAt           time.Time `json:"created_at"`
	MeasuredAt          time.Time `json:"measured_at"`
	SessionID           string    `json:"session_id"`
	SiteID              string    `json:"site_id"`
	SubjectID           string    `json:"subject_id"`
	OperatorID          string    `json:"operator_id"`
	AttemptNumber       int       `json:"attempt_number"`
	Platform            string    `json:"platform"`
	PackageType         string    `json:"package_type"`
	PairedMeasurementID *int64    `json:"paired_measurement_id,omitempty"`
}

// PackageFilter holds list-query parameters for capture packages.
type PackageFilter struct {
	SiteID      string `form:"site_id"`
	SubjectID   string `form:"subject_id"`
	SessionID   string `form:"session_id"`
	PackageType string `form:"package_type"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}
