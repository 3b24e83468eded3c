package models

import (
	"fmt"
	"time"
)

// Quality statuses assigned by the on-device analyzer.
const (
	QualityValid  = "valid"
	QualityRepeat = "repeat"
	QualityReject = "reject"
)

// Capture modes supported by the mobile app.
const (
	CaptureModeWaterImpact    = "water_impact"
	CaptureModeJetInAirAssist = "jet_in_air_assist"
	CaptureModeFallback       = "fallback_non_water"
)

// ValidQualityStatus reports whether s is a known quality status.
func ValidQualityStatus(s string) bool {
	return s == QualityValid || s == QualityRepeat || s == QualityReject
}

// ValidCaptureMode reports whether s is a known capture mode.
func ValidCaptureMode(s string) bool {
	return s == CaptureModeWaterImpact || s == CaptureModeJetInAirAssist || s == CaptureModeFallback
}

// ValidPlatform reports whether s is a supported mobile platform.
func ValidPlatform(s string) bool {
	return s == "ios" || s == "android"
}

// FlowMetrics holds the uroflow summary metrics for one void, from either
// the app or the reference device.
type FlowMetrics struct {
	QmaxMlS   float64  `json:"qmax_ml_s"`
	QavgMlS   float64  `json:"qavg_ml_s"`
	VvoidMl   float64  `json:"vvoid_ml"`
	FlowTimeS *float64 `json:"flow_time_s,omitempty"`
	TqmaxS    *float64 `json:"tqmax_s,omitempty"`
}

// Validate checks the metric values for one measurement arm.
func (m *FlowMetrics) Validate(arm string) error {
	if m.QmaxMlS < 0 {
		return fmt.Errorf("%s qmax_ml_s must be non-negative", arm)
	}
	if m.QavgMlS < 0 {
		return fmt.Errorf("%s qavg_ml_s must be non-negative", arm)
	}
	if m.VvoidMl < 0 {
		return fmt.Errorf("%s vvoid_ml must be non-negative", arm)
	}
	if m.FlowTimeS != nil && *m.FlowTimeS < 0 {
		return fmt.Errorf("%s flow_time_s must be non-negative", arm)
	}
	if m.TqmaxS != nil && *m.TqmaxS < 0 {
		return fmt.Errorf("%s tqmax_s must be non-negative", arm)
	}
	return nil
}

// SessionMeta identifies a clinical capture session.
type SessionMeta struct {
	SessionID     string    `json:"session_id" binding:"required"`
	SiteID        string    `json:"site_id" binding:"required"`
	SubjectID     string    `json:"subject_id" binding:"required"`
	OperatorID    string    `json:"operator_id" binding:"required"`
	AttemptNumber int       `json:"attempt_number"`
	MeasuredAt    time.Time `json:"measured_at" binding:"required"`
	Platform      string    `json:"platform" binding:"required"`
	DeviceModel   *string   `json:"device_model,omitempty"`
	AppVersion    *string   `json:"app_version,omitempty"`
	CaptureMode   string    `json:"capture_mode"`
}

// Normalize applies defaults and validates the session identity fields.
func (s *SessionMeta) Normalize() error {
	if s.AttemptNumber == 0 {
		s.AttemptNumber = 1
	}
	if s.AttemptNumber < 1 {
		return fmt.Errorf("attempt_number must be >= 1")
	}
	if s.CaptureMode == "" {
		s.CaptureMode = CaptureModeWaterImpact
	}
	if !ValidCaptureMode(s.CaptureMode) {
		return fmt.Errorf("unknown capture_mode %q", s.CaptureMode)
	}
	if !ValidPlatform(s.Platform) {
		return fmt.Errorf("unknown platform %q", s.Platform)
	}
	return nil
}

// AppMeasurement is the app-side arm of a paired measurement.
type AppMeasurement struct {
	Metrics       FlowMetrics `json:"metrics" binding:"required"`
	QualityStatus string      `json:"quality_status" binding:"required"`
	QualityScore  *float64    `json:"quality_score,omitempty"`
	ModelID       *string     `json:"model_id,omitempty"`
}

// ReferenceMeasurement is the reference-uroflowmeter arm of a paired measurement.
type ReferenceMeasurement struct {
	Metrics      FlowMetrics `json:"metrics" binding:"required"`
	DeviceModel  *string     `json:"device_model,omitempty"`
	DeviceSerial *string     `json:"device_serial,omitempty"`
}

// PairedMeasurementCreate is the request payload for registering one
// app-vs-reference paired measurement.
type PairedMeasurementCreate struct {
	Session   SessionMeta          `json:"session" binding:"required"`
	App       AppMeasurement       `json:"app" binding:"required"`
	Reference ReferenceMeasurement `json:"reference" binding:"required"`
	Notes     *string              `json:"notes,omitempty"`
}

// Validate checks the payload beyond what request binding enforces.
func (p *PairedMeasurementCreate) Validate() error {
	if err := p.Session.Normalize(); err != nil {
		return err
	}
	if !ValidQualityStatus(p.App.QualityStatus) {
		return fmt.Errorf("unknown quality_status %q", p.App.QualityStatus)
	}
	if p.App.QualityScore != nil && (*p.App.QualityScore < 0 || *p.App.QualityScore > 100) {
		return fmt.Errorf("quality_score must be within [0, 100]")
	}
	if err := p.App.Metrics.Validate("app"); err != nil {
		return err
	}
	if err := p.Reference.Metrics.Validate("reference"); err != nil {
		return err
	}
	return nil
}

// PairedMeasurementRecord is the stored form of a paired measurement.
type PairedMeasurementRecord struct {
	ID        int64                `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Session   SessionMeta          `json:"session"`
	App       AppMeasurement       `json:"app"`
	Reference ReferenceMeasurement `json:"reference"`
	Notes     *string              `json:"notes,omitempty"`
}

// PairedMeasurementListItem is the compact list view of a paired measurement.
type PairedMeasurementListItem struct {
	ID               int64     `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	MeasuredAt       time.Time `json:"measured_at"`
	SessionID        string    `json:"session_id"`
	SiteID           string    `json:"site_id"`
	SubjectID        string    `json:"subject_id"`
	AttemptNumber    int       `json:"attempt_number"`
	Platform         string    `json:"platform"`
	AppQualityStatus string    `json:"app_quality_status"`
	AppQmaxMlS       float64   `json:"app_qmax_ml_s"`
	RefQmaxMlS       float64   `json:"ref_qmax_ml_s"`
	AppVvoidMl       float64   `json:"app_vvoid_ml"`
	RefVvoidMl       float64   `json:"ref_vvoid_ml"`
}

// MeasurementFilter holds list-query parameters for paired measurements.
type MeasurementFilter struct {
	SiteID    string `form:"site_id"`
	SubjectID string `form:"subject_id"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}
