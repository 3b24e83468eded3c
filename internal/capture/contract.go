// Package capture defines the ios_capture_v1 payload contract and its validator.
package capture

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SchemaVersion is the only capture schema this pipeline accepts
const SchemaVersion = "ios_capture_v1"

// SupportedCaptureModes enumerates the acquisition geometries the app ships
var SupportedCaptureModes = []string{"jet_in_air", "porcelain_wall", "water_impact"}

// Warning thresholds surfaced during validation
const (
	warnMinROIValidRatio    = 0.85
	warnMaxLowConfRatio     = 0.25
	lowConfidenceThreshold  = 0.6
)

// Calibration carries the per-device level-to-volume calibration
type Calibration struct {
	MlPerMm            float64  `json:"ml_per_mm"`
	MinDepthConfidence *float64 `json:"min_depth_confidence,omitempty"`
}

// SessionMeta identifies one capture session
type SessionMeta struct {
	SessionID   string      `json:"session_id"`
	SyncID      *string     `json:"sync_id,omitempty"`
	StartedAt   string      `json:"started_at"`
	Mode        string      `json:"mode"`
	Calibration Calibration `json:"calibration"`
}

// Sample is one sensor tick from the phone
type Sample struct {
	TS              float64  `json:"t_s"`
	DepthLevelMm    *float64 `json:"depth_level_mm,omitempty"`
	RGBLevelMm      *float64 `json:"rgb_level_mm,omitempty"`
	DepthConfidence float64  `json:"depth_confidence"`
	MotionNorm      *float64 `json:"motion_norm,omitempty"`
	AudioRmsDbfs    *float64 `json:"audio_rms_dbfs,omitempty"`
	ROIValid        bool     `json:"roi_valid"`
}

// Payload is the full ios_capture_v1 document
type Payload struct {
	SchemaVersion string      `json:"schema_version"`
	Session       SessionMeta `json:"session"`
	Samples       []Sample    `json:"samples"`
}

// ValidationReport is the validation outcome for a capture payload.
// It enumerates every violation, never just the first.
type ValidationReport struct {
	Valid                   bool     `json:"valid"`
	Errors                  []string `json:"errors"`
	Warnings                []string `json:"warnings"`
	SampleCount             int      `json:"sample_count"`
	ROIValidRatio           float64  `json:"roi_valid_ratio"`
	LowDepthConfidenceRatio float64  `json:"low_depth_confidence_ratio"`
}

// LevelSeries is the column-major form the fusion engine consumes.
// Missing depth/RGB readings are coerced to NaN; RGBLevelMm is nil when the
// payload carries no RGB channel at all.
type LevelSeries struct {
	TimestampsS     []float64
	DepthLevelMm    []float64
	RGBLevelMm      []float64
	DepthConfidence []float64
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

func isSupportedMode(mode string) bool {
	for _, candidate := range SupportedCaptureModes {
		if candidate == mode {
			return true
		}
	}
	return false
}

func isISO8601(value string) bool {
	if value == "" {
		return false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// ValidatePayload checks the payload against the ios_capture_v1 contract
func ValidatePayload(payload *Payload) ValidationReport {
	var errors []string
	var warnings []string

	if payload == nil {
		return ValidationReport{Valid: false, Errors: []string{"payload is required"}}
	}

	if payload.SchemaVersion != SchemaVersion {
		errors = append(errors, fmt.Sprintf("schema_version must be '%s'", SchemaVersion))
	}

	session := payload.Session
	if strings.TrimSpace(session.SessionID) == "" {
		errors = append(errors, "session.session_id must be a non-empty string")
	}
	if !isISO8601(session.StartedAt) {
		errors = append(errors, "session.started_at must be ISO-8601 timestamp")
	}
	if !isSupportedMode(session.Mode) {
		errors = append(errors, "session.mode must be one of: "+strings.Join(SupportedCaptureModes, ", "))
	}
	if !isFinite(session.Calibration.MlPerMm) || session.Calibration.MlPerMm <= 0 {
		errors = append(errors, "session.calibration.ml_per_mm must be a positive number")
	}

	if len(payload.Samples) < 2 {
		errors = append(errors, "at least two samples are required")
	}

	previousT := math.NaN()
	roiValidCount := 0
	lowConfidenceCount := 0

	for index, sample := range payload.Samples {
		if !isFinite(sample.TS) {
			errors = append(errors, fmt.Sprintf("samples[%d].t_s must be a finite number", index))
			continue
		}
		if !math.IsNaN(previousT) && sample.TS <= previousT {
			errors = append(errors, fmt.Sprintf("samples[%d].t_s must be strictly increasing", index))
		}
		previousT = sample.TS

		if !isFinite(sample.DepthConfidence) {
			errors = append(errors, fmt.Sprintf("samples[%d].depth_confidence must be in [0,1]", index))
			continue
		}
		if sample.DepthConfidence < 0.0 || sample.DepthConfidence > 1.0 {
			errors = append(errors, fmt.Sprintf("samples[%d].depth_confidence must be in [0,1]", index))
		}
		if sample.DepthConfidence < lowConfidenceThreshold {
			lowConfidenceCount++
		}

		if sample.ROIValid {
			roiValidCount++
		}

		if sample.DepthLevelMm != nil && !isFinite(*sample.DepthLevelMm) {
			errors = append(errors, fmt.Sprintf("samples[%d].depth_level_mm must be number or null", index))
		}
		if sample.RGBLevelMm != nil && !isFinite(*sample.RGBLevelMm) {
			errors = append(errors, fmt.Sprintf("samples[%d].rgb_level_mm must be number or null", index))
		}
		if sample.DepthLevelMm == nil && sample.RGBLevelMm == nil {
			errors = append(errors, fmt.Sprintf("samples[%d] must include depth_level_mm or rgb_level_mm", index))
		}

		if sample.MotionNorm != nil && (!isFinite(*sample.MotionNorm) || *sample.MotionNorm < 0) {
			errors = append(errors, fmt.Sprintf("samples[%d].motion_norm must be >= 0 when provided", index))
		}
		if sample.AudioRmsDbfs != nil && !isFinite(*sample.AudioRmsDbfs) {
			errors = append(errors, fmt.Sprintf("samples[%d].audio_rms_dbfs must be numeric when provided", index))
		}
	}

	sampleCount := len(payload.Samples)
	roiRatio := 0.0
	lowConfRatio := 0.0
	if sampleCount > 0 {
		roiRatio = float64(roiValidCount) / float64(sampleCount)
		lowConfRatio = float64(lowConfidenceCount) / float64(sampleCount)
	}

	if sampleCount > 0 && roiRatio < warnMinROIValidRatio {
		warnings = append(warnings, "ROI valid ratio < 0.85; likely repeat measurement")
	}
	if sampleCount > 0 && lowConfRatio > warnMaxLowConfRatio {
		warnings = append(warnings, "Low depth confidence ratio > 0.25; fallback reliance expected")
	}

	return ValidationReport{
		Valid:                   len(errors) == 0,
		Errors:                  errors,
		Warnings:                warnings,
		SampleCount:             sampleCount,
		ROIValidRatio:           roiRatio,
		LowDepthConfidenceRatio: lowConfRatio,
	}
}

// ToLevelSeries converts a validated payload into the series form the fusion
// engine consumes. The payload must have passed validation.
func ToLevelSeries(payload *Payload) (*LevelSeries, error) {
	report := ValidatePayload(payload)
	if !report.Valid {
		return nil, fmt.Errorf("invalid capture payload: %s", strings.Join(report.Errors, "; "))
	}

	n := len(payload.Samples)
	series := &LevelSeries{
		TimestampsS:     make([]float64, n),
		DepthLevelMm:    make([]float64, n),
		DepthConfidence: make([]float64, n),
	}

	hasAnyRGB := false
	rgb := make([]float64, n)
	for index, sample := range payload.Samples {
		series.TimestampsS[index] = sample.TS
		series.DepthConfidence[index] = sample.DepthConfidence

		if sample.DepthLevelMm != nil {
			series.DepthLevelMm[index] = *sample.DepthLevelMm
		} else {
			series.DepthLevelMm[index] = math.NaN()
		}

		if sample.RGBLevelMm != nil {
			rgb[index] = *sample.RGBLevelMm
			hasAnyRGB = true
		} else {
			rgb[index] = math.NaN()
		}
	}

	if hasAnyRGB {
		series.RGBLevelMm = rgb
	}

	return series, nil
}
