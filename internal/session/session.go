// Package session orchestrates full capture-session analysis: contract
// validation, level fusion, event detection, uroflow metrics and the composite
// quality verdict.
package session

import (
	"fmt"
	"math"
	"strings"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/capture"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/events"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/fusion"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/metrics"
)

// Session status values
const (
	StatusValid  = "valid"
	StatusRepeat = "repeat"
	StatusReject = "reject"
)

// Config configures end-to-end capture-session analysis.
// The penalty weights and caps in the quality section are empirically chosen
// constants carried over from pilot tuning; retuning them is a clinical
// decision, not an engineering one.
type Config struct {
	MlPerMmOverride *float64

	LevelSigmaMm            float64
	FlowSmoothingWindow     int
	MinDepthConfidence      float64
	MinDepthConfidenceRatio float64
	MinVoidedVolumeMl       float64
	MaxLevelNoiseMm         float64

	FlowThresholdMlS float64
	MinPauseS        float64

	EventFlowThresholdMlS     float64
	EventMinAudioDeltaDb      float64
	EventAudioNoisePercentile float64
	EventMinActiveDurationS   float64
	EventMaxGapS              float64
	EventPaddingS             float64
	EventMinDurationS         float64

	MinROIValidRatio           float64
	MaxLowDepthConfidenceRatio float64
	HighMotionThreshold        float64
	MaxHighMotionRatio         float64
	AudioClipDbfs              float64
	MaxAudioClippingRatio      float64
	MinRepresentativeVolumeMl  float64
	MinEventConfidence         float64

	ValidQualityScore  float64
	RejectQualityScore float64
}

// DefaultConfig returns the standard analysis configuration
func DefaultConfig() Config {
	return Config{
		LevelSigmaMm:            1.0,
		FlowSmoothingWindow:     5,
		MinDepthConfidence:      0.6,
		MinDepthConfidenceRatio: 0.8,
		MinVoidedVolumeMl:       150.0,
		MaxLevelNoiseMm:         2.5,

		FlowThresholdMlS: 0.2,
		MinPauseS:        0.5,

		EventFlowThresholdMlS:     0.2,
		EventMinAudioDeltaDb:      6.0,
		EventAudioNoisePercentile: 20.0,
		EventMinActiveDurationS:   0.4,
		EventMaxGapS:              0.3,
		EventPaddingS:             0.2,
		EventMinDurationS:         1.0,

		MinROIValidRatio:           0.85,
		MaxLowDepthConfidenceRatio: 0.25,
		HighMotionThreshold:        0.2,
		MaxHighMotionRatio:         0.15,
		AudioClipDbfs:              -3.0,
		MaxAudioClippingRatio:      0.05,
		MinRepresentativeVolumeMl:  150.0,
		MinEventConfidence:         0.5,

		ValidQualityScore:  75.0,
		RejectQualityScore: 40.0,
	}
}

// Quality is the composite quality envelope for a capture session
type Quality struct {
	Score                   float64  `json:"score"`
	Status                  string   `json:"status"`
	Reasons                 []string `json:"reasons"`
	ROIValidRatio           float64  `json:"roi_valid_ratio"`
	LowDepthConfidenceRatio float64  `json:"low_depth_confidence_ratio"`
	HighMotionRatio         float64  `json:"high_motion_ratio"`
	MotionCoverageRatio     float64  `json:"motion_coverage_ratio"`
	AudioClippingRatio      float64  `json:"audio_clipping_ratio"`
	AudioCoverageRatio      float64  `json:"audio_coverage_ratio"`
}

// Analysis is the final artifact set for a validated capture payload
type Analysis struct {
	SessionID      string                    `json:"session_id"`
	SyncID         *string                   `json:"sync_id,omitempty"`
	Mode           string                    `json:"mode"`
	MlPerMm        float64                   `json:"ml_per_mm"`
	Summary        metrics.UroflowSummary    `json:"summary"`
	Fusion         *fusion.EstimationResult  `json:"fusion"`
	Validation     capture.ValidationReport  `json:"validation"`
	EventDetection events.DetectionResult    `json:"event_detection"`
	Quality        Quality                   `json:"quality"`
}

func resolveMlPerMm(payload *capture.Payload, cfg Config) (float64, error) {
	if cfg.MlPerMmOverride != nil {
		if *cfg.MlPerMmOverride <= 0 {
			return 0, fmt.Errorf("ml_per_mm_override must be positive")
		}
		return *cfg.MlPerMmOverride, nil
	}
	return payload.Session.Calibration.MlPerMm, nil
}

// resolveMinDepthConfidence prefers the payload calibration value when it is
// sane, falling back to the configured default otherwise
func resolveMinDepthConfidence(payload *capture.Payload, defaultValue float64) float64 {
	candidate := payload.Session.Calibration.MinDepthConfidence
	if candidate == nil {
		return defaultValue
	}
	if math.IsNaN(*candidate) || *candidate <= 0.0 || *candidate > 1.0 {
		return defaultValue
	}
	return *candidate
}

// sliceFusionResult narrows a fusion result to the detected event window,
// re-basing timestamps to zero and volume to the window start
func sliceFusionResult(result *fusion.EstimationResult, indices []int) *fusion.EstimationResult {
	if len(indices) < 2 {
		return result
	}

	baseIndex := indices[0]
	baseTime := result.TimestampsS[baseIndex]
	baseVolume := result.VolumeMl[baseIndex]

	pickFloats := func(values []float64) []float64 {
		out := make([]float64, len(indices))
		for i, index := range indices {
			out[i] = values[index]
		}
		return out
	}
	pickBools := func(values []bool) []bool {
		out := make([]bool, len(indices))
		for i, index := range indices {
			out[i] = values[index]
		}
		return out
	}

	sliced := &fusion.EstimationResult{
		TimestampsS:        make([]float64, len(indices)),
		LevelMm:            pickFloats(result.LevelMm),
		DepthLevelMm:       pickFloats(result.DepthLevelMm),
		DepthConfidence:    pickFloats(result.DepthConfidence),
		UsedRGBFallback:    pickBools(result.UsedRGBFallback),
		VolumeMl:           make([]float64, len(indices)),
		FlowMlS:            pickFloats(result.FlowMlS),
		LevelUncertaintyMm: pickFloats(result.LevelUncertaintyMm),
		VolumeUncertainty:  pickFloats(result.VolumeUncertainty),
		FlowUncertainty:    pickFloats(result.FlowUncertainty),
		Quality:            result.Quality,
	}
	if result.RGBLevelMm != nil {
		sliced.RGBLevelMm = pickFloats(result.RGBLevelMm)
	}

	for i, index := range indices {
		sliced.TimestampsS[i] = result.TimestampsS[index] - baseTime
		sliced.VolumeMl[i] = math.Max(result.VolumeMl[index]-baseVolume, 0.0)
	}

	return sliced
}

func extractOptionalSeries(samples []capture.Sample, pick func(capture.Sample) *float64) []float64 {
	var values []float64
	for _, sample := range samples {
		if value := pick(sample); value != nil {
			values = append(values, *value)
		}
	}
	return values
}

// extractAudioSeries returns nil when no sample carries audio; otherwise a
// full-length series with NaN at the samples that lack it
func extractAudioSeries(samples []capture.Sample) []float64 {
	hasAny := false
	for _, sample := range samples {
		if sample.AudioRmsDbfs != nil {
			hasAny = true
			break
		}
	}
	if !hasAny {
		return nil
	}

	series := make([]float64, len(samples))
	for index, sample := range samples {
		if sample.AudioRmsDbfs != nil {
			series[index] = *sample.AudioRmsDbfs
		} else {
			series[index] = math.NaN()
		}
	}
	return series
}

func ratioAbove(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	count := 0
	for _, value := range values {
		if value > threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

func coverageRatio(total, part int) float64 {
	if total <= 0 {
		return 0.0
	}
	return float64(part) / float64(total)
}

// AnalyzeCaptureSession runs the full pipeline from iOS payload to uroflow summary
func AnalyzeCaptureSession(payload *capture.Payload, cfg Config) (*Analysis, error) {
	validation := capture.ValidatePayload(payload)
	if !validation.Valid {
		return nil, fmt.Errorf("invalid capture payload: %s", strings.Join(validation.Errors, "; "))
	}

	series, err := capture.ToLevelSeries(payload)
	if err != nil {
		return nil, err
	}

	mlPerMm, err := resolveMlPerMm(payload, cfg)
	if err != nil {
		return nil, err
	}
	minDepthConfidence := resolveMinDepthConfidence(payload, cfg.MinDepthConfidence)

	fusionConfig := fusion.LevelConfig{
		MlPerMm:                 mlPerMm,
		LevelSigmaMm:            cfg.LevelSigmaMm,
		FlowSmoothingWindow:     cfg.FlowSmoothingWindow,
		MinDepthConfidence:      minDepthConfidence,
		MinDepthConfidenceRatio: cfg.MinDepthConfidenceRatio,
		MinVoidedVolumeMl:       cfg.MinVoidedVolumeMl,
		MaxLevelNoiseMm:         cfg.MaxLevelNoiseMm,
	}

	fusionResult, err := fusion.EstimateFromLevelSeries(series.TimestampsS, series.DepthLevelMm, series.DepthConfidence, series.RGBLevelMm, fusionConfig)
	if err != nil {
		return nil, fmt.Errorf("fusion failed: %w", err)
	}

	roiValid := make([]bool, len(payload.Samples))
	for index, sample := range payload.Samples {
		roiValid[index] = sample.ROIValid
	}
	audioRmsDbfs := extractAudioSeries(payload.Samples)

	eventConfig := events.DetectionConfig{
		FlowThresholdMlS:     cfg.EventFlowThresholdMlS,
		MinAudioDeltaDb:      cfg.EventMinAudioDeltaDb,
		AudioNoisePercentile: cfg.EventAudioNoisePercentile,
		MinActiveDurationS:   cfg.EventMinActiveDurationS,
		MaxGapS:              cfg.EventMaxGapS,
		PaddingS:             cfg.EventPaddingS,
		MinEventDurationS:    cfg.EventMinDurationS,
	}
	eventDetection, err := events.DetectVoidingInterval(fusionResult.TimestampsS, fusionResult.FlowMlS, roiValid, audioRmsDbfs, eventConfig)
	if err != nil {
		return nil, fmt.Errorf("event detection failed: %w", err)
	}

	fusionForSummary := fusionResult
	if eventDetection.Detected {
		indices, err := events.SliceIndicesForInterval(fusionResult.TimestampsS, eventDetection.StartTimeS, eventDetection.EndTimeS)
		if err != nil {
			return nil, err
		}
		fusionForSummary = sliceFusionResult(fusionResult, indices)
	}

	summary, err := metrics.CalculateUroflowSummary(fusionForSummary.TimestampsS, fusionForSummary.FlowMlS, metrics.Options{
		FlowThresholdMlS: cfg.FlowThresholdMlS,
		MinPauseS:        cfg.MinPauseS,
	})
	if err != nil {
		return nil, fmt.Errorf("summary calculation failed: %w", err)
	}

	quality, err := computeQuality(summary, fusionForSummary, eventDetection, validation, payload.Samples, cfg)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		SessionID:      payload.Session.SessionID,
		SyncID:         payload.Session.SyncID,
		Mode:           payload.Session.Mode,
		MlPerMm:        mlPerMm,
		Summary:        summary,
		Fusion:         fusionForSummary,
		Validation:     validation,
		EventDetection: eventDetection,
		Quality:        quality,
	}, nil
}
