package session

import (
	"fmt"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/capture"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/events"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/fusion"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/metrics"
)

// computeQuality derives the composite session score and verdict. Each penalty
// scales with how far the metric sits beyond its threshold, capped per cause;
// flat penalties cover binary signal-quality flags.
func computeQuality(
	summary metrics.UroflowSummary,
	fusionResult *fusion.EstimationResult,
	eventDetection events.DetectionResult,
	validation capture.ValidationReport,
	samples []capture.Sample,
	cfg Config,
) (Quality, error) {
	if cfg.RejectQualityScore >= cfg.ValidQualityScore {
		return Quality{}, fmt.Errorf("reject_quality_score must be lower than valid_quality_score")
	}

	motionValues := extractOptionalSeries(samples, func(s capture.Sample) *float64 { return s.MotionNorm })
	audioValues := extractOptionalSeries(samples, func(s capture.Sample) *float64 { return s.AudioRmsDbfs })

	highMotionRatio := ratioAbove(motionValues, cfg.HighMotionThreshold)
	audioClippingRatio := ratioAbove(audioValues, cfg.AudioClipDbfs)

	motionCoverageRatio := coverageRatio(len(samples), len(motionValues))
	audioCoverageRatio := coverageRatio(len(samples), len(audioValues))

	score := 100.0
	var reasons []string

	if validation.ROIValidRatio < cfg.MinROIValidRatio {
		deficit := (cfg.MinROIValidRatio - validation.ROIValidRatio) / cfg.MinROIValidRatio
		score -= min(25.0, 25.0*max(deficit, 0.0))
		reasons = append(reasons, fmt.Sprintf(
			"roi_valid_ratio_below_threshold(%.3f < %.3f)",
			validation.ROIValidRatio, cfg.MinROIValidRatio))
	}

	if validation.LowDepthConfidenceRatio > cfg.MaxLowDepthConfidenceRatio {
		excess := (validation.LowDepthConfidenceRatio - cfg.MaxLowDepthConfidenceRatio) /
			max(1e-9, 1.0-cfg.MaxLowDepthConfidenceRatio)
		score -= min(15.0, 15.0*max(excess, 0.0))
		reasons = append(reasons, fmt.Sprintf(
			"low_depth_confidence_ratio_above_threshold(%.3f > %.3f)",
			validation.LowDepthConfidenceRatio, cfg.MaxLowDepthConfidenceRatio))
	}

	if highMotionRatio > cfg.MaxHighMotionRatio {
		excess := (highMotionRatio - cfg.MaxHighMotionRatio) / max(1e-9, 1.0-cfg.MaxHighMotionRatio)
		score -= min(20.0, 20.0*max(excess, 0.0))
		reasons = append(reasons, fmt.Sprintf(
			"high_motion_ratio_above_threshold(%.3f > %.3f)",
			highMotionRatio, cfg.MaxHighMotionRatio))
	}

	if audioClippingRatio > cfg.MaxAudioClippingRatio {
		excess := (audioClippingRatio - cfg.MaxAudioClippingRatio) / max(1e-9, 1.0-cfg.MaxAudioClippingRatio)
		score -= min(10.0, 10.0*max(excess, 0.0))
		reasons = append(reasons, fmt.Sprintf(
			"audio_clipping_ratio_above_threshold(%.3f > %.3f)",
			audioClippingRatio, cfg.MaxAudioClippingRatio))
	}

	if summary.VoidedVolumeMl < cfg.MinRepresentativeVolumeMl {
		deficit := (cfg.MinRepresentativeVolumeMl - summary.VoidedVolumeMl) / cfg.MinRepresentativeVolumeMl
		score -= min(20.0, 20.0*max(deficit, 0.0))
		reasons = append(reasons, fmt.Sprintf(
			"volume_below_representative_threshold(%.1f < %.1f)",
			summary.VoidedVolumeMl, cfg.MinRepresentativeVolumeMl))
	}

	if !eventDetection.Detected {
		score -= 20.0
		reasons = append(reasons, "event_not_detected")
	} else if eventDetection.Confidence < cfg.MinEventConfidence {
		deficit := (cfg.MinEventConfidence - eventDetection.Confidence) / max(cfg.MinEventConfidence, 1e-9)
		score -= min(10.0, 10.0*max(deficit, 0.0))
		reasons = append(reasons, fmt.Sprintf(
			"event_confidence_below_threshold(%.3f < %.3f)",
			eventDetection.Confidence, cfg.MinEventConfidence))
	}

	if fusionResult.Quality.FallbackToRGBUsed {
		score -= 5.0
		reasons = append(reasons, "rgb_fallback_used")
	}
	if fusionResult.Quality.NoisyLevelSignal {
		score -= 10.0
		reasons = append(reasons, "noisy_level_signal")
	}
	if fusionResult.Quality.MissingRGBFallback {
		score -= 20.0
		reasons = append(reasons, "missing_rgb_fallback")
	}

	switch fusionResult.Quality.Status {
	case fusion.StatusRepeat:
		score -= 10.0
		reasons = append(reasons, "fusion_quality_repeat")
	case fusion.StatusReject:
		score -= 30.0
		reasons = append(reasons, "fusion_quality_reject")
	}

	score = max(0.0, min(100.0, score))

	var status string
	switch {
	case fusionResult.Quality.Status == fusion.StatusReject || score < cfg.RejectQualityScore:
		status = StatusReject
	case fusionResult.Quality.Status == fusion.StatusRepeat || score < cfg.ValidQualityScore:
		status = StatusRepeat
	default:
		status = StatusValid
	}

	// An undetected voiding event is never allowed to pass as a clean session.
	if !eventDetection.Detected && status == StatusValid {
		status = StatusRepeat
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "quality_within_limits")
	}

	return Quality{
		Score:                   score,
		Status:                  status,
		Reasons:                 reasons,
		ROIValidRatio:           validation.ROIValidRatio,
		LowDepthConfidenceRatio: validation.LowDepthConfidenceRatio,
		HighMotionRatio:         highMotionRatio,
		MotionCoverageRatio:     motionCoverageRatio,
		AudioClippingRatio:      audioClippingRatio,
		AudioCoverageRatio:      audioCoverageRatio,
	}, nil
}
