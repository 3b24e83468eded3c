// Package fusion combines depth and RGB water-level channels into one trusted
// level signal and derives volume, flow and uncertainty curves from it.
package fusion

import (
	"fmt"
	"math"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/stats"
)

// Status values for a fused measurement session
const (
	StatusValid  = "valid"
	StatusRepeat = "repeat"
	StatusReject = "reject"
)

// LevelConfig configures level-based fusion estimation
type LevelConfig struct {
	MlPerMm                 float64
	LevelSigmaMm            float64
	FlowSmoothingWindow     int
	MinDepthConfidence      float64
	MinDepthConfidenceRatio float64
	MinVoidedVolumeMl       float64
	MaxLevelNoiseMm         float64
}

// DefaultLevelConfig provides the standard fusion thresholds
func DefaultLevelConfig() LevelConfig {
	return LevelConfig{
		MlPerMm:                 1.0,
		LevelSigmaMm:            1.0,
		FlowSmoothingWindow:     5,
		MinDepthConfidence:      0.6,
		MinDepthConfidenceRatio: 0.8,
		MinVoidedVolumeMl:       150.0,
		MaxLevelNoiseMm:         2.5,
	}
}

// QualityFlags holds the quality evaluation for a fused measurement session
type QualityFlags struct {
	LowDepthConfidence   bool    `json:"low_depth_confidence"`
	InsufficientVolume   bool    `json:"insufficient_volume"`
	NoisyLevelSignal     bool    `json:"noisy_level_signal"`
	MissingRGBFallback   bool    `json:"missing_rgb_fallback"`
	FallbackToRGBUsed    bool    `json:"fallback_to_rgb_used"`
	DepthConfidenceRatio float64 `json:"depth_confidence_ratio"`
	FallbackRatio        float64 `json:"fallback_ratio"`
	LevelNoiseMm         float64 `json:"level_noise_mm"`
	Status               string  `json:"status"`
}

// EstimationResult holds estimated signals and quality metadata from a level series
type EstimationResult struct {
	TimestampsS        []float64 `json:"timestamps_s"`
	LevelMm            []float64 `json:"level_mm"`
	DepthLevelMm       []float64 `json:"depth_level_mm"`
	DepthConfidence    []float64 `json:"depth_confidence"`
	RGBLevelMm         []float64 `json:"rgb_level_mm,omitempty"`
	UsedRGBFallback    []bool    `json:"used_rgb_fallback"`
	VolumeMl           []float64 `json:"volume_ml"`
	FlowMlS            []float64 `json:"flow_ml_s"`
	LevelUncertaintyMm []float64 `json:"level_uncertainty_mm"`
	VolumeUncertainty  []float64 `json:"volume_uncertainty_ml"`
	FlowUncertainty    []float64 `json:"flow_uncertainty_ml_s"`
	Quality            QualityFlags `json:"quality"`
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

func validateTimestamps(timestampsS []float64) error {
	if len(timestampsS) < 2 {
		return fmt.Errorf("at least two timestamps are required")
	}
	previousT := timestampsS[0]
	for index := 1; index < len(timestampsS); index++ {
		if timestampsS[index] <= previousT {
			return fmt.Errorf("timestamps must be strictly increasing (index %d)", index)
		}
		previousT = timestampsS[index]
	}
	return nil
}

func validateConfidence(depthConfidence []float64) error {
	for index, value := range depthConfidence {
		if value < 0.0 || value > 1.0 {
			return fmt.Errorf("depth confidence must be in [0, 1] (index %d)", index)
		}
	}
	return nil
}

// FuseDepthAndRGBLevels selects a trusted level per sample. Depth wins when its
// confidence reaches minDepthConfidence and the reading is finite; otherwise the
// RGB channel is used when finite. When neither channel is usable the last finite
// depth reading is held, then the last fused value, then 0.0 - and the session is
// flagged as missing its RGB fallback.
func FuseDepthAndRGBLevels(depthLevelMm, depthConfidence []float64, minDepthConfidence float64, rgbLevelMm []float64) (fused []float64, usedRGB []bool, missingRGBFallback bool, err error) {
	if len(depthLevelMm) == 0 {
		return nil, nil, false, fmt.Errorf("depth_level_mm is empty")
	}
	if len(depthConfidence) != len(depthLevelMm) {
		return nil, nil, false, fmt.Errorf("depth_confidence and depth_level_mm must have equal length")
	}
	if rgbLevelMm != nil && len(rgbLevelMm) != len(depthLevelMm) {
		return nil, nil, false, fmt.Errorf("rgb_level_mm and depth_level_mm must have equal length")
	}
	if err := validateConfidence(depthConfidence); err != nil {
		return nil, nil, false, err
	}

	fused = make([]float64, len(depthLevelMm))
	usedRGB = make([]bool, len(depthLevelMm))

	lastDepth := math.NaN()
	lastFused := math.NaN()

	for index, depth := range depthLevelMm {
		if isFinite(depth) {
			lastDepth = depth
		}

		depthUsable := depthConfidence[index] >= minDepthConfidence && isFinite(depth)
		switch {
		case depthUsable:
			fused[index] = depth
		case rgbLevelMm != nil && isFinite(rgbLevelMm[index]):
			fused[index] = rgbLevelMm[index]
			usedRGB[index] = true
		case isFinite(lastDepth):
			fused[index] = lastDepth
			missingRGBFallback = true
		case isFinite(lastFused):
			fused[index] = lastFused
			missingRGBFallback = true
		default:
			fused[index] = 0.0
			missingRGBFallback = true
		}

		lastFused = fused[index]
	}

	return fused, usedRGB, missingRGBFallback, nil
}

// EstimateVolumeCurve converts a level series into cumulative volume relative to
// the baseline. Readings below baseline are sensor noise, not negative volume,
// so per-sample deltas are clipped to zero.
func EstimateVolumeCurve(levelMm []float64, mlPerMm float64) ([]float64, error) {
	if len(levelMm) == 0 {
		return nil, fmt.Errorf("level_mm is empty")
	}
	if mlPerMm <= 0 {
		return nil, fmt.Errorf("ml_per_mm must be positive")
	}

	baseline := levelMm[0]
	volumeMl := make([]float64, len(levelMm))
	for index, level := range levelMm {
		volumeMl[index] = math.Max((level-baseline)*mlPerMm, 0.0)
	}
	return volumeMl, nil
}

// EstimateFlowCurve differentiates V(t) and smooths the result to estimate Q(t)
// Central differences interior, forward/backward at the boundaries
func EstimateFlowCurve(timestampsS, volumeMl []float64, smoothingWindow int) ([]float64, error) {
	if len(timestampsS) != len(volumeMl) {
		return nil, fmt.Errorf("timestamps_s and volume_ml must have equal length")
	}
	if err := validateTimestamps(timestampsS); err != nil {
		return nil, err
	}

	n := len(volumeMl)
	flowRaw := make([]float64, n)
	for index := 0; index < n; index++ {
		var dv, dt float64
		switch index {
		case 0:
			dv = volumeMl[1] - volumeMl[0]
			dt = timestampsS[1] - timestampsS[0]
		case n - 1:
			dv = volumeMl[n-1] - volumeMl[n-2]
			dt = timestampsS[n-1] - timestampsS[n-2]
		default:
			dv = volumeMl[index+1] - volumeMl[index-1]
			dt = timestampsS[index+1] - timestampsS[index-1]
		}
		flowRaw[index] = math.Max(dv/dt, 0.0)
	}

	return stats.MovingAverage(flowRaw, smoothingWindow), nil
}

// EstimateFlowUncertainty approximates sigma(Q) from a constant level sigma
// propagated through the finite-difference operator:
// sigma_Q[i] = sqrt(2) * sigma_V / dt[i], with dt[i] the difference span at i
func EstimateFlowUncertainty(timestampsS []float64, mlPerMm, levelSigmaMm float64) ([]float64, error) {
	if mlPerMm <= 0 {
		return nil, fmt.Errorf("ml_per_mm must be positive")
	}
	if levelSigmaMm <= 0 {
		return nil, fmt.Errorf("level_sigma_mm must be positive")
	}
	if err := validateTimestamps(timestampsS); err != nil {
		return nil, err
	}

	n := len(timestampsS)
	sigmaV := mlPerMm * levelSigmaMm
	sigmaQ := make([]float64, n)
	for index := 0; index < n; index++ {
		var dt float64
		switch index {
		case 0:
			dt = timestampsS[1] - timestampsS[0]
		case n - 1:
			dt = timestampsS[n-1] - timestampsS[n-2]
		default:
			dt = timestampsS[index+1] - timestampsS[index-1]
		}
		sigmaQ[index] = math.Sqrt2 * sigmaV / dt
	}
	return sigmaQ, nil
}

func estimateLevelNoiseMm(levelMm []float64) float64 {
	if len(levelMm) < 2 {
		return 0.0
	}
	smoothed := stats.MovingAverage(levelMm, 5)
	residual := make([]float64, len(levelMm))
	for index := range levelMm {
		residual[index] = levelMm[index] - smoothed[index]
	}
	return stats.PStdDev(residual)
}

type verdictRule struct {
	match  func(QualityFlags) bool
	status string
}

// verdictRules is evaluated first-match-wins; order is load-bearing
var verdictRules = []verdictRule{
	{
		match: func(f QualityFlags) bool {
			return f.MissingRGBFallback && f.LowDepthConfidence
		},
		status: StatusReject,
	},
	{
		match: func(f QualityFlags) bool {
			return f.LowDepthConfidence && f.NoisyLevelSignal && !f.FallbackToRGBUsed
		},
		status: StatusReject,
	},
	{
		match: func(f QualityFlags) bool {
			return f.InsufficientVolume || f.NoisyLevelSignal
		},
		status: StatusRepeat,
	},
	{
		match: func(f QualityFlags) bool {
			return f.LowDepthConfidence && !f.FallbackToRGBUsed
		},
		status: StatusRepeat,
	},
}

func resolveStatus(flags QualityFlags) string {
	for _, rule := range verdictRules {
		if rule.match(flags) {
			return rule.status
		}
	}
	return StatusValid
}

// EvaluateFusionQuality derives session-level quality flags and the verdict
func EvaluateFusionQuality(depthConfidence, volumeMl, levelMm []float64, usedRGB []bool, missingRGBFallback bool, config LevelConfig) (QualityFlags, error) {
	if len(depthConfidence) != len(levelMm) {
		return QualityFlags{}, fmt.Errorf("depth_confidence and level_mm must have equal length")
	}
	if err := validateConfidence(depthConfidence); err != nil {
		return QualityFlags{}, err
	}
	if len(volumeMl) == 0 {
		return QualityFlags{}, fmt.Errorf("volume_ml is empty")
	}

	aboveThreshold := 0
	for _, value := range depthConfidence {
		if value >= config.MinDepthConfidence {
			aboveThreshold++
		}
	}
	confidenceRatio := float64(aboveThreshold) / float64(len(depthConfidence))

	fallbackCount := 0
	for _, used := range usedRGB {
		if used {
			fallbackCount++
		}
	}
	fallbackRatio := 0.0
	if len(usedRGB) > 0 {
		fallbackRatio = float64(fallbackCount) / float64(len(usedRGB))
	}

	levelNoiseMm := estimateLevelNoiseMm(levelMm)
	flags := QualityFlags{
		LowDepthConfidence:   confidenceRatio < config.MinDepthConfidenceRatio,
		InsufficientVolume:   volumeMl[len(volumeMl)-1] < config.MinVoidedVolumeMl,
		NoisyLevelSignal:     levelNoiseMm > config.MaxLevelNoiseMm,
		MissingRGBFallback:   missingRGBFallback,
		FallbackToRGBUsed:    fallbackCount > 0,
		DepthConfidenceRatio: confidenceRatio,
		FallbackRatio:        fallbackRatio,
		LevelNoiseMm:         levelNoiseMm,
	}
	flags.Status = resolveStatus(flags)
	return flags, nil
}

// EstimateFromLevelSeries runs the full fusion pipeline for one session:
// channel fusion, volume and flow estimation, uncertainty propagation and the
// quality verdict. The result is immutable after creation.
func EstimateFromLevelSeries(timestampsS, depthLevelMm, depthConfidence, rgbLevelMm []float64, config LevelConfig) (*EstimationResult, error) {
	if len(timestampsS) != len(depthLevelMm) {
		return nil, fmt.Errorf("timestamps_s and level_mm must have equal length")
	}
	if len(depthLevelMm) == 0 {
		return nil, fmt.Errorf("level_mm is empty")
	}
	if err := validateTimestamps(timestampsS); err != nil {
		return nil, err
	}

	confidence := depthConfidence
	if confidence == nil {
		confidence = make([]float64, len(depthLevelMm))
		for index := range confidence {
			confidence[index] = 1.0
		}
	}
	if len(confidence) != len(depthLevelMm) {
		return nil, fmt.Errorf("depth_confidence and level_mm must have equal length")
	}

	fusedLevel, usedRGB, missingRGB, err := FuseDepthAndRGBLevels(depthLevelMm, confidence, config.MinDepthConfidence, rgbLevelMm)
	if err != nil {
		return nil, err
	}

	volumeMl, err := EstimateVolumeCurve(fusedLevel, config.MlPerMm)
	if err != nil {
		return nil, err
	}

	flowMlS, err := EstimateFlowCurve(timestampsS, volumeMl, config.FlowSmoothingWindow)
	if err != nil {
		return nil, err
	}

	flowUncertainty, err := EstimateFlowUncertainty(timestampsS, config.MlPerMm, config.LevelSigmaMm)
	if err != nil {
		return nil, err
	}

	levelUncertainty := make([]float64, len(timestampsS))
	volumeUncertainty := make([]float64, len(timestampsS))
	sigmaV := config.MlPerMm * config.LevelSigmaMm
	for index := range timestampsS {
		levelUncertainty[index] = config.LevelSigmaMm
		// Volume is a difference of two level readings, so its sigma carries sqrt(2)
		volumeUncertainty[index] = math.Sqrt2 * sigmaV
	}

	quality, err := EvaluateFusionQuality(confidence, volumeMl, fusedLevel, usedRGB, missingRGB, config)
	if err != nil {
		return nil, err
	}

	return &EstimationResult{
		TimestampsS:        timestampsS,
		LevelMm:            fusedLevel,
		DepthLevelMm:       depthLevelMm,
		DepthConfidence:    confidence,
		RGBLevelMm:         rgbLevelMm,
		UsedRGBFallback:    usedRGB,
		VolumeMl:           volumeMl,
		FlowMlS:            flowMlS,
		LevelUncertaintyMm: levelUncertainty,
		VolumeUncertainty:  volumeUncertainty,
		FlowUncertainty:    flowUncertainty,
		Quality:            quality,
	}, nil
}
