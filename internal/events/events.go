// Package events finds the most plausible contiguous voiding interval inside a
// longer raw capture, fusing ROI validity, flow and optional audio energy.
package events

import (
	"fmt"
	"math"
	"sort"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/stats"
)

// Detection methods
const (
	MethodAudioROIFlowFusion = "audio_roi_flow_fusion"
	MethodROIFlowFallback    = "roi_flow_fallback"
)

// DetectionConfig configures capture-event detection
type DetectionConfig struct {
	FlowThresholdMlS     float64
	MinAudioDeltaDb      float64
	AudioNoisePercentile float64
	MinActiveDurationS   float64
	MaxGapS              float64
	PaddingS             float64
	MinEventDurationS    float64
}

// DefaultDetectionConfig provides the standard detection thresholds
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		FlowThresholdMlS:     0.2,
		MinAudioDeltaDb:      6.0,
		AudioNoisePercentile: 20.0,
		MinActiveDurationS:   0.4,
		MaxGapS:              0.3,
		PaddingS:             0.2,
		MinEventDurationS:    1.0,
	}
}

// DetectionResult describes the detected active interval for a voiding event
type DetectionResult struct {
	Detected           bool     `json:"detected"`
	StartTimeS         float64  `json:"start_time_s"`
	EndTimeS           float64  `json:"end_time_s"`
	DurationS          float64  `json:"duration_s"`
	Method             string   `json:"method"`
	Confidence         float64  `json:"confidence"`
	ActiveRatio        float64  `json:"active_ratio"`
	FlowActiveRatio    float64  `json:"flow_active_ratio"`
	ROIValidRatio      float64  `json:"roi_valid_ratio"`
	AudioCoverageRatio float64  `json:"audio_coverage_ratio"`
	AudioActiveRatio   float64  `json:"audio_active_ratio"`
	AudioThresholdDbfs *float64 `json:"audio_threshold_dbfs,omitempty"`
}

type run struct {
	start int
	end   int // inclusive
}

func validateLengths(timestampsS, flowMlS []float64, roiValid []bool, audioRmsDbfs []float64) error {
	n := len(timestampsS)
	if n < 2 {
		return fmt.Errorf("at least two samples are required")
	}
	if len(flowMlS) != n {
		return fmt.Errorf("timestamps_s and flow_ml_s must have equal length")
	}
	if len(roiValid) != n {
		return fmt.Errorf("timestamps_s and roi_valid must have equal length")
	}
	if audioRmsDbfs != nil && len(audioRmsDbfs) != n {
		return fmt.Errorf("timestamps_s and audio_rms_dbfs must have equal length")
	}

	previousT := timestampsS[0]
	for index := 1; index < n; index++ {
		if timestampsS[index] <= previousT {
			return fmt.Errorf("timestamps must be strictly increasing (index %d)", index)
		}
		previousT = timestampsS[index]
	}
	return nil
}

func medianSampleDt(timestampsS []float64) float64 {
	diffs := make([]float64, 0, len(timestampsS)-1)
	for index := 1; index < len(timestampsS); index++ {
		diffs = append(diffs, timestampsS[index]-timestampsS[index-1])
	}
	sort.Float64s(diffs)
	middle := len(diffs) / 2
	if len(diffs)%2 == 1 {
		return diffs[middle]
	}
	return 0.5 * (diffs[middle-1] + diffs[middle])
}

func findTrueRuns(mask []bool) []run {
	var runs []run
	start := -1
	for index, value := range mask {
		if value && start < 0 {
			start = index
		} else if !value && start >= 0 {
			runs = append(runs, run{start: start, end: index - 1})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, run{start: start, end: len(mask) - 1})
	}
	return runs
}

// fillShortGaps bridges false gaps of at most maxGapSamples between true runs
func fillShortGaps(mask []bool, maxGapSamples int) []bool {
	if maxGapSamples <= 0 {
		return mask
	}

	runs := findTrueRuns(mask)
	if len(runs) < 2 {
		return mask
	}

	filled := make([]bool, len(mask))
	copy(filled, mask)
	for i := 0; i < len(runs)-1; i++ {
		gapStart := runs[i].end + 1
		gapEnd := runs[i+1].start - 1
		if gapEnd-gapStart+1 <= maxGapSamples {
			for index := gapStart; index <= gapEnd; index++ {
				filled[index] = true
			}
		}
	}
	return filled
}

// removeShortTrueRuns clears true runs shorter than minRunSamples
func removeShortTrueRuns(mask []bool, minRunSamples int) []bool {
	if minRunSamples <= 1 {
		return mask
	}

	filtered := make([]bool, len(mask))
	copy(filtered, mask)
	for _, r := range findTrueRuns(mask) {
		if r.end-r.start+1 < minRunSamples {
			for index := r.start; index <= r.end; index++ {
				filtered[index] = false
			}
		}
	}
	return filtered
}

// selectPrimaryRun picks the run with the greatest flow energy, not the longest
func selectPrimaryRun(runs []run, flowMlS []float64) run {
	best := runs[0]
	bestScore := -1.0
	for _, r := range runs {
		score := 0.0
		for index := r.start; index <= r.end; index++ {
			score += flowMlS[index]
		}
		if score > bestScore {
			bestScore = score
			best = r
		}
	}
	return best
}

func deriveAudioMask(audioRmsDbfs []float64, config DetectionConfig) (mask []bool, thresholdDbfs *float64, coverage, activeRatio float64) {
	if audioRmsDbfs == nil {
		return nil, nil, 0.0, 0.0
	}

	finiteCount := 0
	for _, value := range audioRmsDbfs {
		if !math.IsNaN(value) && !math.IsInf(value, 0) {
			finiteCount++
		}
	}
	coverage = float64(finiteCount) / float64(len(audioRmsDbfs))
	if finiteCount == 0 {
		return nil, nil, coverage, 0.0
	}

	noiseFloorDbfs, _ := stats.FinitePercentile(audioRmsDbfs, config.AudioNoisePercentile)
	threshold := noiseFloorDbfs + config.MinAudioDeltaDb

	mask = make([]bool, len(audioRmsDbfs))
	active := 0
	for index, value := range audioRmsDbfs {
		isActive := !math.IsNaN(value) && !math.IsInf(value, 0) && value >= threshold
		mask[index] = isActive
		if isActive {
			active++
		}
	}

	return mask, &threshold, coverage, float64(active) / float64(len(mask))
}

func ratioTrue(mask []bool) float64 {
	if len(mask) == 0 {
		return 0.0
	}
	count := 0
	for _, value := range mask {
		if value {
			count++
		}
	}
	return float64(count) / float64(len(mask))
}

func clamp01(value float64) float64 {
	return math.Max(0.0, math.Min(1.0, value))
}

// DetectVoidingInterval detects the active voiding interval from ROI validity,
// the flow curve and (when available) the audio energy channel
func DetectVoidingInterval(timestampsS, flowMlS []float64, roiValid []bool, audioRmsDbfs []float64, config DetectionConfig) (DetectionResult, error) {
	if err := validateLengths(timestampsS, flowMlS, roiValid, audioRmsDbfs); err != nil {
		return DetectionResult{}, err
	}
	if config.FlowThresholdMlS < 0 {
		return DetectionResult{}, fmt.Errorf("flow_threshold_ml_s must be >= 0")
	}

	dt := medianSampleDt(timestampsS)
	minRunSamples := int(math.Ceil(config.MinActiveDurationS / dt))
	if minRunSamples < 1 {
		minRunSamples = 1
	}
	maxGapSamples := int(math.Floor(config.MaxGapS / dt))
	if maxGapSamples < 0 {
		maxGapSamples = 0
	}
	paddingSamples := int(math.Ceil(config.PaddingS / dt))
	if paddingSamples < 0 {
		paddingSamples = 0
	}

	flowMask := make([]bool, len(flowMlS))
	for index, value := range flowMlS {
		flowMask[index] = value >= config.FlowThresholdMlS
	}

	audioMask, audioThresholdDbfs, audioCoverage, audioActiveRatio := deriveAudioMask(audioRmsDbfs, config)

	var method string
	combined := make([]bool, len(roiValid))
	if audioMask == nil {
		method = MethodROIFlowFallback
		for index := range combined {
			combined[index] = roiValid[index] && flowMask[index]
		}
	} else {
		method = MethodAudioROIFlowFusion
		for index := range combined {
			combined[index] = roiValid[index] && (flowMask[index] || audioMask[index])
		}
	}

	combined = fillShortGaps(combined, maxGapSamples)
	combined = removeShortTrueRuns(combined, minRunSamples)

	runs := findTrueRuns(combined)
	if len(runs) == 0 {
		return DetectionResult{
			Detected:           false,
			StartTimeS:         timestampsS[0],
			EndTimeS:           timestampsS[len(timestampsS)-1],
			DurationS:          timestampsS[len(timestampsS)-1] - timestampsS[0],
			Method:             method,
			Confidence:         0.0,
			ActiveRatio:        0.0,
			FlowActiveRatio:    ratioTrue(flowMask),
			ROIValidRatio:      ratioTrue(roiValid),
			AudioCoverageRatio: audioCoverage,
			AudioActiveRatio:   audioActiveRatio,
			AudioThresholdDbfs: audioThresholdDbfs,
		}, nil
	}

	primary := selectPrimaryRun(runs, flowMlS)
	start := primary.start - paddingSamples
	if start < 0 {
		start = 0
	}
	end := primary.end + paddingSamples
	if end > len(timestampsS)-1 {
		end = len(timestampsS) - 1
	}

	startTimeS := timestampsS[start]
	endTimeS := timestampsS[end]
	durationS := endTimeS - startTimeS

	flowStrength := 0.0
	for index := start; index <= end; index++ {
		if flowMlS[index] > flowStrength {
			flowStrength = flowMlS[index]
		}
	}
	normFlowStrength := clamp01(flowStrength / math.Max(config.FlowThresholdMlS*3.0, 1e-6))

	roiRatioRun := ratioTrue(roiValid[start : end+1])
	var confidence float64
	if audioMask == nil {
		confidence = 0.5*roiRatioRun + 0.5*normFlowStrength
	} else {
		overlap := make([]bool, end-start+1)
		for index := start; index <= end; index++ {
			overlap[index-start] = flowMask[index] && audioMask[index]
		}
		agreement := ratioTrue(overlap)
		confidence = 0.35*roiRatioRun + 0.35*agreement + 0.30*normFlowStrength
	}
	confidence = clamp01(confidence)

	return DetectionResult{
		Detected:           durationS >= config.MinEventDurationS,
		StartTimeS:         startTimeS,
		EndTimeS:           endTimeS,
		DurationS:          durationS,
		Method:             method,
		Confidence:         confidence,
		ActiveRatio:        ratioTrue(combined),
		FlowActiveRatio:    ratioTrue(flowMask),
		ROIValidRatio:      ratioTrue(roiValid),
		AudioCoverageRatio: audioCoverage,
		AudioActiveRatio:   audioActiveRatio,
		AudioThresholdDbfs: audioThresholdDbfs,
	}, nil
}

// SliceIndicesForInterval returns the sample indices inside [startTimeS, endTimeS]
func SliceIndicesForInterval(timestampsS []float64, startTimeS, endTimeS float64) ([]int, error) {
	if startTimeS > endTimeS {
		return nil, fmt.Errorf("start_time_s must be <= end_time_s")
	}

	var indices []int
	for index, timestamp := range timestampsS {
		if timestamp >= startTimeS && timestamp <= endTimeS {
			indices = append(indices, index)
		}
	}
	return indices, nil
}
