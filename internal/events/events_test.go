package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTrue(n int) []bool {
	mask := make([]bool, n)
	for index := range mask {
		mask[index] = true
	}
	return mask
}

func TestDetectVoidingIntervalWithAudioROIFlowFusion(t *testing.T) {
	timestamps := make([]float64, 10)
	for index := range timestamps {
		timestamps[index] = float64(index)
	}
	flow := []float64{0.0, 0.0, 0.1, 1.8, 2.0, 1.9, 1.5, 0.2, 0.0, 0.0}
	audio := []float64{-50.0, -49.0, -47.0, -34.0, -31.0, -30.0, -32.0, -40.0, -49.0, -50.0}

	config := DefaultDetectionConfig()
	config.FlowThresholdMlS = 0.25
	config.MinAudioDeltaDb = 8.0
	config.MinActiveDurationS = 1.0
	config.MaxGapS = 0.5
	config.PaddingS = 0.0
	config.MinEventDurationS = 1.0

	result, err := DetectVoidingInterval(timestamps, flow, allTrue(10), audio, config)
	require.NoError(t, err)

	assert.True(t, result.Detected)
	assert.Equal(t, MethodAudioROIFlowFusion, result.Method)
	assert.InDelta(t, 3.0, result.StartTimeS, 1e-9)
	assert.InDelta(t, 7.0, result.EndTimeS, 1e-9)
	assert.Greater(t, result.Confidence, 0.5)
}

func TestDetectVoidingIntervalFallsBackToROIFlowWhenAudioMissing(t *testing.T) {
	timestamps := []float64{0.0, 1.0, 2.0, 3.0, 4.0}
	flow := []float64{0.0, 1.0, 1.2, 0.9, 0.0}

	config := DefaultDetectionConfig()
	config.FlowThresholdMlS = 0.2
	config.MinActiveDurationS = 1.0
	config.MaxGapS = 0.0
	config.PaddingS = 0.0
	config.MinEventDurationS = 1.0

	result, err := DetectVoidingInterval(timestamps, flow, allTrue(5), nil, config)
	require.NoError(t, err)

	assert.True(t, result.Detected)
	assert.Equal(t, MethodROIFlowFallback, result.Method)
	assert.Equal(t, 0.0, result.AudioCoverageRatio)
}

func TestDetectVoidingIntervalNotDetectedWhenROIInvalid(t *testing.T) {
	timestamps := []float64{0.0, 1.0, 2.0, 3.0}
	flow := []float64{0.0, 1.5, 1.4, 0.0}
	roi := []bool{false, false, false, false}

	result, err := DetectVoidingInterval(timestamps, flow, roi, nil, DefaultDetectionConfig())
	require.NoError(t, err)

	assert.False(t, result.Detected)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestDetectVoidingIntervalPicksStrongestBurst(t *testing.T) {
	timestamps := make([]float64, 12)
	for index := range timestamps {
		timestamps[index] = float64(index)
	}
	flow := []float64{0.0, 0.5, 0.6, 0.0, 0.0, 0.0, 2.5, 2.8, 2.6, 2.4, 0.0, 0.0}

	config := DefaultDetectionConfig()
	config.MinActiveDurationS = 1.0
	config.MaxGapS = 0.5
	config.PaddingS = 0.0
	config.MinEventDurationS = 1.0

	result, err := DetectVoidingInterval(timestamps, flow, allTrue(12), nil, config)
	require.NoError(t, err)

	assert.True(t, result.Detected)
	assert.GreaterOrEqual(t, result.StartTimeS, 5.0)
	assert.LessOrEqual(t, result.EndTimeS, 10.0)
}

func TestSliceIndicesForIntervalReturnsInclusiveIndices(t *testing.T) {
	timestamps := []float64{0.0, 1.0, 2.0, 3.0, 4.0}

	indices, err := SliceIndicesForInterval(timestamps, 1.0, 3.0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, indices)
}

func TestDetectVoidingIntervalRejectsLengthMismatch(t *testing.T) {
	_, err := DetectVoidingInterval(
		[]float64{0.0, 1.0},
		[]float64{0.0},
		[]bool{true, true},
		nil,
		DefaultDetectionConfig())
	require.Error(t, err)
}
