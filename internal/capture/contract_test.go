package capture

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(value float64) *float64 { return &value }

func validPayload() *Payload {
	return &Payload{
		SchemaVersion: SchemaVersion,
		Session: SessionMeta{
			SessionID: "session-001",
			StartedAt: "2026-02-23T20:10:00Z",
			Mode:      "water_impact",
			Calibration: Calibration{
				MlPerMm: 8.0,
			},
		},
		Samples: []Sample{
			{TS: 0.0, DepthLevelMm: floatPtr(0.0), RGBLevelMm: floatPtr(0.0), DepthConfidence: 0.95, ROIValid: true},
			{TS: 0.5, DepthLevelMm: floatPtr(1.8), RGBLevelMm: floatPtr(1.7), DepthConfidence: 0.88, ROIValid: true},
			{TS: 1.0, DepthLevelMm: nil, RGBLevelMm: floatPtr(3.4), DepthConfidence: 0.2, ROIValid: true},
		},
	}
}

func TestValidatePayloadAcceptsValidShape(t *testing.T) {
	report := ValidatePayload(validPayload())

	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 3, report.SampleCount)
}

func TestValidatePayloadRejectsNonMonotonicTimestamps(t *testing.T) {
	payload := validPayload()
	payload.Samples[2].TS = 0.4

	report := ValidatePayload(payload)

	assert.False(t, report.Valid)
	found := false
	for _, message := range report.Errors {
		if strings.Contains(message, "strictly increasing") {
			found = true
		}
	}
	assert.True(t, found, "expected a monotonicity error, got %v", report.Errors)
}

func TestValidatePayloadRejectsUnknownSchemaAndMode(t *testing.T) {
	payload := validPayload()
	payload.SchemaVersion = "ios_capture_v0"
	payload.Session.Mode = "bathtub"

	report := ValidatePayload(payload)

	assert.False(t, report.Valid)
	assert.GreaterOrEqual(t, len(report.Errors), 2)
}

func TestValidatePayloadReportsAllViolationsForOutOfRangeConfidence(t *testing.T) {
	payload := validPayload()
	payload.Samples[2] = Sample{
		TS:              1.0,
		DepthLevelMm:    nil,
		RGBLevelMm:      nil,
		DepthConfidence: -0.2,
		MotionNorm:      floatPtr(-1.0),
		ROIValid:        true,
	}

	report := ValidatePayload(payload)

	assert.False(t, report.Valid)
	joined := strings.Join(report.Errors, "; ")
	assert.Contains(t, joined, "samples[2].depth_confidence must be in [0,1]")
	assert.Contains(t, joined, "samples[2] must include depth_level_mm or rgb_level_mm")
	assert.Contains(t, joined, "samples[2].motion_norm must be >= 0")
	// An out-of-range confidence still counts toward the low-confidence tally.
	assert.InDelta(t, 1.0/3.0, report.LowDepthConfidenceRatio, 1e-9)
}

func TestValidatePayloadWarnsOnLowROIRatio(t *testing.T) {
	payload := validPayload()
	for index := range payload.Samples {
		payload.Samples[index].ROIValid = false
	}

	report := ValidatePayload(payload)

	assert.True(t, report.Valid)
	assert.NotEmpty(t, report.Warnings)
	assert.Equal(t, 0.0, report.ROIValidRatio)
}

func TestToLevelSeriesPreservesOptionalNullDepth(t *testing.T) {
	series, err := ToLevelSeries(validPayload())
	require.NoError(t, err)

	assert.Equal(t, []float64{0.0, 0.5, 1.0}, series.TimestampsS)
	assert.Equal(t, 0.0, series.DepthLevelMm[0])
	assert.Equal(t, 1.8, series.DepthLevelMm[1])
	assert.True(t, math.IsNaN(series.DepthLevelMm[2]))
	assert.Equal(t, []float64{0.0, 1.7, 3.4}, series.RGBLevelMm)
	assert.Equal(t, []float64{0.95, 0.88, 0.2}, series.DepthConfidence)
}

func TestToLevelSeriesFailsForInvalidPayload(t *testing.T) {
	payload := validPayload()
	payload.Samples[2].TS = 0.4

	_, err := ToLevelSeries(payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid capture payload")
}
