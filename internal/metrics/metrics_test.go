package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateUroflowSummaryBasicCurve(t *testing.T) {
	timestamps := []float64{0.0, 1.0, 2.0, 3.0, 4.0}
	flow := []float64{0.0, 5.0, 10.0, 5.0, 0.0}

	summary, err := CalculateUroflowSummary(timestamps, flow, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 4.0, summary.VoidingTimeS)
	assert.Equal(t, 10.0, summary.QMaxMlS)
	assert.Equal(t, 2.0, summary.TimeToQMaxS)
	assert.InDelta(t, 20.0, summary.VoidedVolumeMl, 1e-9)
	assert.InDelta(t, 4.0, summary.FlowTimeS, 1e-9)
	assert.InDelta(t, 5.0, summary.QAvgMlS, 1e-9)
}

func TestInterruptionsCountedOnlyForInternalPauses(t *testing.T) {
	timestamps := []float64{0.0, 1.0, 2.0, 3.0, 4.0, 5.0, 6.0}
	flow := []float64{0.0, 6.0, 0.0, 0.0, 5.0, 0.0, 0.0}

	summary, err := CalculateUroflowSummary(timestamps, flow, Options{
		FlowThresholdMlS: 0.5,
		MinPauseS:        1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.InterruptionsCount)
}

func TestFlatZeroFlowHasNoInterruptions(t *testing.T) {
	timestamps := []float64{0.0, 1.0, 2.0, 3.0}
	flow := []float64{0.0, 0.0, 0.0, 0.0}

	summary, err := CalculateUroflowSummary(timestamps, flow, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.InterruptionsCount)
	assert.Equal(t, 0.0, summary.VoidedVolumeMl)
	assert.Equal(t, 0.0, summary.QAvgMlS)
}

func TestCalculateUroflowSummaryRejectsBadSeries(t *testing.T) {
	_, err := CalculateUroflowSummary([]float64{0.0, 1.0}, []float64{1.0}, DefaultOptions())
	require.Error(t, err)

	_, err = CalculateUroflowSummary([]float64{0.0, 0.0, 1.0}, []float64{1.0, 1.0, 1.0}, DefaultOptions())
	require.Error(t, err)

	_, err = CalculateUroflowSummary([]float64{0.0}, []float64{1.0}, DefaultOptions())
	require.Error(t, err)
}

func TestQMaxPicksFirstOccurrence(t *testing.T) {
	timestamps := []float64{0.0, 1.0, 2.0, 3.0}
	flow := []float64{0.0, 8.0, 8.0, 0.0}

	summary, err := CalculateUroflowSummary(timestamps, flow, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1.0, summary.TimeToQMaxS)
}
