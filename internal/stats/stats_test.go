package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2.0, 4.0, 4.0, 4.0, 5.0, 5.0, 7.0, 9.0}

	assert.InDelta(t, 5.0, Mean(values), 1e-9)
	assert.InDelta(t, 2.0, PStdDev(values), 1e-9)
	assert.InDelta(t, 2.1380899, StdDev(values), 1e-6)
}

func TestMedianOddAndEven(t *testing.T) {
	assert.Equal(t, 3.0, Median([]float64{5.0, 1.0, 3.0}))
	assert.Equal(t, 2.5, Median([]float64{4.0, 1.0, 3.0, 2.0}))
}

func TestMovingAverageTrailingWindow(t *testing.T) {
	values := []float64{1.0, 2.0, 3.0, 4.0}

	smoothed := MovingAverage(values, 2)
	assert.Equal(t, []float64{1.0, 1.5, 2.5, 3.5}, smoothed)

	assert.Equal(t, values, MovingAverage(values, 1))
}

func TestPercentileInterpolates(t *testing.T) {
	values := []float64{1.0, 2.0, 3.0, 4.0}

	assert.InDelta(t, 1.0, Percentile(values, 0.0), 1e-9)
	assert.InDelta(t, 2.5, Percentile(values, 50.0), 1e-9)
	assert.InDelta(t, 4.0, Percentile(values, 100.0), 1e-9)
}

func TestFinitePercentileSkipsNonFinite(t *testing.T) {
	values := []float64{math.NaN(), 1.0, math.Inf(1), 3.0}

	value, ok := FinitePercentile(values, 50.0)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, value, 1e-9)

	_, ok = FinitePercentile([]float64{math.NaN()}, 50.0)
	assert.False(t, ok)
}

func TestPearsonCorrelation(t *testing.T) {
	x := []float64{1.0, 2.0, 3.0, 4.0, 5.0}
	up := []float64{2.0, 4.0, 6.0, 8.0, 10.0}
	down := []float64{10.0, 8.0, 6.0, 4.0, 2.0}

	assert.InDelta(t, 1.0, PearsonCorrelation(x, up), 1e-9)
	assert.InDelta(t, -1.0, PearsonCorrelation(x, down), 1e-9)
}
