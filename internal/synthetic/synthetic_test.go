package synthetic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/fusion"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/metrics"
)

func TestGenerateFlowProfileMatchesTargetVolume(t *testing.T) {
	timestampsS, err := GenerateTimestamps(12.0, 10.0)
	require.NoError(t, err)

	flowMlS, err := GenerateFlowProfile(timestampsS, "bell", 280.0)
	require.NoError(t, err)

	volumeMl := metrics.TrapezoidIntegral(timestampsS, flowMlS)
	assert.InDelta(t, 280.0, volumeMl, 1e-6)
}

func TestGenerateFlowProfileRejectsUnknownProfile(t *testing.T) {
	timestampsS, err := GenerateTimestamps(10.0, 10.0)
	require.NoError(t, err)

	_, err = GenerateFlowProfile(timestampsS, "sawtooth", 280.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported profile")
}

func TestGenerateBenchSeriesHasConsistentLengths(t *testing.T) {
	series, err := GenerateBenchSeries(Config{
		Profile:        "intermittent",
		Scenario:       "reflective_bowl",
		DurationS:      16.0,
		SampleRateHz:   8.0,
		TargetVolumeMl: 300.0,
		MlPerMm:        7.5,
		Seed:           7,
	})
	require.NoError(t, err)

	expectedLength := len(series.TimestampsS)
	require.Greater(t, expectedLength, 2)
	assert.Len(t, series.TrueFlowMlS, expectedLength)
	assert.Len(t, series.TrueVolumeMl, expectedLength)
	assert.Len(t, series.TrueLevelMm, expectedLength)
	assert.Len(t, series.DepthLevelMm, expectedLength)
	assert.Len(t, series.RGBLevelMm, expectedLength)
	assert.Len(t, series.DepthConfidence, expectedLength)

	hasLowConfidence := false
	for _, confidence := range series.DepthConfidence {
		if confidence < 0.6 {
			hasLowConfidence = true
		}
	}
	assert.True(t, hasLowConfidence)
	assert.InDelta(t, 300.0, series.TrueVolumeMl[len(series.TrueVolumeMl)-1], 1e-6)
}

func TestGenerateBenchSeriesIsDeterministicPerSeed(t *testing.T) {
	cfg := DefaultConfig()
	first, err := GenerateBenchSeries(cfg)
	require.NoError(t, err)
	second, err := GenerateBenchSeries(cfg)
	require.NoError(t, err)

	assert.Equal(t, first.DepthLevelMm, second.DepthLevelMm)
	assert.Equal(t, first.DepthConfidence, second.DepthConfidence)
}

func TestQuietLabSeriesSurvivesFusionRoundTrip(t *testing.T) {
	series, err := GenerateBenchSeries(DefaultConfig())
	require.NoError(t, err)

	fusionConfig := fusion.DefaultLevelConfig()
	fusionConfig.MlPerMm = 8.0

	result, err := fusion.EstimateFromLevelSeries(series.TimestampsS, series.DepthLevelMm, series.DepthConfidence, series.RGBLevelMm, fusionConfig)
	require.NoError(t, err)

	estimatedVolume := result.VolumeMl[len(result.VolumeMl)-1]
	assert.Less(t, math.Abs(estimatedVolume-320.0), 25.0)
}

func TestBenchSeriesRecoveryAcrossScenarios(t *testing.T) {
	cases := []struct {
		scenario    string
		volumeTolMl float64
	}{
		{scenario: "quiet_lab", volumeTolMl: 25.0},
		{scenario: "reflective_bowl", volumeTolMl: 60.0},
		{scenario: "phone_motion", volumeTolMl: 60.0},
	}

	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Scenario = tc.scenario
			series, err := GenerateBenchSeries(cfg)
			require.NoError(t, err)

			fusionConfig := fusion.DefaultLevelConfig()
			fusionConfig.MlPerMm = cfg.MlPerMm

			result, err := fusion.EstimateFromLevelSeries(series.TimestampsS, series.DepthLevelMm, series.DepthConfidence, series.RGBLevelMm, fusionConfig)
			require.NoError(t, err)

			estimatedVolume := result.VolumeMl[len(result.VolumeMl)-1]
			assert.Less(t, math.Abs(estimatedVolume-cfg.TargetVolumeMl), tc.volumeTolMl,
				"scenario %s recovered %.1f ml for a %.1f ml target", tc.scenario, estimatedVolume, cfg.TargetVolumeMl)
			assert.Contains(t, []string{fusion.StatusValid, fusion.StatusRepeat, fusion.StatusReject}, result.Quality.Status)
		})
	}
}

func TestNoisyScenariosDegradeDepthConfidenceRatio(t *testing.T) {
	ratioFor := func(scenario string) float64 {
		cfg := DefaultConfig()
		cfg.Scenario = scenario
		series, err := GenerateBenchSeries(cfg)
		require.NoError(t, err)

		fusionConfig := fusion.DefaultLevelConfig()
		fusionConfig.MlPerMm = cfg.MlPerMm
		result, err := fusion.EstimateFromLevelSeries(series.TimestampsS, series.DepthLevelMm, series.DepthConfidence, series.RGBLevelMm, fusionConfig)
		require.NoError(t, err)
		return result.Quality.DepthConfidenceRatio
	}

	quietLab := ratioFor("quiet_lab")
	assert.Greater(t, quietLab, ratioFor("reflective_bowl"))
	assert.Greater(t, quietLab, ratioFor("phone_motion"))
}

func TestAvailableScenariosAreSorted(t *testing.T) {
	assert.Equal(t, []string{"phone_motion", "quiet_lab", "reflective_bowl"}, AvailableScenarios())
}
