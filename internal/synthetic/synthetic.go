// Package synthetic generates seeded bench series for fusion and metrics
// validation. Each series carries ground truth alongside simulated depth and
// RGB modality channels degraded per scenario.
package synthetic

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/metrics"
)

// SupportedProfiles lists the flow shapes the generator can produce
var SupportedProfiles = []string{"bell", "plateau", "intermittent", "staccato"}

// Config configures synthetic bench generation
type Config struct {
	Profile        string
	Scenario       string
	DurationS      float64
	SampleRateHz   float64
	TargetVolumeMl float64
	MlPerMm        float64
	Seed           int64
}

// DefaultConfig returns the standard bench generation setup
func DefaultConfig() Config {
	return Config{
		Profile:        "bell",
		Scenario:       "quiet_lab",
		DurationS:      18.0,
		SampleRateHz:   10.0,
		TargetVolumeMl: 320.0,
		MlPerMm:        8.0,
		Seed:           42,
	}
}

// Scenario is the noise and artifact envelope for modality simulation
type Scenario struct {
	DepthNoiseMm              float64
	RGBNoiseMm                float64
	LowConfidenceProbability  float64
	MissingDepthProbability   float64
	MotionSpikeProbability    float64
	MotionSpikeMm             float64
}

// Scenarios maps scenario names to their noise envelopes
var Scenarios = map[string]Scenario{
	"quiet_lab": {
		DepthNoiseMm:             0.25,
		RGBNoiseMm:               0.18,
		LowConfidenceProbability: 0.04,
		MissingDepthProbability:  0.0,
		MotionSpikeProbability:   0.0,
		MotionSpikeMm:            0.0,
	},
	"reflective_bowl": {
		DepthNoiseMm:             0.55,
		RGBNoiseMm:               0.35,
		LowConfidenceProbability: 0.22,
		MissingDepthProbability:  0.08,
		MotionSpikeProbability:   0.05,
		MotionSpikeMm:            2.8,
	},
	"phone_motion": {
		DepthNoiseMm:             0.45,
		RGBNoiseMm:               0.28,
		LowConfidenceProbability: 0.16,
		MissingDepthProbability:  0.03,
		MotionSpikeProbability:   0.16,
		MotionSpikeMm:            4.2,
	},
}

// BenchSeries is a synchronized synthetic series with ground truth and
// degraded modality channels
type BenchSeries struct {
	TimestampsS     []float64 `json:"timestamps_s"`
	TrueFlowMlS     []float64 `json:"true_flow_ml_s"`
	TrueVolumeMl    []float64 `json:"true_volume_ml"`
	TrueLevelMm     []float64 `json:"true_level_mm"`
	DepthLevelMm    []float64 `json:"depth_level_mm"`
	RGBLevelMm      []float64 `json:"rgb_level_mm"`
	DepthConfidence []float64 `json:"depth_confidence"`
}

// GenerateTimestamps produces a uniform time grid covering the duration
func GenerateTimestamps(durationS, sampleRateHz float64) ([]float64, error) {
	if durationS <= 0 {
		return nil, fmt.Errorf("duration_s must be positive")
	}
	if sampleRateHz <= 0 {
		return nil, fmt.Errorf("sample_rate_hz must be positive")
	}

	samples := int(math.Round(durationS*sampleRateHz)) + 1
	timestamps := make([]float64, samples)
	for index := range timestamps {
		timestamps[index] = float64(index) / sampleRateHz
	}
	return timestamps, nil
}

func profileEnvelope(normalizedT float64, profile string) (float64, error) {
	if normalizedT < 0.0 || normalizedT > 1.0 {
		return 0.0, nil
	}

	switch profile {
	case "bell":
		return math.Pow(math.Sin(math.Pi*normalizedT), 1.8), nil
	case "plateau":
		const ramp = 0.18
		if normalizedT < ramp {
			return normalizedT / ramp, nil
		}
		if normalizedT > 1.0-ramp {
			return (1.0 - normalizedT) / ramp, nil
		}
		return 1.0, nil
	case "intermittent":
		base := math.Pow(math.Sin(math.Pi*normalizedT), 1.5)
		inGap1 := normalizedT >= 0.28 && normalizedT <= 0.37
		inGap2 := normalizedT >= 0.62 && normalizedT <= 0.72
		if inGap1 || inGap2 {
			return 0.0, nil
		}
		return base, nil
	case "staccato":
		base := math.Pow(math.Sin(math.Pi*normalizedT), 1.3)
		ripple := 0.55 + 0.45*(0.5*(1.0+math.Sin(2.0*math.Pi*8.0*normalizedT)))
		return base * ripple, nil
	default:
		return 0, fmt.Errorf("unsupported profile: %s", profile)
	}
}

func supportedProfile(profile string) bool {
	for _, candidate := range SupportedProfiles {
		if candidate == profile {
			return true
		}
	}
	return false
}

// GenerateFlowProfile shapes a flow curve and scales it to the target volume
func GenerateFlowProfile(timestampsS []float64, profile string, targetVolumeMl float64) ([]float64, error) {
	if !supportedProfile(profile) {
		return nil, fmt.Errorf("unsupported profile: %s", profile)
	}
	if targetVolumeMl <= 0 {
		return nil, fmt.Errorf("target_volume_ml must be positive")
	}
	if len(timestampsS) < 2 {
		return nil, fmt.Errorf("at least two timestamps are required")
	}

	duration := timestampsS[len(timestampsS)-1] - timestampsS[0]
	if duration <= 0 {
		return nil, fmt.Errorf("timestamps must be strictly increasing")
	}

	rawFlow := make([]float64, len(timestampsS))
	for index, timestamp := range timestampsS {
		normalized := (timestamp - timestampsS[0]) / duration
		envelope, err := profileEnvelope(normalized, profile)
		if err != nil {
			return nil, err
		}
		rawFlow[index] = envelope
	}

	rawVolumeMl := metrics.TrapezoidIntegral(timestampsS, rawFlow)
	if rawVolumeMl <= 0 {
		return nil, fmt.Errorf("generated zero profile volume")
	}
	scale := targetVolumeMl / rawVolumeMl

	for index := range rawFlow {
		rawFlow[index] *= scale
	}
	return rawFlow, nil
}

func cumulativeIntegral(timestampsS, values []float64) []float64 {
	cumulative := make([]float64, len(timestampsS))
	area := 0.0
	for index := 1; index < len(timestampsS); index++ {
		dt := timestampsS[index] - timestampsS[index-1]
		area += 0.5 * (values[index] + values[index-1]) * dt
		cumulative[index] = area
	}
	return cumulative
}

// simulateModalities degrades the true level into depth and RGB channels
// with per-scenario noise, confidence dips, spikes and dropouts
func simulateModalities(trueLevelMm []float64, scenario Scenario, rng *rand.Rand) (depth, rgb, confidence []float64) {
	depth = make([]float64, len(trueLevelMm))
	rgb = make([]float64, len(trueLevelMm))
	confidence = make([]float64, len(trueLevelMm))

	for index, level := range trueLevelMm {
		var conf, noiseScale float64
		if rng.Float64() < scenario.LowConfidenceProbability {
			conf = 0.05 + rng.Float64()*0.40
			noiseScale = scenario.DepthNoiseMm * 3.0
		} else {
			conf = 0.82 + rng.Float64()*0.17
			noiseScale = scenario.DepthNoiseMm
		}

		depthValue := level + rng.NormFloat64()*noiseScale
		if rng.Float64() < scenario.MotionSpikeProbability {
			spikeDirection := 1.0
			if rng.Float64() < 0.5 {
				spikeDirection = -1.0
			}
			depthValue += spikeDirection * scenario.MotionSpikeMm
			conf = math.Min(conf, 0.35)
		}

		if rng.Float64() < scenario.MissingDepthProbability {
			depthValue = math.NaN()
			conf = 0.0
		}

		depth[index] = depthValue
		rgb[index] = level + rng.NormFloat64()*scenario.RGBNoiseMm
		confidence[index] = conf
	}
	return depth, rgb, confidence
}

// GenerateBenchSeries produces one synthetic bench run from the config
func GenerateBenchSeries(config Config) (*BenchSeries, error) {
	if !supportedProfile(config.Profile) {
		return nil, fmt.Errorf("unsupported profile: %s", config.Profile)
	}
	scenario, present := Scenarios[config.Scenario]
	if !present {
		return nil, fmt.Errorf("unsupported scenario: %s", config.Scenario)
	}
	if config.MlPerMm <= 0 {
		return nil, fmt.Errorf("ml_per_mm must be positive")
	}

	timestampsS, err := GenerateTimestamps(config.DurationS, config.SampleRateHz)
	if err != nil {
		return nil, err
	}
	trueFlowMlS, err := GenerateFlowProfile(timestampsS, config.Profile, config.TargetVolumeMl)
	if err != nil {
		return nil, err
	}

	trueVolumeMl := cumulativeIntegral(timestampsS, trueFlowMlS)
	trueLevelMm := make([]float64, len(trueVolumeMl))
	for index, volume := range trueVolumeMl {
		trueLevelMm[index] = volume / config.MlPerMm
	}

	rng := rand.New(rand.NewSource(config.Seed))
	depthLevelMm, rgbLevelMm, depthConfidence := simulateModalities(trueLevelMm, scenario, rng)

	return &BenchSeries{
		TimestampsS:     timestampsS,
		TrueFlowMlS:     trueFlowMlS,
		TrueVolumeMl:    trueVolumeMl,
		TrueLevelMm:     trueLevelMm,
		DepthLevelMm:    depthLevelMm,
		RGBLevelMm:      rgbLevelMm,
		DepthConfidence: depthConfidence,
	}, nil
}

// AvailableScenarios returns the scenario names in sorted order
func AvailableScenarios() []string {
	names := make([]string, 0, len(Scenarios))
	for name := range Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
