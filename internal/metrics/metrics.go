// Package metrics turns a flow curve Q(t) into standard uroflow summary metrics.
package metrics

import "fmt"

// DefaultFlowThresholdMlS is the flow level below which the stream counts as paused
const DefaultFlowThresholdMlS = 0.2

// DefaultMinPauseS is the minimum pause duration counted as an interruption
const DefaultMinPauseS = 0.5

// UroflowSummary holds summary metrics derived from flow curve Q(t), where Q is in ml/s
type UroflowSummary struct {
	StartTimeS         float64 `json:"start_time_s"`
	EndTimeS           float64 `json:"end_time_s"`
	VoidingTimeS       float64 `json:"voiding_time_s"`
	FlowTimeS          float64 `json:"flow_time_s"`
	VoidedVolumeMl     float64 `json:"voided_volume_ml"`
	QMaxMlS            float64 `json:"q_max_ml_s"`
	QAvgMlS            float64 `json:"q_avg_ml_s"`
	TimeToQMaxS        float64 `json:"time_to_qmax_s"`
	InterruptionsCount int     `json:"interruptions_count"`
}

// Options configures summary calculation thresholds
type Options struct {
	FlowThresholdMlS float64
	MinPauseS        float64
}

// DefaultOptions returns the standard calculation thresholds
func DefaultOptions() Options {
	return Options{
		FlowThresholdMlS: DefaultFlowThresholdMlS,
		MinPauseS:        DefaultMinPauseS,
	}
}

func validateSeries(timestampsS, flowMlS []float64) error {
	if len(timestampsS) != len(flowMlS) {
		return fmt.Errorf("timestamps_s and flow_ml_s must have equal length")
	}
	if len(timestampsS) < 2 {
		return fmt.Errorf("at least two points are required")
	}

	previousT := timestampsS[0]
	for index := 1; index < len(timestampsS); index++ {
		if timestampsS[index] <= previousT {
			return fmt.Errorf("timestamps must be strictly increasing (index %d)", index)
		}
		previousT = timestampsS[index]
	}

	for index, flow := range flowMlS {
		if flow < 0 {
			return fmt.Errorf("flow cannot be negative (index %d)", index)
		}
	}
	return nil
}

// TrapezoidIntegral integrates values over timestamps with the trapezoid rule
func TrapezoidIntegral(timestampsS, values []float64) float64 {
	area := 0.0
	for i := 1; i < len(timestampsS); i++ {
		dt := timestampsS[i] - timestampsS[i-1]
		area += 0.5 * (values[i] + values[i-1]) * dt
	}
	return area
}

// computeFlowTime sums inter-sample intervals whose midpoint flow reaches the
// threshold. Midpoint accounting avoids a systematic bias at threshold crossings
// compared with per-sample classification.
func computeFlowTime(timestampsS, flowMlS []float64, thresholdMlS float64) float64 {
	total := 0.0
	for i := 1; i < len(timestampsS); i++ {
		dt := timestampsS[i] - timestampsS[i-1]
		midFlow := 0.5 * (flowMlS[i] + flowMlS[i-1])
		if midFlow >= thresholdMlS {
			total += dt
		}
	}
	return total
}

func countInterruptions(timestampsS, flowMlS []float64, thresholdMlS, minPauseS float64) int {
	inPause := false
	pauseStart := 0.0
	pauses := 0

	for i := 1; i < len(timestampsS); i++ {
		midFlow := 0.5 * (flowMlS[i] + flowMlS[i-1])
		currentT := timestampsS[i]

		if midFlow < thresholdMlS && !inPause {
			inPause = true
			pauseStart = timestampsS[i-1]
		} else if midFlow >= thresholdMlS && inPause {
			if currentT-pauseStart >= minPauseS {
				pauses++
			}
			inPause = false
		}
	}

	if inPause && timestampsS[len(timestampsS)-1]-pauseStart >= minPauseS {
		pauses++
	}

	// End pauses that occur after stream termination are not counted as interruptions.
	if pauses > 0 {
		return pauses - 1
	}
	return 0
}

// CalculateUroflowSummary calculates standard uroflow metrics from Q(t)
func CalculateUroflowSummary(timestampsS, flowMlS []float64, opts Options) (UroflowSummary, error) {
	if err := validateSeries(timestampsS, flowMlS); err != nil {
		return UroflowSummary{}, err
	}

	startTime := timestampsS[0]
	endTime := timestampsS[len(timestampsS)-1]
	voidingTime := endTime - startTime

	volumeMl := TrapezoidIntegral(timestampsS, flowMlS)
	flowTime := computeFlowTime(timestampsS, flowMlS, opts.FlowThresholdMlS)

	qMax := flowMlS[0]
	maxIndex := 0
	for index, flow := range flowMlS {
		if flow > qMax {
			qMax = flow
			maxIndex = index
		}
	}
	timeToQMax := timestampsS[maxIndex] - startTime

	qAvg := 0.0
	if flowTime > 0 {
		qAvg = volumeMl / flowTime
	}

	interruptions := countInterruptions(timestampsS, flowMlS, opts.FlowThresholdMlS, opts.MinPauseS)

	return UroflowSummary{
		StartTimeS:         startTime,
		EndTimeS:           endTime,
		VoidingTimeS:       voidingTime,
		FlowTimeS:          flowTime,
		VoidedVolumeMl:     volumeMl,
		QMaxMlS:            qMax,
		QAvgMlS:            qAvg,
		TimeToQMaxS:        timeToQMax,
		InterruptionsCount: interruptions,
	}, nil
}
