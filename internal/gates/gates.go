// Package gates evaluates release-gate rule sets against aggregated
// validation metrics.
package gates

import (
	"fmt"
	"strings"
)

// Condition is a single metric comparison
type Condition struct {
	Metric string `json:"metric" yaml:"metric"`
	Op     string `json:"op" yaml:"op"`
	Value  any    `json:"value" yaml:"value"`
}

// Rule is either a bare condition or an any_of/all_of combinator over conditions
type Rule struct {
	ID     string      `json:"id" yaml:"id"`
	Metric string      `json:"metric,omitempty" yaml:"metric,omitempty"`
	Op     string      `json:"op,omitempty" yaml:"op,omitempty"`
	Value  any         `json:"value,omitempty" yaml:"value,omitempty"`
	AnyOf  []Condition `json:"any_of,omitempty" yaml:"any_of,omitempty"`
	AllOf  []Condition `json:"all_of,omitempty" yaml:"all_of,omitempty"`
}

// Gate is one named release gate
type Gate struct {
	Description string `json:"description" yaml:"description"`
	Rules       []Rule `json:"rules" yaml:"rules"`
}

// Config is a versioned gate configuration. Order preserves the declaration
// order for default evaluation, since Gates is a map.
type Config struct {
	ConfigVersion string          `json:"config_version" yaml:"config_version"`
	Order         []string        `json:"-" yaml:"-"`
	Gates         map[string]Gate `json:"gates" yaml:"gates"`
}

// RuleEvaluation is the outcome of one rule
type RuleEvaluation struct {
	RuleID   string `json:"rule_id"`
	Passed   bool   `json:"passed"`
	Reason   string `json:"reason"`
	Actual   any    `json:"actual"`
	Expected any    `json:"expected"`
}

// GateEvaluation is the outcome of one gate
type GateEvaluation struct {
	Gate        string           `json:"gate"`
	Description string           `json:"description"`
	Passed      bool             `json:"passed"`
	RuleResults []RuleEvaluation `json:"rules"`
}

// EvaluationSummary is the outcome across all evaluated gates
type EvaluationSummary struct {
	ConfigVersion  string           `json:"config_version"`
	EvaluatedGates []string         `json:"evaluated_gates"`
	Passed         bool             `json:"overall_passed"`
	GateResults    []GateEvaluation `json:"gate_results"`
}

// asFloat coerces numeric JSON/YAML scalar types
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func compare(actual any, op string, expected any) (bool, error) {
	switch op {
	case "<", "<=", ">", ">=":
		actualNum, okActual := asFloat(actual)
		expectedNum, okExpected := asFloat(expected)
		if !okActual || !okExpected {
			return false, fmt.Errorf("non-numeric operand for %q", op)
		}
		switch op {
		case "<":
			return actualNum < expectedNum, nil
		case "<=":
			return actualNum <= expectedNum, nil
		case ">":
			return actualNum > expectedNum, nil
		default:
			return actualNum >= expectedNum, nil
		}
	case "==", "!=":
		equal := valuesEqual(actual, expected)
		if op == "==" {
			return equal, nil
		}
		return !equal, nil
	default:
		return false, fmt.Errorf("unsupported operation: %s", op)
	}
}

func valuesEqual(actual, expected any) bool {
	if actualNum, ok := asFloat(actual); ok {
		if expectedNum, ok := asFloat(expected); ok {
			return actualNum == expectedNum
		}
	}
	return actual == expected
}

func evaluateCondition(condition Condition, metrics map[string]any) RuleEvaluation {
	actual, present := metrics[condition.Metric]
	if !present {
		return RuleEvaluation{
			RuleID:   condition.Metric,
			Passed:   false,
			Reason:   fmt.Sprintf("metric '%s' is missing", condition.Metric),
			Actual:   nil,
			Expected: condition.Value,
		}
	}

	passed, err := compare(actual, condition.Op, condition.Value)
	if err != nil {
		return RuleEvaluation{
			RuleID:   condition.Metric,
			Passed:   false,
			Reason:   fmt.Sprintf("comparison failed for metric '%s'", condition.Metric),
			Actual:   actual,
			Expected: condition.Value,
		}
	}

	return RuleEvaluation{
		RuleID:   condition.Metric,
		Passed:   passed,
		Reason:   fmt.Sprintf("%s: %v %s %v", condition.Metric, actual, condition.Op, condition.Value),
		Actual:   actual,
		Expected: condition.Value,
	}
}

func evaluateCombinator(ruleID string, conditions []Condition, requireAll bool, metrics map[string]any) RuleEvaluation {
	results := make([]RuleEvaluation, len(conditions))
	reasons := make([]string, len(conditions))
	for index, condition := range conditions {
		results[index] = evaluateCondition(condition, metrics)
		reasons[index] = results[index].Reason
	}

	passed := requireAll
	expected := "any_of"
	if requireAll {
		expected = "all_of"
		for _, result := range results {
			if !result.Passed {
				passed = false
				break
			}
		}
	} else {
		for _, result := range results {
			if result.Passed {
				passed = true
				break
			}
		}
	}

	return RuleEvaluation{
		RuleID:   ruleID,
		Passed:   passed,
		Reason:   strings.Join(reasons, "; "),
		Actual:   nil,
		Expected: expected,
	}
}

func evaluateRule(rule Rule, metrics map[string]any) RuleEvaluation {
	ruleID := rule.ID
	if ruleID == "" {
		ruleID = "rule"
	}
	if len(rule.AnyOf) > 0 {
		return evaluateCombinator(ruleID, rule.AnyOf, false, metrics)
	}
	if len(rule.AllOf) > 0 {
		return evaluateCombinator(ruleID, rule.AllOf, true, metrics)
	}
	return evaluateCondition(Condition{Metric: rule.Metric, Op: rule.Op, Value: rule.Value}, metrics)
}

// EvaluateReleaseGates evaluates the named gates against metric values.
// A nil config uses the default gate set; nil gateNames evaluates every gate
// in declaration order.
func EvaluateReleaseGates(metrics map[string]any, config *Config, gateNames []string) (*EvaluationSummary, error) {
	cfg := config
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}

	configVersion := cfg.ConfigVersion
	if configVersion == "" {
		configVersion = "unknown"
	}
	if cfg.Gates == nil {
		return nil, fmt.Errorf("config must contain object field 'gates'")
	}

	selected := gateNames
	if len(selected) == 0 {
		selected = cfg.Order
		if len(selected) == 0 {
			selected = make([]string, 0, len(cfg.Gates))
			for name := range cfg.Gates {
				selected = append(selected, name)
			}
		}
	}

	gateResults := make([]GateEvaluation, 0, len(selected))
	for _, gateName := range selected {
		gate, present := cfg.Gates[gateName]
		if !present {
			return nil, fmt.Errorf("gate '%s' is not present in config", gateName)
		}

		ruleResults := make([]RuleEvaluation, 0, len(gate.Rules))
		gatePassed := true
		for _, rule := range gate.Rules {
			result := evaluateRule(rule, metrics)
			if !result.Passed {
				gatePassed = false
			}
			ruleResults = append(ruleResults, result)
		}

		gateResults = append(gateResults, GateEvaluation{
			Gate:        gateName,
			Description: gate.Description,
			Passed:      gatePassed,
			RuleResults: ruleResults,
		})
	}

	passed := true
	for _, result := range gateResults {
		if !result.Passed {
			passed = false
			break
		}
	}

	return &EvaluationSummary{
		ConfigVersion:  configVersion,
		EvaluatedGates: selected,
		Passed:         passed,
		GateResults:    gateResults,
	}, nil
}
