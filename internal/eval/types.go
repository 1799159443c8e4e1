package eval

import "github.com/danielpatrickdp/consensus-gate/internal/vector"

// #region eval-config
// EvalConfig holds the convergence threshold for the harmony test.
type EvalConfig struct {
	HarmonyThreshold float64 // pass when harmony score is strictly above this
}

// DefaultEvalConfig returns the standard threshold.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{HarmonyThreshold: 0.3}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single value reported by the harmony evaluation.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the outcome of the harmony test for one round.
type EvalResult struct {
	Passed         bool
	Ratios         vector.PriorityVector // per-dimension share of the group's combined weight
	MaxDimension   string
	MaxRatio       float64
	MeanRelativity float64
	HarmonyScore   float64
	Metrics        []EvalMetric
	Reason         string
}

// #endregion eval-result
