package eval

import (
	"fmt"

	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region eval-harness
// EvalHarness runs the harmony test after a negotiation round is committed.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates a harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run scores the committed vectors of a round.
//
//	harmony = (1 - maxRatio) * meanRelativity
//
// It is high when no single dimension dominates the group's combined
// priorities and agents are, on average, willing to concede. A group with
// zero combined weight has no ratios; maxRatio is taken as 1 and the round fails.
func (h *EvalHarness) Run(vectors []vector.PriorityVector, dims vector.Dimensions, meanRelativity float64) EvalResult {
	var metrics []EvalMetric

	ratios, ok := vector.Ratios(vectors, dims)
	maxDim, maxRatio := vector.MaxRatio(ratios, dims)
	if !ok {
		maxDim, maxRatio = "", 1
	}
	for _, d := range dims {
		metrics = append(metrics, EvalMetric{
			Name:  "ratio_" + d,
			Value: ratios[d],
			Pass:  ok,
		})
	}

	harmony := (1 - maxRatio) * meanRelativity
	passed := harmony > h.config.HarmonyThreshold

	metrics = append(metrics,
		EvalMetric{Name: "max_ratio", Value: maxRatio, Pass: ok},
		EvalMetric{Name: "mean_relativity", Value: meanRelativity, Pass: true},
		EvalMetric{Name: "harmony_score", Value: harmony, Pass: passed},
	)

	var reason string
	switch {
	case !ok:
		reason = "combined weight is zero, no dimension balance"
	case passed:
		reason = fmt.Sprintf("harmony %.4f > threshold %.4f", harmony, h.config.HarmonyThreshold)
	default:
		reason = fmt.Sprintf("harmony %.4f <= threshold %.4f (dominant %s at %.4f)", harmony, h.config.HarmonyThreshold, maxDim, maxRatio)
	}

	return EvalResult{
		Passed:         passed,
		Ratios:         ratios,
		MaxDimension:   maxDim,
		MaxRatio:       maxRatio,
		MeanRelativity: meanRelativity,
		HarmonyScore:   harmony,
		Metrics:        metrics,
		Reason:         reason,
	}
}

// #endregion eval-harness
