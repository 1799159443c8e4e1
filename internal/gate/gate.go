package gate

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/consensus-gate/internal/risk"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region gate
// Gate decides whether a proposed evolution is committed or the agent is sealed.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate checks both sealing triggers. Either one alone seals; when none
// fires the proposal is committed as-is.
func (g *Gate) Evaluate(proposed vector.PriorityVector, motive float64, assessment risk.Assessment) GateDecision {
	var vetoes []VetoSignal

	// 1. Risk: assessment reached the sealing score
	if assessment.Score >= g.config.SealRiskScore {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoRisk,
			Reason: fmt.Sprintf("risk score %d >= %d (%s)", assessment.Score, g.config.SealRiskScore, strings.Join(assessment.Reasons, ", ")),
		})
	}

	// 2. Motivation: too low to keep evolving
	if motive < g.config.MinMotive {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoMotive,
			Reason: fmt.Sprintf("motive %.4f < %.4f", motive, g.config.MinMotive),
		})
	}

	if len(vetoes) > 0 {
		reasons := make([]string, len(vetoes))
		for i, v := range vetoes {
			reasons[i] = v.Reason
		}
		return GateDecision{
			Action:      ActionSeal,
			Reason:      "sealed: " + strings.Join(reasons, "; "),
			VetoSignals: vetoes,
			Assessment:  assessment,
		}
	}

	return GateDecision{
		Action:     ActionCommit,
		Vector:     proposed.Clone(),
		Reason:     fmt.Sprintf("passed gate: risk=%d motive=%.4f", assessment.Score, motive),
		Assessment: assessment,
	}
}

// #endregion gate
