package gate

import (
	"github.com/danielpatrickdp/consensus-gate/internal/risk"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region veto-type
// VetoType enumerates the independent sealing triggers.
type VetoType string

const (
	VetoRisk   VetoType = "risk"
	VetoMotive VetoType = "motive"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a fired sealing trigger.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds the sealing thresholds.
type GateConfig struct {
	SealRiskScore int     // seal when risk score is at least this (default 5)
	MinMotive     float64 // seal when motive is strictly below this (default 0.2)
}

// DefaultGateConfig returns the standard thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		SealRiskScore: risk.ScoreSeal,
		MinMotive:     0.2,
	}
}

// #endregion gate-config

// #region gate-decision
// Action is the outcome of the gate for one agent.
type Action string

const (
	ActionCommit Action = "COMMIT"
	ActionSeal   Action = "SEAL"
)

// GateDecision is COMMIT(Vector) or SEAL(Reason). Nothing else.
type GateDecision struct {
	Action      Action
	Vector      vector.PriorityVector // set on commit
	Reason      string
	VetoSignals []VetoSignal // non-empty on seal
	Assessment  risk.Assessment
}

// Sealed reports whether the decision seals the agent.
func (d GateDecision) Sealed() bool { return d.Action == ActionSeal }

// Trigger names the fired triggers joined by "+", e.g. "risk+motive".
func (d GateDecision) Trigger() string {
	out := ""
	for i, v := range d.VetoSignals {
		if i > 0 {
			out += "+"
		}
		out += string(v.Type)
	}
	return out
}

// #endregion gate-decision
