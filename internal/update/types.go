package update

import (
	"math"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region peer-exclusion
// PeerExclusion selects which snapshot vectors count as "others" when an
// agent computes its compromise offer.
type PeerExclusion string

const (
	// PeerExclusionIdentity excludes only the agent itself.
	PeerExclusionIdentity PeerExclusion = "identity"
	// PeerExclusionValue excludes every vector equal to the agent's own,
	// including peers that happen to hold identical weights. Kept for
	// compatibility with sessions recorded under the older behavior.
	PeerExclusionValue PeerExclusion = "value"
)

// Valid reports whether p is a known mode.
func (p PeerExclusion) Valid() bool {
	return p == PeerExclusionIdentity || p == PeerExclusionValue
}

// #endregion peer-exclusion

// #region offer
// Offer is one agent's compromise for a negotiation round.
type Offer struct {
	Vector    vector.PriorityVector
	PeerMean  vector.PriorityVector
	PeerCount int
	DeltaNorm float64 // L2 distance between the offer and the agent's snapshot vector
}

// #endregion offer

// #region evolution-config
// EvolutionConfig holds the step sizes of risk-gated evolution.
type EvolutionConfig struct {
	EvolutionRate float64 `json:"evolution_rate"` // share of the largest gap closed per accepted step (default 0.4)
	MotiveStep    float64 `json:"motive_step"`    // motive gained per accepted step (default 0.05)
	MinMotive     float64 `json:"min_motive"`     // agents below this are sealed (default 0.2)
	InitialMotive float64 `json:"initial_motive"` // motive assigned when configuration omits one (default 0.5)
}

// DefaultEvolutionConfig returns the standard evolution parameters.
func DefaultEvolutionConfig() EvolutionConfig {
	return EvolutionConfig{
		EvolutionRate: 0.4,
		MotiveStep:    0.05,
		MinMotive:     0.2,
		InitialMotive: 0.5,
	}
}

// Validate reports every out-of-range parameter.
func (c EvolutionConfig) Validate() error {
	cerr := &agent.ConfigError{}
	if !(c.EvolutionRate > 0 && c.EvolutionRate <= 1) {
		cerr.Add("evolution_parameters.evolution_rate must be in (0,1], got %v", c.EvolutionRate)
	}
	if math.IsNaN(c.MotiveStep) || math.IsInf(c.MotiveStep, 0) || c.MotiveStep < 0 {
		cerr.Add("evolution_parameters.motive_step must be a finite non-negative number, got %v", c.MotiveStep)
	}
	if math.IsNaN(c.MinMotive) || math.IsInf(c.MinMotive, 0) {
		cerr.Add("evolution_parameters.min_motive must be finite, got %v", c.MinMotive)
	}
	if math.IsNaN(c.InitialMotive) || math.IsInf(c.InitialMotive, 0) {
		cerr.Add("evolution_parameters.initial_motive must be finite, got %v", c.InitialMotive)
	}
	return cerr.OrNil()
}

// #endregion evolution-config

// #region proposal
// Proposal is the evolution an active agent asks to commit this round.
type Proposal struct {
	Vector    vector.PriorityVector
	Dimension string  // the single dimension moved
	Gap       float64 // environment average minus own value, before the move
	Step      float64 // signed amount applied (after clamping)
}

// #endregion proposal
