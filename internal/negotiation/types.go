package negotiation

import (
	"errors"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/eval"
	"github.com/danielpatrickdp/consensus-gate/internal/update"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// ErrAlreadyRun is returned when Run is called twice on the same engine.
var ErrAlreadyRun = errors.New("negotiation already run")

// #region verdict
// Verdict is the status of a negotiation after a round.
type Verdict string

const (
	VerdictContinue  Verdict = "CONTINUE"
	VerdictConverged Verdict = "CONVERGED"
	VerdictEscalate  Verdict = "ESCALATE"
)

// Terminal reports whether the negotiation stops at v.
func (v Verdict) Terminal() bool {
	return v == VerdictConverged || v == VerdictEscalate
}

// EscalationRecommendation is attached to every ESCALATE outcome.
const EscalationRecommendation = "pursue external arbitration (human review) or seal the non-converging agents"

// #endregion verdict

// #region params
// Params are the mediation parameters of one session.
type Params struct {
	MaxRounds        int                  `json:"max_rounds"`
	HarmonyThreshold float64              `json:"harmony_threshold"`
	PeerExclusion    update.PeerExclusion `json:"peer_exclusion"`
}

// DefaultParams returns 5 rounds, threshold 0.3, identity peer exclusion.
func DefaultParams() Params {
	return Params{
		MaxRounds:        5,
		HarmonyThreshold: eval.DefaultEvalConfig().HarmonyThreshold,
		PeerExclusion:    update.PeerExclusionIdentity,
	}
}

// Validate reports every out-of-range parameter.
func (p Params) Validate() error {
	cerr := &agent.ConfigError{}
	if p.MaxRounds < 1 {
		cerr.Add("mediation_parameters.max_rounds must be >= 1, got %d", p.MaxRounds)
	}
	if !(p.HarmonyThreshold >= 0 && p.HarmonyThreshold <= 1) {
		cerr.Add("mediation_parameters.harmony_threshold must be in [0,1], got %v", p.HarmonyThreshold)
	}
	if !p.PeerExclusion.Valid() {
		cerr.Add("mediation_parameters.peer_exclusion must be identity or value, got %q", p.PeerExclusion)
	}
	return cerr.OrNil()
}

// #endregion params

// #region results
// AgentOffer is the offer one agent committed in a round.
type AgentOffer struct {
	AgentID   string
	Before    vector.PriorityVector
	After     vector.PriorityVector
	PeerCount int
	DeltaNorm float64
}

// RoundResult summarizes one committed round.
type RoundResult struct {
	Round   int
	Offers  []AgentOffer
	Eval    eval.EvalResult
	Verdict Verdict
}

// Outcome is the terminal result of Run.
type Outcome struct {
	SessionID      string
	Verdict        Verdict
	Rounds         int
	HarmonyScore   float64
	Reason         string
	Recommendation string // set on ESCALATE
	History        []RoundResult
	Agents         []agent.Snapshot
}

// #endregion results

// Checkpointer persists the agents' state after each committed round.
type Checkpointer interface {
	CommitRound(sessionID string, round int, snaps []agent.Snapshot) error
}
