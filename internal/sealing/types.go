package sealing

import (
	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/gate"
	"github.com/danielpatrickdp/consensus-gate/internal/update"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region environment
// Environment is the shared reference point of one round.
type Environment struct {
	Round   int
	Average vector.PriorityVector
}

// EnvironmentAverage is the per-dimension mean over every agent of roster,
// sealed agents included.
func EnvironmentAverage(roster *agent.Roster) vector.PriorityVector {
	return vector.Mean(roster.Vectors(), roster.Dimensions())
}

// #endregion environment

// #region decisions
// Decision labels written to the audit trail.
const (
	DecisionCommit = string(gate.ActionCommit)
	DecisionSeal   = string(gate.ActionSeal)
	DecisionSkip   = "SKIP"
)

// Terminal verdicts of a Driver run.
const (
	VerdictComplete  = "COMPLETE"
	VerdictAllSealed = "ALL_SEALED"
)

// AgentDecision is what happened to one agent in a round.
type AgentDecision struct {
	AgentID      string
	Skipped      bool // agent was already sealed
	MotiveBefore float64
	Proposal     update.Proposal
	Gate         gate.GateDecision
}

// Label is COMMIT, SEAL or SKIP.
func (d AgentDecision) Label() string {
	if d.Skipped {
		return DecisionSkip
	}
	return string(d.Gate.Action)
}

// RoundReport summarizes one applied round.
type RoundReport struct {
	Round     int
	Decisions []AgentDecision
	Committed int
	Sealed    int
	Skipped   int
}

// Summary is the result of a Driver run.
type Summary struct {
	SessionID string
	Rounds    int // rounds actually executed
	Committed int
	Sealed    int
	AllSealed bool // stopped because no active agent remained
	Verdict   string
	Reason    string
	Reports   []RoundReport
	Agents    []agent.Snapshot
}

// #endregion decisions

// Checkpointer persists the agents' state after each applied round.
type Checkpointer interface {
	CommitRound(sessionID string, round int, snaps []agent.Snapshot) error
}
