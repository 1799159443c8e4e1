package agent

import (
	"fmt"

	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region status
// Status is the lifecycle state of an agent in the gating subsystem.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusSealed Status = "SEALED"
)

// History event tags.
const (
	EventSealed        = "sealed"
	EventEvolvedPrefix = "evolved:"
)

// #endregion status

// #region spec
// Spec is the validated description of one agent as read from configuration.
type Spec struct {
	ID             string
	Proposal       string
	RiskEvaluation any
	Tool           string // external tool the agent acts through, "" for none
	Priorities     vector.PriorityVector
	Relativity     float64
	Motive         float64
}

// #endregion spec

// #region agent
// Agent owns its priority vector. Only the engine running the session mutates it.
type Agent struct {
	id             string
	proposal       string
	riskEvaluation any
	tool           string
	priorities     vector.PriorityVector
	relativity     float64
	motive         float64
	status         Status
	history        []string
}

// New creates an active agent from a spec. The spec's vector is copied.
func New(s Spec) *Agent {
	return &Agent{
		id:             s.ID,
		proposal:       s.Proposal,
		riskEvaluation: s.RiskEvaluation,
		tool:           s.Tool,
		priorities:     s.Priorities.Clone().Clamp01(),
		relativity:     s.Relativity,
		motive:         s.Motive,
		status:         StatusActive,
	}
}

func (a *Agent) ID() string          { return a.id }
func (a *Agent) Proposal() string    { return a.proposal }
func (a *Agent) RiskEvaluation() any { return a.riskEvaluation }
func (a *Agent) Tool() string        { return a.tool }
func (a *Agent) Relativity() float64 { return a.relativity }
func (a *Agent) Motive() float64     { return a.motive }
func (a *Agent) Status() Status      { return a.status }
func (a *Agent) Sealed() bool        { return a.status == StatusSealed }

// Priorities returns a copy of the agent's current vector.
func (a *Agent) Priorities() vector.PriorityVector {
	return a.priorities.Clone()
}

// History returns a copy of the ordered event tags.
func (a *Agent) History() []string {
	out := make([]string, len(a.history))
	copy(out, a.history)
	return out
}

// #endregion agent

// #region mutations
// ApplyOffer replaces the vector with a negotiated offer (clamped).
// Negotiation does not use sealing, but a sealed agent is still never mutated.
func (a *Agent) ApplyOffer(offer vector.PriorityVector) error {
	if a.Sealed() {
		return fmt.Errorf("apply offer to %s: %w", a.id, ErrAgentSealed)
	}
	a.priorities = offer.Clone().Clamp01()
	return nil
}

// Evolve commits an accepted evolution: new vector, motive bumped by step,
// "evolved:<dimension>" appended to history.
func (a *Agent) Evolve(next vector.PriorityVector, dimension string, motiveStep float64) error {
	if a.Sealed() {
		return fmt.Errorf("evolve %s: %w", a.id, ErrAgentSealed)
	}
	a.priorities = next.Clone().Clamp01()
	a.motive += motiveStep
	a.history = append(a.history, EventEvolvedPrefix+dimension)
	return nil
}

// Seal moves the agent to SEALED. Vector and motive are left as they are.
// Sealing an already sealed agent is a no-op and reports false.
func (a *Agent) Seal() bool {
	if a.Sealed() {
		return false
	}
	a.status = StatusSealed
	a.history = append(a.history, EventSealed)
	return true
}

// #endregion mutations

// #region snapshot
// Snapshot is an immutable copy of an agent's state, used for audit and persistence.
type Snapshot struct {
	ID         string                `json:"id"`
	Priorities vector.PriorityVector `json:"priorities"`
	Relativity float64               `json:"relativity"`
	Motive     float64               `json:"motive"`
	Status     Status                `json:"status"`
	History    []string              `json:"history"`
}

// Snapshot captures the agent's current state.
func (a *Agent) Snapshot() Snapshot {
	return Snapshot{
		ID:         a.id,
		Priorities: a.Priorities(),
		Relativity: a.relativity,
		Motive:     a.motive,
		Status:     a.status,
		History:    a.History(),
	}
}

// #endregion snapshot
