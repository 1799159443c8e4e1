package state

import (
	"time"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region session
// Session is one engine run recorded in the store.
type Session struct {
	ID         string
	Engine     string // "negotiation" | "sealing"
	Dimensions vector.Dimensions
	ParamsJSON string
	Verdict    string // empty while running
	Reason     string
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Finished reports whether a verdict was recorded.
func (s Session) Finished() bool { return s.Verdict != "" }

// #endregion session

// #region agent-version
// AgentVersion is one agent's committed state after a round. Versions of the
// same agent chain through ParentID.
type AgentVersion struct {
	VersionID  string
	ParentID   string
	SessionID  string
	AgentID    string
	Round      int
	Priorities vector.PriorityVector
	Motive     float64
	Status     agent.Status
	History    []string
	CreatedAt  time.Time
}

// #endregion agent-version
