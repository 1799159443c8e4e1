package agent

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region roster
// Roster is the ordered group of agents taking part in one session, together
// with the session's dimension set.
type Roster struct {
	dims   vector.Dimensions
	agents []*Agent
}

// NewRoster validates specs against dims and builds the agents.
// Every violation is reported in a single *ConfigError.
func NewRoster(dims vector.Dimensions, specs []Spec) (*Roster, error) {
	cerr := &ConfigError{}
	if err := dims.Validate(); err != nil {
		cerr.Add("dimensions: %v", err)
	}
	if len(specs) == 0 {
		cerr.Add("agents: at least one agent is required")
	}

	seen := make(map[string]struct{}, len(specs))
	for i, s := range specs {
		label := s.ID
		if strings.TrimSpace(s.ID) == "" {
			cerr.Add("agents[%d]: id is required", i)
			label = fmt.Sprintf("agents[%d]", i)
		} else if vector.HasControl(s.ID) {
			cerr.Add("agents[%d]: id %q contains control characters", i, s.ID)
		} else if _, dup := seen[s.ID]; dup {
			cerr.Add("agents[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = struct{}{}
		if vector.HasControl(s.Tool) {
			cerr.Add("%s: tool %q contains control characters", label, s.Tool)
		}

		if s.Priorities == nil {
			cerr.Add("%s: priority_values is required", label)
		} else if len(dims) > 0 {
			if err := s.Priorities.Validate(dims); err != nil {
				cerr.Add("%s: priority_values %v", label, err)
			}
		}
		if math.IsNaN(s.Relativity) || s.Relativity < 0 || s.Relativity > 1 {
			cerr.Add("%s: relativity_level %v outside [0,1]", label, s.Relativity)
		}
		if math.IsNaN(s.Motive) || math.IsInf(s.Motive, 0) {
			cerr.Add("%s: motive must be a finite number", label)
		}
	}
	if err := cerr.OrNil(); err != nil {
		return nil, err
	}

	r := &Roster{dims: append(vector.Dimensions(nil), dims...)}
	for _, s := range specs {
		r.agents = append(r.agents, New(s))
	}
	return r, nil
}

// Dimensions returns the session dimension set.
func (r *Roster) Dimensions() vector.Dimensions {
	return append(vector.Dimensions(nil), r.dims...)
}

// Agents returns the agents in declaration order. The slice is a copy; the
// agents are shared.
func (r *Roster) Agents() []*Agent {
	return append([]*Agent(nil), r.agents...)
}

// Len returns the number of agents.
func (r *Roster) Len() int { return len(r.agents) }

// Get looks up an agent by id.
func (r *Roster) Get(id string) (*Agent, bool) {
	for _, a := range r.agents {
		if a.id == id {
			return a, true
		}
	}
	return nil, false
}

// Vectors copies every agent's vector, in roster order. Rounds read peers
// from this copy so writes never leak into the same round.
func (r *Roster) Vectors() []vector.PriorityVector {
	out := make([]vector.PriorityVector, len(r.agents))
	for i, a := range r.agents {
		out[i] = a.Priorities()
	}
	return out
}

// Snapshots captures every agent's state, in roster order.
func (r *Roster) Snapshots() []Snapshot {
	out := make([]Snapshot, len(r.agents))
	for i, a := range r.agents {
		out[i] = a.Snapshot()
	}
	return out
}

// CheckConsistent re-verifies that every agent still carries exactly the
// session dimensions. Rosters built by NewRoster always pass.
func (r *Roster) CheckConsistent() error {
	cerr := &ConfigError{}
	for _, a := range r.agents {
		if err := a.priorities.Validate(r.dims); err != nil {
			cerr.Add("%s: %v", a.id, err)
		}
	}
	return cerr.OrNil()
}

// MeanRelativity is the arithmetic mean of the agents' relativity levels.
func (r *Roster) MeanRelativity() float64 {
	if len(r.agents) == 0 {
		return 0
	}
	var sum float64
	for _, a := range r.agents {
		sum += a.relativity
	}
	return sum / float64(len(r.agents))
}

// CountStatus returns how many agents are in status s.
func (r *Roster) CountStatus(s Status) int {
	n := 0
	for _, a := range r.agents {
		if a.status == s {
			n++
		}
	}
	return n
}

// #endregion roster
