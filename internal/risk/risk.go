package risk

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region scores
const (
	ScoreLow   = 1
	ScoreMinor = 3
	ScoreSeal  = 5

	DefaultToolRisk = 2
)

// #endregion scores

// #region policy
// IdealDimension is one entry of the governance ideal.
type IdealDimension struct {
	Dimension string
	Value     float64
}

// Policy is the governance ideal and tool registry an Assessor scores against.
type Policy struct {
	Ideal           []IdealDimension // declared order drives reason order
	Tools           map[string]int   // tool name -> risk level
	DefaultToolRisk int              // risk for tools missing from Tools
	MajorDeviation  float64          // deviation above this scores ScoreSeal
	MinorDeviation  float64          // deviation above this scores ScoreMinor
}

// DefaultPolicy returns a policy with an ideal of 0.5 on every dimension of ds
// and an empty tool registry.
func DefaultPolicy(ds vector.Dimensions) Policy {
	ideal := make([]IdealDimension, 0, len(ds))
	for _, d := range ds {
		ideal = append(ideal, IdealDimension{Dimension: d, Value: 0.5})
	}
	return Policy{
		Ideal:           ideal,
		Tools:           map[string]int{},
		DefaultToolRisk: DefaultToolRisk,
		MajorDeviation:  0.7,
		MinorDeviation:  0.4,
	}
}

// Validate checks ideal values, thresholds and tool levels.
func (p Policy) Validate() error {
	if len(p.Ideal) == 0 {
		return fmt.Errorf("governance ideal is empty")
	}
	seen := make(map[string]struct{}, len(p.Ideal))
	for _, d := range p.Ideal {
		if d.Dimension == "" {
			return fmt.Errorf("governance ideal has a blank dimension")
		}
		if _, dup := seen[d.Dimension]; dup {
			return fmt.Errorf("governance ideal declares %q twice", d.Dimension)
		}
		seen[d.Dimension] = struct{}{}
		if math.IsNaN(d.Value) || d.Value < 0 || d.Value > 1 {
			return fmt.Errorf("governance ideal %q value %v outside [0,1]", d.Dimension, d.Value)
		}
	}
	if !(p.MinorDeviation > 0 && p.MinorDeviation < p.MajorDeviation) {
		return fmt.Errorf("deviation thresholds must satisfy 0 < minor (%v) < major (%v)", p.MinorDeviation, p.MajorDeviation)
	}
	if !validLevel(p.DefaultToolRisk) {
		return fmt.Errorf("default tool risk %d outside [1,5]", p.DefaultToolRisk)
	}
	for name, lvl := range p.Tools {
		if !validLevel(lvl) {
			return fmt.Errorf("tool %q risk %d outside [1,5]", name, lvl)
		}
	}
	return nil
}

func validLevel(l int) bool { return l >= ScoreLow && l <= ScoreSeal }

// #endregion policy

// #region assessment
// Assessment is the result of scoring one set of values.
type Assessment struct {
	Score   int
	Reasons []string
}

// #endregion assessment

// #region assessor
// Assessor scores priority values against a governance policy.
// It holds no mutable state; Assess is a pure function of its inputs.
type Assessor struct {
	policy Policy
}

// NewAssessor creates an assessor bound to policy.
func NewAssessor(policy Policy) *Assessor {
	tools := make(map[string]int, len(policy.Tools))
	for k, v := range policy.Tools {
		tools[k] = v
	}
	policy.Tools = tools
	policy.Ideal = append([]IdealDimension(nil), policy.Ideal...)
	if policy.DefaultToolRisk == 0 {
		policy.DefaultToolRisk = DefaultToolRisk
	}
	if policy.MajorDeviation == 0 && policy.MinorDeviation == 0 {
		policy.MajorDeviation, policy.MinorDeviation = 0.7, 0.4
	}
	return &Assessor{policy: policy}
}

// Assess scores values. tool is the declared external tool, "" for none.
// Dimensions of the ideal absent from values are not scored.
func (r *Assessor) Assess(values vector.PriorityVector, tool string) Assessment {
	score := ScoreLow
	var reasons []string

	for _, ideal := range r.policy.Ideal {
		v, ok := values[ideal.Dimension]
		if !ok {
			continue
		}
		deviation := math.Abs(v - ideal.Value)
		switch {
		case deviation > r.policy.MajorDeviation:
			reasons = append(reasons, ideal.Dimension+" major deviation")
			score = max(score, ScoreSeal)
		case deviation > r.policy.MinorDeviation:
			reasons = append(reasons, ideal.Dimension+" minor deviation")
			score = max(score, ScoreMinor)
		}
	}

	if tool != "" {
		lvl, ok := r.policy.Tools[tool]
		if !ok {
			lvl = r.policy.DefaultToolRisk
		}
		reasons = append(reasons, fmt.Sprintf("tool %s risk level %d", tool, lvl))
		score = max(score, lvl)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "low risk")
	}
	return Assessment{Score: score, Reasons: reasons}
}

// #endregion assessor
