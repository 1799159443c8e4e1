package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region format
// Format is the encoding of a session file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// #endregion format

// #region file-schema
// fileConfig mirrors the session document. Pointer fields distinguish
// "absent" (take the default) from an explicit zero.
type fileConfig struct {
	Dimensions []string          `yaml:"dimensions" toml:"dimensions"`
	Agents     []agentConfig     `yaml:"agents" toml:"agents"`
	Mediation  *mediationConfig  `yaml:"mediation_parameters" toml:"mediation_parameters"`
	Evolution  *evolutionConfig  `yaml:"evolution_parameters" toml:"evolution_parameters"`
	Governance *governanceConfig `yaml:"governance" toml:"governance"`
}

type agentConfig struct {
	ID              string   `yaml:"id" toml:"id"`
	Proposal        string   `yaml:"proposal" toml:"proposal"`
	RiskEvaluation  any      `yaml:"risk_evaluation" toml:"risk_evaluation"`
	Tool            string   `yaml:"tool" toml:"tool"`
	RelativityLevel *float64 `yaml:"relativity_level" toml:"relativity_level"`
	Motive          *float64 `yaml:"motive" toml:"motive"`

	// YAML keeps key order; TOML tables arrive as plain maps.
	PriorityValues orderedWeights     `yaml:"priority_values" toml:"-"`
	PriorityTable  map[string]float64 `yaml:"-" toml:"priority_values"`
}

type mediationConfig struct {
	MaxRounds        *int     `yaml:"max_rounds" toml:"max_rounds"`
	HarmonyThreshold *float64 `yaml:"harmony_threshold" toml:"harmony_threshold"`
	PeerExclusion    string   `yaml:"peer_exclusion" toml:"peer_exclusion"`
}

type evolutionConfig struct {
	Rounds        *int     `yaml:"rounds" toml:"rounds"`
	EvolutionRate *float64 `yaml:"evolution_rate" toml:"evolution_rate"`
	MotiveStep    *float64 `yaml:"motive_step" toml:"motive_step"`
	MinMotive     *float64 `yaml:"min_motive" toml:"min_motive"`
	InitialMotive *float64 `yaml:"initial_motive" toml:"initial_motive"`
}

type governanceConfig struct {
	Ideal           []idealConfig  `yaml:"ideal" toml:"ideal"`
	Tools           map[string]int `yaml:"tools" toml:"tools"`
	DefaultToolRisk *int           `yaml:"default_tool_risk" toml:"default_tool_risk"`
	MajorDeviation  *float64       `yaml:"major_deviation" toml:"major_deviation"`
	MinorDeviation  *float64       `yaml:"minor_deviation" toml:"minor_deviation"`
}

type idealConfig struct {
	Dimension string   `yaml:"dimension" toml:"dimension"`
	Value     *float64 `yaml:"value" toml:"value"`
}

// #endregion file-schema

// #region ordered-weights
// orderedWeights is a dimension -> weight mapping that remembers key order.
type orderedWeights struct {
	Keys   []string
	Values map[string]float64
}

// UnmarshalYAML decodes a mapping node, keeping keys in document order.
func (w *orderedWeights) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: priority_values must be a mapping", n.Line)
	}
	w.Values = make(map[string]float64, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if _, dup := w.Values[key]; dup {
			return fmt.Errorf("line %d: priority_values declares %q twice", n.Content[i].Line, key)
		}
		var v float64
		if err := n.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("line %d: priority_values.%s: %w", n.Content[i+1].Line, key, err)
		}
		w.Keys = append(w.Keys, key)
		w.Values[key] = v
	}
	return nil
}

// weights returns the agent's vector and its key order. TOML keys come back sorted.
func (a agentConfig) weights() ([]string, map[string]float64) {
	if a.PriorityValues.Values != nil {
		return a.PriorityValues.Keys, a.PriorityValues.Values
	}
	if a.PriorityTable == nil {
		return nil, nil
	}
	return vector.Sorted(a.PriorityTable), a.PriorityTable
}

// #endregion ordered-weights
