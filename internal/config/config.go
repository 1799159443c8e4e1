// Package config loads a session document (YAML or TOML) into a validated,
// read-only Session. Every problem found is reported at once.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/negotiation"
	"github.com/danielpatrickdp/consensus-gate/internal/risk"
	"github.com/danielpatrickdp/consensus-gate/internal/update"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// DefaultEvolutionRounds is used when evolution_parameters.rounds is absent.
const DefaultEvolutionRounds = 5

// #region session
// Session is a validated session document. Engines never see a partially
// valid one.
type Session struct {
	ID          string
	Source      string
	Format      Format
	Dimensions  vector.Dimensions
	Agents      []agent.Spec
	Negotiation negotiation.Params
	Evolution   update.EvolutionConfig
	Rounds      int // evolution rounds
	Policy      risk.Policy
}

// NewRoster builds a fresh roster from the session's agents. Each call
// returns independent agents.
func (s *Session) NewRoster() (*agent.Roster, error) {
	specs := make([]agent.Spec, len(s.Agents))
	for i, a := range s.Agents {
		a.Priorities = a.Priorities.Clone()
		specs[i] = a
	}
	return agent.NewRoster(s.Dimensions, specs)
}

// #endregion session

// #region load
// Load reads path and parses it by extension (.yaml, .yml or .toml).
func Load(path string) (*Session, error) {
	format, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", agent.ErrConfiguration, path, err)
	}
	return Parse(data, format, path)
}

func formatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", agent.NewConfigError("%s: unsupported extension (want .yaml, .yml or .toml)", path)
}

// Parse decodes data and validates the result. source names the document in
// error messages.
func Parse(data []byte, format Format, source string) (*Session, error) {
	var raw fileConfig
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, agent.NewConfigError("%s: document is empty", source)
			}
			return nil, agent.NewConfigError("%s: %v", source, err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &raw)
		if err != nil {
			return nil, agent.NewConfigError("%s: %v", source, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			cerr := &agent.ConfigError{}
			for _, k := range undecoded {
				cerr.Add("%s: unknown field %q", source, k.String())
			}
			return nil, cerr
		}
	default:
		return nil, agent.NewConfigError("%s: unsupported format %q", source, format)
	}

	s, err := build(raw)
	if err != nil {
		return nil, err
	}
	s.Source = source
	s.Format = format
	return s, nil
}

// #endregion load

// #region build
func build(raw fileConfig) (*Session, error) {
	cerr := &agent.ConfigError{}

	dims := vector.Dimensions(raw.Dimensions)
	if len(dims) == 0 && len(raw.Agents) > 0 {
		keys, _ := raw.Agents[0].weights()
		dims = vector.Dimensions(keys)
	}

	evo := update.DefaultEvolutionConfig()
	rounds := DefaultEvolutionRounds
	if e := raw.Evolution; e != nil {
		setFloat(&evo.EvolutionRate, e.EvolutionRate)
		setFloat(&evo.MotiveStep, e.MotiveStep)
		setFloat(&evo.MinMotive, e.MinMotive)
		setFloat(&evo.InitialMotive, e.InitialMotive)
		if e.Rounds != nil {
			rounds = *e.Rounds
		}
	}
	cerr.Merge(evo.Validate())
	if rounds < 1 {
		cerr.Add("evolution_parameters.rounds must be >= 1, got %d", rounds)
	}

	params := negotiation.DefaultParams()
	if m := raw.Mediation; m != nil {
		if m.MaxRounds != nil {
			params.MaxRounds = *m.MaxRounds
		}
		setFloat(&params.HarmonyThreshold, m.HarmonyThreshold)
		if m.PeerExclusion != "" {
			params.PeerExclusion = update.PeerExclusion(m.PeerExclusion)
		}
	}
	cerr.Merge(params.Validate())

	specs := make([]agent.Spec, 0, len(raw.Agents))
	for i, a := range raw.Agents {
		label := a.ID
		if label == "" {
			label = fmt.Sprintf("agents[%d]", i)
		}
		_, values := a.weights()
		spec := agent.Spec{
			ID:             a.ID,
			Proposal:       a.Proposal,
			RiskEvaluation: a.RiskEvaluation,
			Tool:           a.Tool,
			Motive:         evo.InitialMotive,
		}
		if values != nil {
			spec.Priorities = vector.PriorityVector(values).Clone()
		}
		if a.RelativityLevel == nil {
			cerr.Add("%s: relativity_level is required", label)
		} else {
			spec.Relativity = *a.RelativityLevel
		}
		if a.Motive != nil {
			spec.Motive = *a.Motive
		}
		specs = append(specs, spec)
	}
	if _, err := agent.NewRoster(dims, specs); err != nil {
		cerr.Merge(err)
	}

	policy, err := buildPolicy(raw.Governance, dims)
	cerr.Merge(err)

	if err := cerr.OrNil(); err != nil {
		return nil, err
	}
	return &Session{
		ID:          uuid.New().String(),
		Dimensions:  append(vector.Dimensions(nil), dims...),
		Agents:      specs,
		Negotiation: params,
		Evolution:   evo,
		Rounds:      rounds,
		Policy:      policy,
	}, nil
}

// buildPolicy applies the governance section over the default policy (ideal
// 0.5 on every session dimension).
func buildPolicy(g *governanceConfig, dims vector.Dimensions) (risk.Policy, error) {
	policy := risk.DefaultPolicy(dims)
	if g == nil {
		if len(dims) == 0 {
			return policy, nil
		}
		return policy, policy.Validate()
	}

	cerr := &agent.ConfigError{}
	if len(g.Ideal) > 0 {
		policy.Ideal = policy.Ideal[:0:0]
		for i, d := range g.Ideal {
			if d.Value == nil {
				cerr.Add("governance.ideal[%d]: value is required", i)
				continue
			}
			if len(dims) > 0 && !dims.Contains(d.Dimension) {
				cerr.Add("governance.ideal[%d]: %q is not a session dimension", i, d.Dimension)
			}
			policy.Ideal = append(policy.Ideal, risk.IdealDimension{Dimension: d.Dimension, Value: *d.Value})
		}
	}
	for name, lvl := range g.Tools {
		policy.Tools[name] = lvl
	}
	if g.DefaultToolRisk != nil {
		policy.DefaultToolRisk = *g.DefaultToolRisk
	}
	setFloat(&policy.MajorDeviation, g.MajorDeviation)
	setFloat(&policy.MinorDeviation, g.MinorDeviation)

	if len(cerr.Problems) == 0 && len(policy.Ideal) > 0 {
		if err := policy.Validate(); err != nil {
			cerr.Add("governance: %v", err)
		}
	}
	return policy, cerr.OrNil()
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// #endregion build
