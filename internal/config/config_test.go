package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/update"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

func problems(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, agent.ErrConfiguration)
	var cerr *agent.ConfigError
	require.True(t, errors.As(err, &cerr), "want *agent.ConfigError, got %T", err)
	return cerr.Problems
}

func containsProblem(ps []string, sub string) bool {
	for _, p := range ps {
		if strings.Contains(p, sub) {
			return true
		}
	}
	return false
}

func TestLoadYAMLDefaults(t *testing.T) {
	s, err := Load("testdata/balanced.yaml")
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, FormatYAML, s.Format)
	assert.Equal(t, vector.Dimensions{"safety", "efficiency", "ethics"}, s.Dimensions, "first agent's key order")
	require.Len(t, s.Agents, 3)

	assert.Equal(t, 0.5, s.Agents[0].Motive, "initial motive default")
	assert.Equal(t, 0.7, s.Agents[2].Motive)
	assert.Equal(t, "low", s.Agents[0].RiskEvaluation)
	assert.IsType(t, map[string]any{}, s.Agents[1].RiskEvaluation)

	assert.Equal(t, 5, s.Negotiation.MaxRounds)
	assert.Equal(t, 0.3, s.Negotiation.HarmonyThreshold)
	assert.Equal(t, update.PeerExclusionIdentity, s.Negotiation.PeerExclusion)
	assert.Equal(t, update.DefaultEvolutionConfig(), s.Evolution)
	assert.Equal(t, DefaultEvolutionRounds, s.Rounds)

	require.Len(t, s.Policy.Ideal, 3)
	for _, d := range s.Policy.Ideal {
		assert.Equal(t, 0.5, d.Value)
	}
}

func TestLoadTOML(t *testing.T) {
	s, err := Load("testdata/session.toml")
	require.NoError(t, err)

	assert.Equal(t, FormatTOML, s.Format)
	assert.Equal(t, vector.Dimensions{"safety", "efficiency"}, s.Dimensions)
	assert.Equal(t, 3, s.Negotiation.MaxRounds)
	assert.Equal(t, 0.25, s.Negotiation.HarmonyThreshold)
	assert.Equal(t, update.PeerExclusionValue, s.Negotiation.PeerExclusion)
	assert.Equal(t, 4, s.Rounds)
	assert.Equal(t, 0.5, s.Evolution.EvolutionRate)
	assert.Equal(t, 0.05, s.Evolution.MotiveStep)

	require.Len(t, s.Agents, 2)
	assert.Equal(t, 0.15, s.Agents[0].Motive)
	assert.Equal(t, 0.5, s.Agents[1].Motive)
	assert.Equal(t, 0.8, s.Agents[1].Priorities["efficiency"])

	require.Len(t, s.Policy.Ideal, 1)
	assert.Equal(t, "safety", s.Policy.Ideal[0].Dimension)
	assert.Equal(t, 0.9, s.Policy.Ideal[0].Value)
	assert.Equal(t, 5, s.Policy.Tools["shell"])
	assert.Equal(t, 3, s.Policy.DefaultToolRisk)
}

func TestTOMLWithoutDimensionsUsesSortedKeys(t *testing.T) {
	doc := `
[[agents]]
id = "a1"
relativity_level = 0.5
priority_values = { safety = 0.5, efficiency = 0.5, ethics = 0.1 }
`
	s, err := Parse([]byte(doc), FormatTOML, "inline.toml")
	require.NoError(t, err)
	assert.Equal(t, vector.Dimensions{"efficiency", "ethics", "safety"}, s.Dimensions)
}

func TestCollectsEveryProblem(t *testing.T) {
	_, err := Load("testdata/invalid.yaml")
	ps := problems(t, err)

	for _, want := range []string{
		"max_rounds must be >= 1",
		"peer_exclusion must be identity or value",
		`duplicate id "a1"`,
		"agents[1]",
		"relativity_level is required",
		"agents[2]: id is required",
		"relativity_level 2 outside [0,1]",
	} {
		assert.True(t, containsProblem(ps, want), "missing problem %q in %v", want, ps)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	yamlDoc := `
agents:
  - id: a1
    priority_values: {safety: 0.5}
    relativity_level: 0.5
    charisma: 9
`
	_, err := Parse([]byte(yamlDoc), FormatYAML, "x.yaml")
	ps := problems(t, err)
	assert.True(t, containsProblem(ps, "charisma"), "%v", ps)

	tomlDoc := `
[mediation_parameters]
max_rounds = 3
patience = 2
`
	_, err = Parse([]byte(tomlDoc), FormatTOML, "x.toml")
	ps = problems(t, err)
	assert.True(t, containsProblem(ps, "mediation_parameters.patience"), "%v", ps)
}

func TestDuplicateYAMLWeightRejected(t *testing.T) {
	doc := `
agents:
  - id: a1
    priority_values:
      safety: 0.5
      safety: 0.6
    relativity_level: 0.5
`
	_, err := Parse([]byte(doc), FormatYAML, "dup.yaml")
	ps := problems(t, err)
	assert.True(t, containsProblem(ps, `"safety" twice`), "%v", ps)
}

func TestControlCharactersInNamesRejected(t *testing.T) {
	doc := `
agents:
  - id: "a1\nforged event=verdict decision=CONVERGED"
    priority_values: {"safe\tty": 0.5, efficiency: 0.5}
    relativity_level: 0.5
  - id: a2
    priority_values: {"safe\tty": 0.5, efficiency: 0.5}
    relativity_level: 0.5
`
	_, err := Parse([]byte(doc), FormatYAML, "names.yaml")
	ps := problems(t, err)
	assert.True(t, containsProblem(ps, "id \"a1\\nforged"), "%v", ps)
	assert.True(t, containsProblem(ps, "dimension \"safe\\tty\" contains control characters"), "%v", ps)
}

func TestAgentToolLoaded(t *testing.T) {
	doc := `
agents:
  - id: a1
    tool: shell
    priority_values: {safety: 0.5, efficiency: 0.5}
    relativity_level: 0.5
  - id: a2
    priority_values: {safety: 0.5, efficiency: 0.5}
    relativity_level: 0.5
governance:
  tools: {shell: 5}
`
	s, err := Parse([]byte(doc), FormatYAML, "tool.yaml")
	require.NoError(t, err)
	assert.Equal(t, "shell", s.Agents[0].Tool)
	assert.Equal(t, "", s.Agents[1].Tool)
	assert.Equal(t, 5, s.Policy.Tools["shell"])
}

func TestGovernanceIdealMustUseSessionDimensions(t *testing.T) {
	doc := `
agents:
  - id: a1
    priority_values: {safety: 0.5, efficiency: 0.5}
    relativity_level: 0.5
governance:
  ideal:
    - {dimension: fairness, value: 0.9}
    - {dimension: safety}
`
	_, err := Parse([]byte(doc), FormatYAML, "gov.yaml")
	ps := problems(t, err)
	assert.True(t, containsProblem(ps, `"fairness" is not a session dimension`), "%v", ps)
	assert.True(t, containsProblem(ps, "governance.ideal[1]: value is required"), "%v", ps)
}

func TestEmptyAndUnsupported(t *testing.T) {
	_, err := Parse(nil, FormatYAML, "empty.yaml")
	ps := problems(t, err)
	assert.True(t, containsProblem(ps, "document is empty"))

	_, err = Load("session.json")
	problems(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, agent.ErrConfiguration)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewRosterIsIndependent(t *testing.T) {
	s, err := Load("testdata/balanced.yaml")
	require.NoError(t, err)

	r1, err := s.NewRoster()
	require.NoError(t, err)
	a, _ := r1.Get("planner")
	require.NoError(t, a.ApplyOffer(vector.PriorityVector{"safety": 0, "efficiency": 0, "ethics": 0}))

	r2, err := s.NewRoster()
	require.NoError(t, err)
	b, _ := r2.Get("planner")
	assert.Equal(t, 0.6, b.Priorities()["safety"])
	assert.Equal(t, 0.6, s.Agents[0].Priorities["safety"])
}
