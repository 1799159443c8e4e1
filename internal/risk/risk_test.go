package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

func testPolicy() Policy {
	return Policy{
		Ideal: []IdealDimension{
			{Dimension: "safety", Value: 0.9},
			{Dimension: "ethics", Value: 0.8},
			{Dimension: "efficiency", Value: 0.5},
		},
		Tools:           map[string]int{"shell": 5, "web_search": 3, "calculator": 1},
		DefaultToolRisk: DefaultToolRisk,
		MajorDeviation:  0.7,
		MinorDeviation:  0.4,
	}
}

func TestAssessLowRisk(t *testing.T) {
	a := NewAssessor(testPolicy())
	got := a.Assess(vector.PriorityVector{"safety": 0.85, "ethics": 0.7, "efficiency": 0.5}, "")

	assert.Equal(t, 1, got.Score)
	assert.Equal(t, []string{"low risk"}, got.Reasons)
}

func TestAssessMajorDeviationSeals(t *testing.T) {
	a := NewAssessor(testPolicy())
	// safety deviates by 0.8 from the ideal
	got := a.Assess(vector.PriorityVector{"safety": 0.1, "ethics": 0.8, "efficiency": 0.5}, "")

	assert.Equal(t, 5, got.Score)
	assert.Equal(t, []string{"safety major deviation"}, got.Reasons)
}

func TestAssessMinorDeviation(t *testing.T) {
	a := NewAssessor(testPolicy())
	got := a.Assess(vector.PriorityVector{"safety": 0.4, "ethics": 0.8, "efficiency": 0.5}, "")

	assert.Equal(t, 3, got.Score)
	assert.Equal(t, []string{"safety minor deviation"}, got.Reasons)
}

func TestAssessThresholdsAreStrict(t *testing.T) {
	a := NewAssessor(Policy{Ideal: []IdealDimension{{Dimension: "d", Value: 0}}})

	assert.Equal(t, 1, a.Assess(vector.PriorityVector{"d": 0.4}, "").Score)
	assert.Equal(t, 3, a.Assess(vector.PriorityVector{"d": 0.41}, "").Score)
	assert.Equal(t, 3, a.Assess(vector.PriorityVector{"d": 0.7}, "").Score)
	assert.Equal(t, 5, a.Assess(vector.PriorityVector{"d": 0.71}, "").Score)
}

func TestAssessNeverLowersScore(t *testing.T) {
	a := NewAssessor(testPolicy())
	// major on safety first, minor on ethics second
	got := a.Assess(vector.PriorityVector{"safety": 0.1, "ethics": 0.35, "efficiency": 0.5}, "calculator")

	assert.Equal(t, 5, got.Score)
	assert.Equal(t, []string{
		"safety major deviation",
		"ethics minor deviation",
		"tool calculator risk level 1",
	}, got.Reasons)
}

func TestAssessToolRegistry(t *testing.T) {
	a := NewAssessor(testPolicy())
	clean := vector.PriorityVector{"safety": 0.9, "ethics": 0.8, "efficiency": 0.5}

	cases := []struct {
		tool   string
		score  int
		reason string
	}{
		{"web_search", 3, "tool web_search risk level 3"},
		{"shell", 5, "tool shell risk level 5"},
		{"unregistered", 2, "tool unregistered risk level 2"},
		{"calculator", 1, "tool calculator risk level 1"},
	}
	for _, tc := range cases {
		t.Run(tc.tool, func(t *testing.T) {
			got := a.Assess(clean, tc.tool)
			assert.Equal(t, tc.score, got.Score)
			assert.Equal(t, []string{tc.reason}, got.Reasons, "tool reason replaces the low-risk fragment")
		})
	}
}

func TestAssessIsDeterministic(t *testing.T) {
	a := NewAssessor(testPolicy())
	v := vector.PriorityVector{"safety": 0.3, "ethics": 0.2, "efficiency": 0.95}

	first := a.Assess(v, "web_search")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, a.Assess(v, "web_search"))
	}
	assert.Equal(t, []string{
		"safety minor deviation",
		"ethics minor deviation",
		"efficiency minor deviation",
		"tool web_search risk level 3",
	}, first.Reasons)
}

func TestAssessSkipsDimensionsMissingFromValues(t *testing.T) {
	a := NewAssessor(testPolicy())
	got := a.Assess(vector.PriorityVector{"efficiency": 0.5}, "")
	assert.Equal(t, 1, got.Score)
}

func TestNewAssessorCopiesPolicy(t *testing.T) {
	p := testPolicy()
	a := NewAssessor(p)
	p.Tools["shell"] = 1
	p.Ideal[0].Value = 0.1

	assert.Equal(t, ScoreSeal, a.Assess(vector.PriorityVector{}, "shell").Score)
	assert.Equal(t, []string{"low risk"}, a.Assess(vector.PriorityVector{"safety": 0.9}, "").Reasons)
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, testPolicy().Validate())
	require.NoError(t, DefaultPolicy(vector.Dimensions{"a", "b"}).Validate())

	bad := testPolicy()
	bad.Ideal = append(bad.Ideal, IdealDimension{Dimension: "safety", Value: 0.1})
	assert.Error(t, bad.Validate())

	bad = testPolicy()
	bad.Tools["rm"] = 9
	assert.Error(t, bad.Validate())

	bad = testPolicy()
	bad.MinorDeviation = 0.8
	assert.Error(t, bad.Validate())

	bad = testPolicy()
	bad.Ideal[1].Value = 1.2
	assert.Error(t, bad.Validate())

	assert.Error(t, Policy{}.Validate())
}
