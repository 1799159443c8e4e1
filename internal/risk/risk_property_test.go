package risk

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"pgregory.net/rapid"

	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// Any single dimension deviating by more than 0.7 forces score 5,
// whatever the other dimensions hold.
func TestProperty_MajorDeviationAlwaysSeals(t *testing.T) {
	a := NewAssessor(testPolicy())
	rapid.Check(t, func(rt *rapid.T) {
		values := vector.PriorityVector{
			"safety":     rapid.Float64Range(0, 1).Draw(rt, "safety"),
			"ethics":     rapid.Float64Range(0, 1).Draw(rt, "ethics"),
			"efficiency": rapid.Float64Range(0, 1).Draw(rt, "efficiency"),
		}
		// safety ideal is 0.9: anything below 0.2 deviates by more than 0.7
		values["safety"] = rapid.Float64Range(0, 0.19).Draw(rt, "low_safety")

		got := a.Assess(values, rapid.SampledFrom([]string{"", "calculator", "web_search"}).Draw(rt, "tool"))
		if got.Score != 5 {
			rt.Fatalf("expected score 5, got %d (%v)", got.Score, got.Reasons)
		}
		if got.Reasons[0] != "safety major deviation" {
			rt.Fatalf("expected safety major deviation first, got %v", got.Reasons)
		}
	})
}

func TestProperty_ScoreWithinBounds(t *testing.T) {
	a := NewAssessor(testPolicy())
	rapid.Check(t, func(rt *rapid.T) {
		values := vector.PriorityVector{
			"safety":     rapid.Float64Range(0, 1).Draw(rt, "safety"),
			"ethics":     rapid.Float64Range(0, 1).Draw(rt, "ethics"),
			"efficiency": rapid.Float64Range(0, 1).Draw(rt, "efficiency"),
		}
		got := a.Assess(values, rapid.StringMatching(`[a-z_]{0,8}`).Draw(rt, "tool"))
		if got.Score < 1 || got.Score > 5 {
			rt.Fatalf("score %d outside [1,5]", got.Score)
		}
		if len(got.Reasons) == 0 {
			rt.Fatal("assessment without reasons")
		}
	})
}

// Moving every value further from the ideal never lowers the score.
func TestProperty_ScoreMonotonicInDeviation(t *testing.T) {
	a := NewAssessor(Policy{
		Ideal: []IdealDimension{
			{Dimension: "x", Value: 0.5},
			{Dimension: "y", Value: 0.5},
		},
	})

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("larger deviation on every dimension scores at least as high", prop.ForAll(
		func(dx, dy, gx, gy float64) bool {
			near := vector.PriorityVector{"x": 0.5 + dx, "y": 0.5 - dy}
			far := vector.PriorityVector{
				"x": math.Min(1, 0.5+dx+gx),
				"y": math.Max(0, 0.5-dy-gy),
			}
			return a.Assess(far, "").Score >= a.Assess(near, "").Score
		},
		gen.Float64Range(0, 0.5),
		gen.Float64Range(0, 0.5),
		gen.Float64Range(0, 0.5),
		gen.Float64Range(0, 0.5),
	))

	properties.Property("declaring a tool never lowers the score", prop.ForAll(
		func(x, y float64, tool string) bool {
			v := vector.PriorityVector{"x": x, "y": y}
			return a.Assess(v, tool).Score >= a.Assess(v, "").Score
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
