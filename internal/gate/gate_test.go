package gate

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/consensus-gate/internal/risk"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

func proposal() vector.PriorityVector {
	return vector.PriorityVector{"safety": 0.6, "ethics": 0.5}
}

func lowRisk() risk.Assessment {
	return risk.Assessment{Score: 1, Reasons: []string{"low risk"}}
}

func TestGateCommitOnLowRiskMotivated(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	decision := g.Evaluate(proposal(), 0.5, lowRisk())

	if decision.Action != ActionCommit {
		t.Fatalf("expected commit, got %s: %s", decision.Action, decision.Reason)
	}
	if decision.Sealed() {
		t.Fatal("should not be sealed")
	}
	if decision.Vector["safety"] != 0.6 {
		t.Fatalf("expected proposed vector to be carried, got %v", decision.Vector)
	}
}

func TestGateSealOnRiskScore(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	assessment := risk.Assessment{Score: 5, Reasons: []string{"safety major deviation"}}

	decision := g.Evaluate(proposal(), 0.9, assessment)

	if decision.Action != ActionSeal {
		t.Fatalf("expected seal, got %s", decision.Action)
	}
	if len(decision.VetoSignals) != 1 || decision.VetoSignals[0].Type != VetoRisk {
		t.Fatalf("expected single risk veto, got %+v", decision.VetoSignals)
	}
	if !strings.Contains(decision.Reason, "safety major deviation") {
		t.Fatalf("expected reason to carry risk fragments, got %q", decision.Reason)
	}
	if decision.Vector != nil {
		t.Fatal("sealed decision must not carry a vector")
	}
}

func TestGateSealOnLowMotiveRegardlessOfRisk(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	decision := g.Evaluate(proposal(), 0.15, lowRisk())

	if decision.Action != ActionSeal {
		t.Fatalf("expected seal, got %s", decision.Action)
	}
	if decision.Trigger() != "motive" {
		t.Fatalf("expected motive trigger, got %q", decision.Trigger())
	}
}

func TestGateMotiveBoundaryCommits(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	decision := g.Evaluate(proposal(), 0.2, lowRisk())

	if decision.Action != ActionCommit {
		t.Fatalf("motive equal to minimum should commit, got %s", decision.Action)
	}
}

func TestGateRiskBelowSealCommits(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	assessment := risk.Assessment{Score: 4, Reasons: []string{"tool x risk level 4"}}

	decision := g.Evaluate(proposal(), 0.5, assessment)

	if decision.Action != ActionCommit {
		t.Fatalf("expected commit below sealing score, got %s", decision.Action)
	}
}

func TestGateBothTriggers(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	assessment := risk.Assessment{Score: 5, Reasons: []string{"ethics major deviation"}}

	decision := g.Evaluate(proposal(), 0.1, assessment)

	if len(decision.VetoSignals) != 2 {
		t.Fatalf("expected 2 veto signals, got %d", len(decision.VetoSignals))
	}
	if decision.Trigger() != "risk+motive" {
		t.Fatalf("expected risk+motive, got %q", decision.Trigger())
	}
}

func TestGateCommitVectorIsCopy(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	p := proposal()

	decision := g.Evaluate(p, 0.5, lowRisk())
	p["safety"] = 0

	if decision.Vector["safety"] != 0.6 {
		t.Fatal("decision vector should not alias the proposal")
	}
}
