package replay

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

// #region fixture-tests

// TestFixtures replays every scenario under testdata. Any drift in the
// negotiation, gating or risk parameters shows up here.
func TestFixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) < 4 {
		t.Fatalf("expected at least 4 fixtures, found %d", len(paths))
	}

	var results []Result
	for _, path := range paths {
		f, err := LoadFixture(path)
		if err != nil {
			t.Fatalf("LoadFixture(%s): %v", path, err)
		}
		res, err := Run(context.Background(), f, nil)
		if err != nil {
			t.Fatalf("Run(%s): %v", path, err)
		}
		for _, c := range res.Checks {
			if !c.Match {
				t.Errorf("%s: %s expected %q, replayed %q", path, c.Name, c.Expected, c.Replayed)
			}
		}
		if len(res.Checks) == 0 {
			t.Errorf("%s: fixture checks nothing", path)
		}
		results = append(results, res)
	}

	sum := Summarize(results)
	if sum.Total != len(paths) || sum.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestParseFixture_RejectsUnknownMode(t *testing.T) {
	_, err := ParseFixture([]byte("mode: mediate\nsession: {agents: []}\n"))
	if err == nil || !strings.Contains(err.Error(), "mode must be") {
		t.Fatalf("expected mode error, got %v", err)
	}
}

func TestParseFixture_RequiresSession(t *testing.T) {
	_, err := ParseFixture([]byte("mode: negotiate\n"))
	if err == nil || !strings.Contains(err.Error(), "session is required") {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestParseFixture_RejectsUnknownFields(t *testing.T) {
	_, err := ParseFixture([]byte("mode: negotiate\nsession: {}\nexpected: {}\n"))
	if err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "nope.yaml")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

// #endregion fixture-tests
