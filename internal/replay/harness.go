package replay

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/logging"
	"github.com/danielpatrickdp/consensus-gate/internal/negotiation"
	"github.com/danielpatrickdp/consensus-gate/internal/risk"
	"github.com/danielpatrickdp/consensus-gate/internal/sealing"
)

// #region types

// Check compares one expected value against the replayed one.
type Check struct {
	Name     string
	Expected string
	Replayed string
	Match    bool
}

// Result is the outcome of replaying one fixture.
type Result struct {
	Fixture     string
	Description string
	Mode        Mode
	Verdict     string
	Rounds      int
	Agents      []agent.Snapshot
	Records     []logging.Record
	Checks      []Check
	Passed      bool
}

// Summary aggregates several replay results.
type Summary struct {
	Total  int
	Passed int
	Failed int
}

// #endregion types

// #region replay

// Run executes the fixture's session in memory and compares the outcome with
// its expectations. An error means the fixture could not run at all; a
// mismatch is reported through Result.Passed.
func Run(ctx context.Context, f *Fixture, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sess, err := f.LoadSession()
	if err != nil {
		return Result{}, err
	}
	roster, err := sess.NewRoster()
	if err != nil {
		return Result{}, err
	}

	sink := &logging.MemorySink{}
	res := Result{Fixture: f.Name(), Description: f.Description, Mode: f.Mode}

	switch f.Mode {
	case ModeNegotiate:
		eng, err := negotiation.NewEngine(sess.Negotiation, sink,
			negotiation.WithSessionID(sess.ID), negotiation.WithLogger(logger))
		if err != nil {
			return Result{}, err
		}
		out, err := eng.Run(ctx, roster)
		if err != nil {
			return Result{}, fmt.Errorf("replay %s: %w", f.Name(), err)
		}
		res.Verdict, res.Rounds = string(out.Verdict), out.Rounds

	case ModeEvolve:
		eng, err := sealing.NewEngine(sess.Evolution, risk.NewAssessor(sess.Policy), sink,
			sealing.WithSessionID(sess.ID), sealing.WithLogger(logger))
		if err != nil {
			return Result{}, err
		}
		rounds := sess.Rounds
		if f.Rounds > 0 {
			rounds = f.Rounds
		}
		sum, err := sealing.Driver{Engine: eng, Rounds: rounds}.Run(ctx, roster)
		if err != nil {
			return Result{}, fmt.Errorf("replay %s: %w", f.Name(), err)
		}
		res.Verdict, res.Rounds = sum.Verdict, sum.Rounds

	default:
		return Result{}, fmt.Errorf("replay %s: unknown mode %q", f.Name(), f.Mode)
	}

	res.Agents = roster.Snapshots()
	res.Records = sink.Records
	res.Checks = compare(f.Expect, res)
	res.Passed = true
	for _, c := range res.Checks {
		if !c.Match {
			res.Passed = false
		}
	}
	logger.Debug("fixture replayed",
		zap.String("fixture", res.Fixture),
		zap.String("verdict", res.Verdict),
		zap.Bool("passed", res.Passed),
	)
	return res, nil
}

func compare(exp Expectation, res Result) []Check {
	var checks []Check
	add := func(name, expected, replayed string) {
		checks = append(checks, Check{Name: name, Expected: expected, Replayed: replayed, Match: expected == replayed})
	}

	if exp.Verdict != "" {
		add("verdict", exp.Verdict, res.Verdict)
	}
	if exp.Rounds != nil {
		add("rounds", strconv.Itoa(*exp.Rounds), strconv.Itoa(res.Rounds))
	}

	var sealed, active []string
	history := make(map[string][]string, len(res.Agents))
	for _, a := range res.Agents {
		if a.Status == agent.StatusSealed {
			sealed = append(sealed, a.ID)
		} else {
			active = append(active, a.ID)
		}
		history[a.ID] = a.History
	}
	if exp.Sealed != nil {
		add("sealed", idList(exp.Sealed), idList(sealed))
	}
	if exp.Active != nil {
		add("active", idList(exp.Active), idList(active))
	}

	ids := make([]string, 0, len(exp.History))
	for id := range exp.History {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		add("history["+id+"]", strings.Join(exp.History[id], ","), strings.Join(history[id], ","))
	}

	if exp.LastReasonContains != "" {
		var last string
		if n := len(res.Records); n > 0 {
			last = res.Records[n-1].Reason
		}
		checks = append(checks, Check{
			Name:     "last_reason",
			Expected: "contains " + strconv.Quote(exp.LastReasonContains),
			Replayed: last,
			Match:    strings.Contains(last, exp.LastReasonContains),
		})
	}
	return checks
}

func idList(ids []string) string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return strings.Join(out, ",")
}

// Summarize counts passed and failed results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// #endregion replay
