package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/config"
	"github.com/danielpatrickdp/consensus-gate/internal/logging"
	"github.com/danielpatrickdp/consensus-gate/internal/risk"
	"github.com/danielpatrickdp/consensus-gate/internal/sealing"
	"github.com/danielpatrickdp/consensus-gate/internal/update"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region evolve

type evolveParams struct {
	update.EvolutionConfig
	Rounds int        `json:"rounds"`
	Policy risk.Policy `json:"governance"`
}

// Run drives the sealing engine for the configured number of rounds.
func (c *EvolveCmd) Run(a *app) error {
	if c.Rounds < 0 {
		return agent.NewConfigError("--rounds must be >= 1, got %d", c.Rounds)
	}
	rounds := func(s *config.Session) int {
		if c.Rounds > 0 {
			return c.Rounds
		}
		return s.Rounds
	}

	env, err := openRun(a, c.RunFlags, logging.EngineSealing, func(s *config.Session) any {
		return evolveParams{EvolutionConfig: s.Evolution, Rounds: rounds(s), Policy: s.Policy}
	})
	if err != nil {
		return err
	}
	defer env.Close()

	roster, err := env.sess.NewRoster()
	if err != nil {
		return env.abort(err)
	}

	opts := []sealing.Option{
		sealing.WithSessionID(env.sessionID),
		sealing.WithLogger(a.logger),
		sealing.WithMetrics(env.metrics),
	}
	if env.store != nil {
		opts = append(opts, sealing.WithCheckpointer(env.store))
	}
	eng, err := sealing.NewEngine(env.sess.Evolution, risk.NewAssessor(env.sess.Policy), env.sink, opts...)
	if err != nil {
		return env.abort(err)
	}

	sum, err := sealing.Driver{Engine: eng, Rounds: rounds(env.sess)}.Run(context.Background(), roster)
	if err != nil {
		return env.abort(err)
	}
	if err := env.finish(sum.Verdict, sum.Reason); err != nil {
		return err
	}

	printSummary(a.out, env.sess.Dimensions, sum)
	return nil
}

func printSummary(w io.Writer, dims vector.Dimensions, sum sealing.Summary) {
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "%s  %s\n", titleStyle.Render("Evolution"), dimStyle.Render(sum.SessionID))
	fmt.Fprintf(w, "verdict  %s after %d round(s): %d commit(s), %d seal(s)\n",
		verdictStyle(sum.Verdict).Render(sum.Verdict), sum.Rounds, sum.Committed, sum.Sealed)
	fmt.Fprintf(w, "reason   %s\n\n", valueStyle.Render(sum.Reason))

	widths := []int{6, 12, 8, 10, 6, 0}
	fmt.Fprintln(w, headerStyle.Render(row(widths, "Round", "Agent", "Action", "Dimension", "Risk", "Reason")))
	for _, rep := range sum.Reports {
		for _, d := range rep.Decisions {
			label := d.Label()
			reason := d.Gate.Reason
			if len(d.Gate.Assessment.Reasons) > 0 {
				reason += " [" + strings.Join(d.Gate.Assessment.Reasons, "; ") + "]"
			}
			fmt.Fprintln(w, row(widths,
				fmt.Sprint(rep.Round),
				d.AgentID,
				decisionStyle(label).Render(label),
				d.Proposal.Dimension,
				fmt.Sprint(d.Gate.Assessment.Score),
				reason,
			))
		}
	}
	fmt.Fprintln(w)
	printAgents(w, dims, sum.Agents)
}

// #endregion evolve

func printAgents(w io.Writer, dims vector.Dimensions, snaps []agent.Snapshot) {
	widths := []int{12, 8, 8, 0}
	fmt.Fprintln(w, headerStyle.Render(row(widths, "Agent", "Status", "Motive", "Priorities")))
	for _, s := range snaps {
		fmt.Fprintln(w, row(widths,
			s.ID,
			statusStyle(s.Status).Render(string(s.Status)),
			fmt.Sprintf("%.4f", s.Motive),
			s.Priorities.String(dims),
		))
	}
}
