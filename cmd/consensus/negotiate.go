package main

import (
	"context"
	"fmt"
	"io"

	"github.com/danielpatrickdp/consensus-gate/internal/config"
	"github.com/danielpatrickdp/consensus-gate/internal/logging"
	"github.com/danielpatrickdp/consensus-gate/internal/negotiation"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region negotiate

// Run negotiates the session until CONVERGED or ESCALATE. An escalation is a
// verdict, not an error: it only changes the exit status.
func (c *NegotiateCmd) Run(a *app) error {
	env, err := openRun(a, c.RunFlags, logging.EngineNegotiation,
		func(s *config.Session) any { return s.Negotiation })
	if err != nil {
		return err
	}
	defer env.Close()

	roster, err := env.sess.NewRoster()
	if err != nil {
		return env.abort(err)
	}

	opts := []negotiation.Option{
		negotiation.WithSessionID(env.sessionID),
		negotiation.WithLogger(a.logger),
		negotiation.WithMetrics(env.metrics),
	}
	if env.store != nil {
		opts = append(opts, negotiation.WithCheckpointer(env.store))
	}
	eng, err := negotiation.NewEngine(env.sess.Negotiation, env.sink, opts...)
	if err != nil {
		return env.abort(err)
	}

	out, err := eng.Run(context.Background(), roster)
	if err != nil {
		return env.abort(err)
	}
	if err := env.finish(string(out.Verdict), out.Reason); err != nil {
		return err
	}

	printOutcome(a.out, env.sess.Dimensions, out)
	if out.Verdict == negotiation.VerdictEscalate {
		a.status = exitEscalated
	}
	return nil
}

func printOutcome(w io.Writer, dims vector.Dimensions, out negotiation.Outcome) {
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "%s  %s\n", titleStyle.Render("Negotiation"), dimStyle.Render(out.SessionID))
	fmt.Fprintf(w, "verdict  %s after %d round(s), harmony %.4f\n",
		verdictStyle(string(out.Verdict)).Render(string(out.Verdict)), out.Rounds, out.HarmonyScore)
	fmt.Fprintf(w, "reason   %s\n", valueStyle.Render(out.Reason))
	if out.Recommendation != "" {
		fmt.Fprintf(w, "next     %s\n", warnStyle.Render(out.Recommendation))
	}
	fmt.Fprintln(w)

	widths := []int{6, 8, 10, 8}
	header := []string{"Round", "Harmony", "Max dim", "Ratio"}
	fmt.Fprintln(w, headerStyle.Render(row(widths, header...)))
	for _, r := range out.History {
		fmt.Fprintln(w, row(widths,
			fmt.Sprint(r.Round),
			fmt.Sprintf("%.4f", r.Eval.HarmonyScore),
			r.Eval.MaxDimension,
			fmt.Sprintf("%.4f", r.Eval.MaxRatio),
		))
	}
	fmt.Fprintln(w)
	printAgents(w, dims, out.Agents)
}

// #endregion negotiate
