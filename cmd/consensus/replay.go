package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/consensus-gate/internal/replay"
)

// #region replay

// Run replays every fixture and prints one table per fixture. Any divergence
// sets exit status 1; a fixture that cannot run at all is an error.
func (c *ReplayCmd) Run(a *app) error {
	paths, err := expandFixtures(c.Fixtures)
	if err != nil {
		return err
	}

	logger := a.logger.With(zap.String("component", "replay"))
	var results []replay.Result
	for _, p := range paths {
		f, err := replay.LoadFixture(p)
		if err != nil {
			return err
		}
		res, err := replay.Run(context.Background(), f, logger)
		if err != nil {
			return err
		}
		printResult(a.out, res, c.Verbose)
		results = append(results, res)
	}

	sum := replay.Summarize(results)
	fmt.Fprintln(a.out, divider)
	fmt.Fprintf(a.out, "%d fixture(s): %s, %s\n", sum.Total,
		successStyle.Render(fmt.Sprintf("%d passed", sum.Passed)),
		matchStyle(sum.Failed == 0).Render(fmt.Sprintf("%d failed", sum.Failed)))
	if sum.Failed > 0 {
		a.status = exitRuntime
	}
	return nil
}

func expandFixtures(patterns []string) ([]string, error) {
	var paths []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pat, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no fixture matches %q", pat)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

func printResult(w io.Writer, res replay.Result, verbose bool) {
	status := successStyle.Render("PASS")
	if !res.Passed {
		status = errorStyle.Render("FAIL")
	}
	fmt.Fprintf(w, "%s  %s  %s\n", status, titleStyle.Render(res.Fixture), dimStyle.Render(res.Description))
	fmt.Fprintf(w, "      mode %s, verdict %s, %d round(s), %d audit record(s)\n",
		res.Mode, verdictStyle(res.Verdict).Render(res.Verdict), res.Rounds, len(res.Records))

	widths := []int{18, 24, 24, 5}
	printed := false
	for _, ch := range res.Checks {
		if ch.Match && !verbose {
			continue
		}
		if !printed {
			fmt.Fprintln(w, "      "+headerStyle.Render(row(widths, "Check", "Expected", "Replayed", "Match")))
			printed = true
		}
		mark := "yes"
		if !ch.Match {
			mark = "no"
		}
		fmt.Fprintln(w, "      "+row(widths, ch.Name, ch.Expected, ch.Replayed, matchStyle(ch.Match).Render(mark)))
	}
	fmt.Fprintln(w)
}

// #endregion replay
