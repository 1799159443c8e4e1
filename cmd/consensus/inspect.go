package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/logging"
	"github.com/danielpatrickdp/consensus-gate/internal/state"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region inspect

// Run lists recent sessions, or details one session with --session.
func (c *InspectCmd) Run(a *app) error {
	if c.DB == "" {
		return agent.NewConfigError("inspect needs --db (or CONSENSUS_DB)")
	}
	if c.Last < 1 {
		return agent.NewConfigError("--last must be >= 1, got %d", c.Last)
	}

	store, err := state.NewStore(c.DB)
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}
	defer store.Close()

	if c.Session != "" {
		return runDetailMode(a.out, store, c.Session, c.JSON)
	}
	return runListMode(a.out, store, c.Last, c.JSON)
}

// #endregion inspect

// #region list-mode

type sessionRow struct {
	SessionID  string   `json:"session_id"`
	Engine     string   `json:"engine"`
	Dimensions []string `json:"dimensions"`
	Verdict    string   `json:"verdict,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	CreatedAt  string   `json:"created_at"`
	FinishedAt string   `json:"finished_at,omitempty"`
}

func toSessionRow(s state.Session) sessionRow {
	r := sessionRow{
		SessionID:  s.ID,
		Engine:     s.Engine,
		Dimensions: s.Dimensions,
		Verdict:    s.Verdict,
		Reason:     s.Reason,
		CreatedAt:  s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if s.Finished() {
		r.FinishedAt = s.FinishedAt.Format("2006-01-02T15:04:05Z")
	}
	return r
}

func runListMode(w io.Writer, store *state.Store, last int, jsonOut bool) error {
	sessions, err := store.ListSessions(last)
	if err != nil {
		return err
	}
	rows := make([]sessionRow, len(sessions))
	for i, s := range sessions {
		rows[i] = toSessionRow(s)
	}
	if jsonOut {
		return printJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no sessions found"))
		return nil
	}

	widths := []int{10, 12, 12, 22, 0}
	fmt.Fprintln(w, headerStyle.Render(row(widths, "Session", "Engine", "Verdict", "Created", "Reason")))
	for _, r := range rows {
		verdict := r.Verdict
		if verdict == "" {
			verdict = "RUNNING"
		}
		fmt.Fprintln(w, row(widths,
			shortID(r.SessionID),
			r.Engine,
			verdictStyle(verdict).Render(verdict),
			r.CreatedAt,
			r.Reason,
		))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type versionRow struct {
	VersionID  string                `json:"version_id"`
	ParentID   string                `json:"parent_id,omitempty"`
	AgentID    string                `json:"agent_id"`
	Round      int                   `json:"round"`
	Status     agent.Status          `json:"status"`
	Motive     float64               `json:"motive"`
	Priorities vector.PriorityVector `json:"priorities"`
	History    []string              `json:"history"`
}

type provenanceRow struct {
	Round    int             `json:"round"`
	AgentID  string          `json:"agent_id,omitempty"`
	Event    string          `json:"event"`
	Decision string          `json:"decision,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Fields   []logging.Field `json:"fields,omitempty"`
}

type detailOutput struct {
	Session    sessionRow      `json:"session"`
	Versions   []versionRow    `json:"versions"`
	Final      []versionRow    `json:"final"`
	Provenance []provenanceRow `json:"provenance"`
}

func runDetailMode(w io.Writer, store *state.Store, sessionID string, jsonOut bool) error {
	sess, err := store.GetSession(sessionID)
	if err != nil {
		return err
	}
	versions, err := store.ListAgentVersions(sessionID)
	if err != nil {
		return err
	}
	latest, err := store.LatestVersions(sessionID)
	if err != nil {
		return err
	}
	// Creates provenance_log when the database was written without an audit table.
	if _, err := logging.NewProvenanceSink(store.DB()); err != nil {
		return err
	}
	records, err := logging.ListProvenance(store.DB(), sessionID)
	if err != nil {
		return err
	}

	out := detailOutput{Session: toSessionRow(sess)}
	for _, v := range versions {
		out.Versions = append(out.Versions, toVersionRow(v))
	}
	for _, v := range latest {
		out.Final = append(out.Final, toVersionRow(v))
	}
	for _, r := range records {
		out.Provenance = append(out.Provenance, provenanceRow{
			Round:    r.Round,
			AgentID:  r.AgentID,
			Event:    r.Event,
			Decision: r.Decision,
			Reason:   r.Reason,
			Fields:   r.Fields,
		})
	}

	if jsonOut {
		return printJSON(w, out)
	}

	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "%s  %s\n", titleStyle.Render("Session "+sess.ID), dimStyle.Render(sess.Engine))
	verdict := sess.Verdict
	if verdict == "" {
		verdict = "RUNNING"
	}
	fmt.Fprintf(w, "verdict  %s  %s\n", verdictStyle(verdict).Render(verdict), sess.Reason)
	fmt.Fprintf(w, "params   %s\n\n", dimStyle.Render(sess.ParamsJSON))

	printVersions(w, sess.Dimensions, out.Versions)
	if len(out.Final) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("Final state"))
		printVersions(w, sess.Dimensions, out.Final)
	}

	if len(records) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("Audit trail"))
		for _, r := range records {
			fmt.Fprintln(w, logging.FormatLine(r))
		}
	}
	return nil
}

func toVersionRow(v state.AgentVersion) versionRow {
	return versionRow{
		VersionID:  v.VersionID,
		ParentID:   v.ParentID,
		AgentID:    v.AgentID,
		Round:      v.Round,
		Status:     v.Status,
		Motive:     v.Motive,
		Priorities: v.Priorities,
		History:    v.History,
	}
}

func printVersions(w io.Writer, dims vector.Dimensions, rows []versionRow) {
	widths := []int{6, 12, 8, 8, 10, 0}
	fmt.Fprintln(w, headerStyle.Render(row(widths, "Round", "Agent", "Status", "Motive", "Version", "Priorities")))
	for _, v := range rows {
		fmt.Fprintln(w, row(widths,
			fmt.Sprint(v.Round),
			v.AgentID,
			statusStyle(v.Status).Render(string(v.Status)),
			fmt.Sprintf("%.4f", v.Motive),
			shortID(v.VersionID),
			v.Priorities.String(dims),
		))
	}
}

// #endregion detail-mode

// #region output

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
