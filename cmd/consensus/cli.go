// Package main defines the consensus command-line interface.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	LogLevel  string `name:"log-level" default:"${log_level}" enum:"debug,info,warn,error" help:"Operational log level (${enum})"`
	LogFormat string `name:"log-format" default:"console" enum:"console,json" help:"Operational log encoding (${enum})"`

	Negotiate NegotiateCmd `cmd:"" help:"Run a negotiation session until consensus or escalation"`
	Evolve    EvolveCmd    `cmd:"" help:"Run gated evolution rounds"`
	Replay    ReplayCmd    `cmd:"" help:"Replay scenario fixtures and compare outcomes"`
	Inspect   InspectCmd   `cmd:"" help:"Show sessions and agent versions recorded in a state database"`
	Version   VersionCmd   `cmd:"" help:"Show version information"`
}

// RunFlags are shared by the commands that drive an engine.
type RunFlags struct {
	Config      string `short:"c" required:"" help:"Session file (.yaml, .yml or .toml)"`
	Audit       string `default:"${audit}" help:"Audit log file (truncated per run)"`
	DB          string `name:"db" default:"${db}" help:"SQLite state database for versions and provenance"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics in textfile format on exit"`
}

// NegotiateCmd runs the negotiation engine.
type NegotiateCmd struct {
	RunFlags `embed:""`
}

// EvolveCmd runs the sealing engine for a number of rounds.
type EvolveCmd struct {
	RunFlags `embed:""`
	Rounds   int `help:"Evolution rounds (overrides evolution_parameters.rounds)"`
}

// ReplayCmd replays fixture files.
type ReplayCmd struct {
	Fixtures []string `arg:"" name:"fixture" help:"Fixture file(s) to replay (supports glob patterns)"`
	Verbose  bool     `short:"v" help:"Print every check, not only mismatches"`
}

// InspectCmd reads a state database.
type InspectCmd struct {
	DB      string `name:"db" default:"${db}" help:"SQLite state database"`
	Session string `help:"Show one session's agent versions and audit trail"`
	Last    int    `default:"20" help:"Number of most recent sessions to list"`
	JSON    bool   `name:"json" help:"Output as JSON instead of a table"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info and environment defaults).
func kongVars() kong.Vars {
	return kong.Vars{
		"version":   version,
		"db":        envOr("CONSENSUS_DB", ""),
		"audit":     envOr("CONSENSUS_AUDIT_LOG", ""),
		"log_level": envOr("CONSENSUS_LOG_LEVEL", "info"),
	}
}
