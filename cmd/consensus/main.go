// Package main is the entry point for the consensus CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Exit codes.
const (
	exitOK        = 0
	exitRuntime   = 1
	exitConfig    = 2
	exitEscalated = 3
)

// #region main

func main() {
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("consensus"),
		kong.Description("Multi-agent negotiation and safety-gated evolution."),
		kong.UsageOnError(),
		kongVars(),
	)

	logger, err := initLogger(cli.LogLevel, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(exitRuntime)
	}

	a := &app{logger: logger, out: os.Stdout, status: exitOK}
	err = ctx.Run(a)
	logger.Sync() //nolint:errcheck
	os.Exit(exitCodeFor(a, err))
}

// app carries what every command needs. Commands set status for outcomes that
// are not errors (an escalation, a diverging fixture).
type app struct {
	logger *zap.Logger
	out    io.Writer
	status int
}

func exitCodeFor(a *app, err error) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, agent.ErrConfiguration) {
			return exitConfig
		}
		return exitRuntime
	}
	return a.status
}

// #endregion main

// #region helpers

func initLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if format == "json" {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		format = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      format == "console",
		Encoding:         format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers

// #region version

// Run prints the build information.
func (c *VersionCmd) Run(a *app) error {
	fmt.Fprintf(a.out, "consensus version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}

// #endregion version
