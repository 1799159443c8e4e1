package sealing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/logging"
)

// #region driver
// Driver runs an Engine for a fixed number of rounds, computing the
// environment average at the start of each round.
type Driver struct {
	Engine *Engine
	Rounds int
}

// Run executes up to d.Rounds rounds. It stops early once no agent is active.
func (d Driver) Run(ctx context.Context, roster *agent.Roster) (Summary, error) {
	if d.Engine == nil {
		return Summary{}, agent.NewConfigError("sealing driver requires an engine")
	}
	if d.Rounds < 1 {
		return Summary{}, agent.NewConfigError("evolution_parameters.rounds must be >= 1, got %d", d.Rounds)
	}
	if roster == nil || roster.Len() == 0 {
		return Summary{}, agent.NewConfigError("sealing run needs at least one agent")
	}
	e := d.Engine

	ctx, span := e.tracer.Start(ctx, "sealing.run", trace.WithAttributes(
		attribute.String("session.id", e.sessionID),
		attribute.Int("sealing.rounds", d.Rounds),
	))
	defer span.End()

	sum, err := d.run(ctx, roster)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return sum, err
	}
	span.SetAttributes(
		attribute.Int("sealing.rounds_run", sum.Rounds),
		attribute.Bool("sealing.all_sealed", sum.AllSealed),
	)
	return sum, nil
}

func (d Driver) run(ctx context.Context, roster *agent.Roster) (Summary, error) {
	e := d.Engine
	sum := Summary{SessionID: e.sessionID}

	if err := e.sink.Append(logging.Record{
		SessionID: e.sessionID,
		Engine:    logging.EngineSealing,
		Event:     logging.EventSession,
		Decision:  "START",
		Fields: []logging.Field{
			logging.F("agents", roster.Len()),
			logging.F("dimensions", []string(roster.Dimensions())),
			logging.F("rounds", d.Rounds),
			logging.F("evolution_rate", e.config.EvolutionRate),
			logging.F("min_motive", e.config.MinMotive),
		},
	}); err != nil {
		return sum, err
	}

	for round := 1; round <= d.Rounds; round++ {
		if roster.CountStatus(agent.StatusActive) == 0 {
			sum.AllSealed = true
			break
		}
		env := Environment{Round: round, Average: EnvironmentAverage(roster)}
		rep, err := e.RunRound(ctx, roster, env)
		if err != nil {
			sum.Agents = roster.Snapshots()
			return sum, err
		}
		sum.Reports = append(sum.Reports, rep)
		sum.Rounds = round
		sum.Committed += rep.Committed
		sum.Sealed += rep.Sealed
	}
	if roster.CountStatus(agent.StatusActive) == 0 {
		sum.AllSealed = true
	}
	sum.Agents = roster.Snapshots()

	decision, reason := VerdictComplete, "round limit reached"
	if sum.AllSealed {
		decision, reason = VerdictAllSealed, "no active agent left to evolve"
	}
	sum.Verdict, sum.Reason = decision, reason
	if err := e.sink.Append(logging.Record{
		SessionID: e.sessionID,
		Engine:    logging.EngineSealing,
		Round:     sum.Rounds,
		Event:     logging.EventVerdict,
		Decision:  decision,
		Reason:    reason,
		Fields: []logging.Field{
			logging.F("rounds", sum.Rounds),
			logging.F("committed", sum.Committed),
			logging.F("sealed", roster.CountStatus(agent.StatusSealed)),
			logging.F("active", roster.CountStatus(agent.StatusActive)),
		},
	}); err != nil {
		return sum, err
	}

	e.metrics.RecordVerdict(decision)
	e.logger.Info("evolution finished",
		zap.String("session", e.sessionID),
		zap.Int("rounds", sum.Rounds),
		zap.Int("committed", sum.Committed),
		zap.Int("sealed", sum.Sealed),
		zap.Bool("all_sealed", sum.AllSealed),
	)
	return sum, nil
}

// #endregion driver
