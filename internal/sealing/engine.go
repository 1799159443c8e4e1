// Package sealing implements risk-gated evolution: active agents drift toward
// the environment average one dimension at a time, and an agent whose step is
// too risky or whose motive has run out is sealed for good.
package sealing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/gate"
	"github.com/danielpatrickdp/consensus-gate/internal/logging"
	"github.com/danielpatrickdp/consensus-gate/internal/metrics"
	"github.com/danielpatrickdp/consensus-gate/internal/risk"
	"github.com/danielpatrickdp/consensus-gate/internal/update"
)

const tracerName = "github.com/danielpatrickdp/consensus-gate/internal/sealing"

// #region engine
// Engine applies one evolution round at a time. The round count belongs to
// the caller (see Driver).
type Engine struct {
	config    update.EvolutionConfig
	assessor  *risk.Assessor
	gate      *gate.Gate
	sink      logging.Sink
	logger    *zap.Logger
	metrics   *metrics.Collector
	tracer    trace.Tracer
	store     Checkpointer
	sessionID string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records rounds and gate decisions on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithTracer overrides the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithCheckpointer persists every applied round.
func WithCheckpointer(c Checkpointer) Option {
	return func(e *Engine) { e.store = c }
}

// WithSessionID tags audit records and checkpoints with id.
func WithSessionID(id string) Option {
	return func(e *Engine) { e.sessionID = id }
}

// NewEngine builds a sealing engine. Proposals are scored by assessor and an
// agent is sealed when the score reaches risk.ScoreSeal or its motive is
// below config.MinMotive.
func NewEngine(config update.EvolutionConfig, assessor *risk.Assessor, sink logging.Sink, opts ...Option) (*Engine, error) {
	cerr := &agent.ConfigError{}
	cerr.Merge(config.Validate())
	if assessor == nil {
		cerr.Add("sealing engine requires a risk assessor")
	}
	if sink == nil {
		cerr.Add("sealing engine requires an audit sink")
	}
	if err := cerr.OrNil(); err != nil {
		return nil, err
	}

	e := &Engine{
		config:   config,
		assessor: assessor,
		gate:     gate.NewGate(gate.GateConfig{SealRiskScore: risk.ScoreSeal, MinMotive: config.MinMotive}),
		sink:     sink,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "sealing"))
	return e, nil
}

// #endregion engine

// #region run-round
// RunRound decides every active agent against env and then applies all
// decisions together. Sealed agents are skipped and never change.
func (e *Engine) RunRound(ctx context.Context, roster *agent.Roster, env Environment) (RoundReport, error) {
	_, span := e.tracer.Start(ctx, "sealing.round", trace.WithAttributes(
		attribute.String("session.id", e.sessionID),
		attribute.Int("round", env.Round),
	))
	defer span.End()

	rep, err := e.runRound(roster, env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("round failed", zap.Int("round", env.Round), zap.Error(err))
		return rep, err
	}
	span.SetAttributes(
		attribute.Int("committed", rep.Committed),
		attribute.Int("sealed", rep.Sealed),
		attribute.Int("skipped", rep.Skipped),
	)
	return rep, nil
}

func (e *Engine) runRound(roster *agent.Roster, env Environment) (RoundReport, error) {
	if roster == nil || roster.Len() == 0 {
		return RoundReport{}, agent.NewConfigError("sealing round needs at least one agent")
	}
	if err := roster.CheckConsistent(); err != nil {
		return RoundReport{}, err
	}
	dims := roster.Dimensions()
	if err := env.Average.Validate(dims); err != nil {
		return RoundReport{}, agent.NewConfigError("environment average: %v", err)
	}

	agents := roster.Agents()
	rep := RoundReport{Round: env.Round, Decisions: make([]AgentDecision, len(agents))}

	// decide from the round-start state only
	for i, a := range agents {
		d := AgentDecision{AgentID: a.ID(), MotiveBefore: a.Motive()}
		if a.Sealed() {
			d.Skipped = true
			rep.Decisions[i] = d
			continue
		}
		d.Proposal = update.ProposeEvolution(a.Priorities(), env.Average, dims, e.config.EvolutionRate)
		assessment := e.assessor.Assess(d.Proposal.Vector, a.Tool())
		d.Gate = e.gate.Evaluate(d.Proposal.Vector, a.Motive(), assessment)
		rep.Decisions[i] = d
	}

	for i, a := range agents {
		d := rep.Decisions[i]
		switch {
		case d.Skipped:
			rep.Skipped++
		case d.Gate.Sealed():
			a.Seal()
			rep.Sealed++
		default:
			if err := a.Evolve(d.Gate.Vector, d.Proposal.Dimension, e.config.MotiveStep); err != nil {
				return rep, err
			}
			rep.Committed++
		}
	}

	if err := e.audit(rep, roster); err != nil {
		return rep, err
	}
	if e.store != nil {
		if err := e.store.CommitRound(e.sessionID, env.Round, roster.Snapshots()); err != nil {
			return rep, fmt.Errorf("checkpoint round %d: %w", env.Round, err)
		}
	}

	e.metrics.RecordRound(logging.EngineSealing)
	for _, d := range rep.Decisions {
		if !d.Skipped {
			e.metrics.RecordDecision(d.Label(), d.Gate.Trigger(), d.Gate.Assessment.Score)
		}
	}
	e.logger.Debug("round applied",
		zap.Int("round", env.Round),
		zap.Int("committed", rep.Committed),
		zap.Int("sealed", rep.Sealed),
		zap.Int("skipped", rep.Skipped),
	)
	return rep, nil
}

// #endregion run-round

// #region audit
func (e *Engine) audit(rep RoundReport, roster *agent.Roster) error {
	for _, d := range rep.Decisions {
		rec := logging.Record{
			SessionID: e.sessionID,
			Engine:    logging.EngineSealing,
			Round:     rep.Round,
			AgentID:   d.AgentID,
			Event:     logging.EventDecision,
			Decision:  d.Label(),
		}
		if d.Skipped {
			rec.Reason = "agent sealed"
		} else {
			rec.Reason = d.Gate.Reason
			rec.Fields = []logging.Field{
				logging.F("dimension", d.Proposal.Dimension),
				logging.F("gap", d.Proposal.Gap),
				logging.F("step", d.Proposal.Step),
				logging.F("risk", d.Gate.Assessment.Score),
				logging.F("risk_reasons", strings.Join(d.Gate.Assessment.Reasons, "; ")),
				logging.F("motive", d.MotiveBefore),
			}
			if t := d.Gate.Trigger(); t != "" {
				rec.Fields = append(rec.Fields, logging.F("trigger", t))
			}
		}
		if err := e.sink.Append(rec); err != nil {
			return err
		}
	}

	return e.sink.Append(logging.Record{
		SessionID: e.sessionID,
		Engine:    logging.EngineSealing,
		Round:     rep.Round,
		Event:     logging.EventRound,
		Decision:  "APPLIED",
		Fields: []logging.Field{
			logging.F("committed", rep.Committed),
			logging.F("sealed", rep.Sealed),
			logging.F("skipped", rep.Skipped),
			logging.F("active", roster.CountStatus(agent.StatusActive)),
		},
	})
}

// #endregion audit
