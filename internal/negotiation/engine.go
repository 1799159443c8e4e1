// Package negotiation drives agents' priority vectors toward a shared
// compromise and stops when the group reaches harmony or runs out of rounds.
package negotiation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/eval"
	"github.com/danielpatrickdp/consensus-gate/internal/logging"
	"github.com/danielpatrickdp/consensus-gate/internal/metrics"
	"github.com/danielpatrickdp/consensus-gate/internal/update"
)

const tracerName = "github.com/danielpatrickdp/consensus-gate/internal/negotiation"

// #region engine
// Engine runs one negotiation session. It is single-use.
type Engine struct {
	params    Params
	harness   *eval.EvalHarness
	sink      logging.Sink
	logger    *zap.Logger
	metrics   *metrics.Collector
	tracer    trace.Tracer
	store     Checkpointer
	sessionID string
	ran       bool
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

// WithMetrics records rounds, harmony and verdicts on c.
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

// WithCheckpointer persists every committed round.
func WithCheckpointer(c Checkpointer) Option {
	return func(e *Engine) { e.store = c }
}

// WithSessionID tags audit records and checkpoints with id.
func WithSessionID(id string) Option {
	return func(e *Engine) { e.sessionID = id }
}

// NewEngine validates params and builds an engine writing its audit trail to sink.
func NewEngine(params Params, sink logging.Sink, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, agent.NewConfigError("negotiation engine requires an audit sink")
	}
	e := &Engine{
		params:  params,
		harness: eval.NewEvalHarness(eval.EvalConfig{HarmonyThreshold: params.HarmonyThreshold}),
		sink:    sink,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "negotiation"))
	return e, nil
}

// #endregion engine

// #region run
// Run negotiates until the harmony test passes (CONVERGED) or MaxRounds
// rounds have been committed without passing (ESCALATE). ESCALATE is a
// verdict, not an error. Errors are returned only for invalid input and
// audit failures; agents keep whatever rounds were committed before.
func (e *Engine) Run(ctx context.Context, roster *agent.Roster) (Outcome, error) {
	if e.ran {
		return Outcome{}, ErrAlreadyRun
	}
	e.ran = true

	ctx, span := e.tracer.Start(ctx, "negotiation.run", trace.WithAttributes(
		attribute.String("session.id", e.sessionID),
		attribute.Int("negotiation.max_rounds", e.params.MaxRounds),
		attribute.Float64("negotiation.harmony_threshold", e.params.HarmonyThreshold),
	))
	defer span.End()

	out, err := e.run(ctx, roster)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("negotiation failed", zap.String("session", e.sessionID), zap.Error(err))
		return out, err
	}
	span.SetAttributes(
		attribute.String("negotiation.verdict", string(out.Verdict)),
		attribute.Int("negotiation.rounds", out.Rounds),
	)
	return out, nil
}

func (e *Engine) run(ctx context.Context, roster *agent.Roster) (Outcome, error) {
	if roster == nil || roster.Len() < 2 {
		n := 0
		if roster != nil {
			n = roster.Len()
		}
		return Outcome{}, fmt.Errorf("negotiation needs at least 2 agents, got %d: %w: %w", n, agent.ErrInsufficientPeers, agent.ErrConfiguration)
	}
	if err := roster.CheckConsistent(); err != nil {
		return Outcome{}, err
	}

	dims := roster.Dimensions()
	out := Outcome{SessionID: e.sessionID, Verdict: VerdictContinue}

	if err := e.sink.Append(logging.Record{
		SessionID: e.sessionID,
		Engine:    logging.EngineNegotiation,
		Event:     logging.EventSession,
		Decision:  "START",
		Fields: []logging.Field{
			logging.F("agents", roster.Len()),
			logging.F("dimensions", []string(dims)),
			logging.F("max_rounds", e.params.MaxRounds),
			logging.F("harmony_threshold", e.params.HarmonyThreshold),
			logging.F("peer_exclusion", string(e.params.PeerExclusion)),
		},
	}); err != nil {
		return out, err
	}

	for round := 1; round <= e.params.MaxRounds; round++ {
		res, err := e.round(ctx, roster, round)
		if err != nil {
			out.Agents = roster.Snapshots()
			return out, err
		}
		out.History = append(out.History, res)
		out.Rounds = round
		out.HarmonyScore = res.Eval.HarmonyScore
		out.Verdict = res.Verdict
		if res.Verdict.Terminal() {
			out.Reason = res.Eval.Reason
			break
		}
	}

	if out.Verdict != VerdictConverged {
		out.Verdict = VerdictEscalate
		out.Reason = "max rounds exhausted"
		out.Recommendation = EscalationRecommendation
	}
	out.Agents = roster.Snapshots()

	reason := out.Reason
	if out.Recommendation != "" {
		reason += "; recommendation: " + out.Recommendation
	}
	if err := e.sink.Append(logging.Record{
		SessionID: e.sessionID,
		Engine:    logging.EngineNegotiation,
		Round:     out.Rounds,
		Event:     logging.EventVerdict,
		Decision:  string(out.Verdict),
		Reason:    reason,
		Fields: []logging.Field{
			logging.F("rounds", out.Rounds),
			logging.F("harmony_score", out.HarmonyScore),
		},
	}); err != nil {
		return out, err
	}

	e.metrics.RecordVerdict(string(out.Verdict))
	e.logger.Info("negotiation finished",
		zap.String("session", e.sessionID),
		zap.String("verdict", string(out.Verdict)),
		zap.Int("rounds", out.Rounds),
		zap.Float64("harmony", out.HarmonyScore),
	)
	return out, nil
}

// #endregion run

// #region round
// round computes every offer from one snapshot, commits them all, then scores
// the committed vectors.
func (e *Engine) round(ctx context.Context, roster *agent.Roster, round int) (RoundResult, error) {
	_, span := e.tracer.Start(ctx, "negotiation.round", trace.WithAttributes(attribute.Int("round", round)))
	defer span.End()

	dims := roster.Dimensions()
	agents := roster.Agents()
	snapshot := roster.Vectors()

	offers := make([]update.Offer, len(agents))
	for i, a := range agents {
		o, err := update.CompromiseOffer(snapshot, i, a.Relativity(), dims, e.params.PeerExclusion)
		if err != nil {
			err = fmt.Errorf("round %d agent %s: %w", round, a.ID(), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return RoundResult{}, err
		}
		offers[i] = o
	}

	res := RoundResult{Round: round, Offers: make([]AgentOffer, len(agents))}
	for i, a := range agents {
		if err := a.ApplyOffer(offers[i].Vector); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return RoundResult{}, err
		}
		res.Offers[i] = AgentOffer{
			AgentID:   a.ID(),
			Before:    snapshot[i],
			After:     a.Priorities(),
			PeerCount: offers[i].PeerCount,
			DeltaNorm: offers[i].DeltaNorm,
		}
	}

	res.Eval = e.harness.Run(roster.Vectors(), dims, roster.MeanRelativity())
	res.Verdict = VerdictContinue
	if res.Eval.Passed {
		res.Verdict = VerdictConverged
	}

	span.SetAttributes(
		attribute.Float64("harmony_score", res.Eval.HarmonyScore),
		attribute.Float64("max_ratio", res.Eval.MaxRatio),
		attribute.Bool("pass", res.Eval.Passed),
	)

	if err := e.audit(res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RoundResult{}, err
	}
	if e.store != nil {
		if err := e.store.CommitRound(e.sessionID, round, roster.Snapshots()); err != nil {
			err = fmt.Errorf("checkpoint round %d: %w", round, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return RoundResult{}, err
		}
	}

	e.metrics.RecordRound(logging.EngineNegotiation)
	e.metrics.RecordHarmony(res.Eval.HarmonyScore)
	e.logger.Debug("round committed",
		zap.Int("round", round),
		zap.Float64("harmony", res.Eval.HarmonyScore),
		zap.String("dominant", res.Eval.MaxDimension),
		zap.Bool("pass", res.Eval.Passed),
	)
	return res, nil
}

// audit writes one decision record per offer followed by the round summary.
func (e *Engine) audit(res RoundResult) error {
	for _, o := range res.Offers {
		if err := e.sink.Append(logging.Record{
			SessionID: e.sessionID,
			Engine:    logging.EngineNegotiation,
			Round:     res.Round,
			AgentID:   o.AgentID,
			Event:     logging.EventDecision,
			Decision:  "OFFER",
			Fields: []logging.Field{
				logging.F("peers", o.PeerCount),
				logging.F("delta", o.DeltaNorm),
			},
		}); err != nil {
			return err
		}
	}

	fields := make([]logging.Field, 0, len(res.Eval.Metrics))
	for _, m := range res.Eval.Metrics {
		fields = append(fields, logging.F(m.Name, m.Value))
	}
	fields = append(fields, logging.F("pass", res.Eval.Passed))

	return e.sink.Append(logging.Record{
		SessionID: e.sessionID,
		Engine:    logging.EngineNegotiation,
		Round:     res.Round,
		Event:     logging.EventRound,
		Decision:  string(res.Verdict),
		Reason:    res.Eval.Reason,
		Fields:    fields,
	})
}

// #endregion round
