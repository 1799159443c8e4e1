package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/consensus-gate/internal/config"
	"github.com/danielpatrickdp/consensus-gate/internal/logging"
	"github.com/danielpatrickdp/consensus-gate/internal/metrics"
	"github.com/danielpatrickdp/consensus-gate/internal/state"
)

// #region run-env

// verdictAborted is stored for runs that ended with an error.
const verdictAborted = "ABORTED"

// runEnv holds the resources of one engine run: the session, the audit
// sinks, the optional state store and the metrics collector.
type runEnv struct {
	sess      *config.Session
	sessionID string
	sink      logging.Sink
	store     *state.Store // nil without --db
	metrics   *metrics.Collector
	flags     RunFlags
	logger    *zap.Logger

	text *logging.TextSink
}

// openRun loads the session file and opens every sink the flags ask for.
// Without --audit the audit trail goes to the command's output.
func openRun(a *app, flags RunFlags, engine string, params func(*config.Session) any) (*runEnv, error) {
	sess, err := config.Load(flags.Config)
	if err != nil {
		return nil, err
	}

	env := &runEnv{
		sess:      sess,
		sessionID: sess.ID,
		metrics:   metrics.NewCollector(a.logger),
		flags:     flags,
		logger:    a.logger.With(zap.String("component", "cli")),
	}

	var sinks logging.MultiSink
	if flags.Audit != "" {
		env.text, err = logging.OpenTextSink(flags.Audit)
		if err != nil {
			return nil, err
		}
	} else {
		env.text = logging.NewTextSink(a.out)
	}
	sinks = append(sinks, env.text)

	if flags.DB != "" {
		env.store, err = state.NewStore(flags.DB)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("open state db: %w", err)
		}
		stored, err := env.store.CreateSession(engine, sess.Dimensions, params(sess))
		if err != nil {
			env.Close()
			return nil, err
		}
		env.sessionID = stored.ID

		prov, err := logging.NewProvenanceSink(env.store.DB())
		if err != nil {
			env.Close()
			return nil, err
		}
		sinks = append(sinks, prov)
	}
	env.sink = sinks

	env.logger.Info("session loaded",
		zap.String("session", env.sessionID),
		zap.String("source", sess.Source),
		zap.String("engine", engine),
		zap.String("audit", env.text.Path()),
		zap.Int("agents", len(sess.Agents)),
		zap.Strings("dimensions", sess.Dimensions),
	)
	return env, nil
}

// finish records the verdict in the store and writes the metrics file.
func (e *runEnv) finish(verdict, reason string) error {
	var errs []error
	if e.store != nil {
		if err := e.store.FinishSession(e.sessionID, verdict, reason); err != nil {
			errs = append(errs, err)
		}
	}
	if e.flags.MetricsFile != "" {
		if err := e.metrics.WriteTextfile(e.flags.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		} else {
			e.logger.Debug("metrics written", zap.String("path", e.flags.MetricsFile))
		}
	}
	return errors.Join(errs...)
}

// abort records a failed run as ABORTED with the error as its reason, so the
// stored session never stays unfinished. The original error is kept.
func (e *runEnv) abort(err error) error {
	e.metrics.RecordVerdict(verdictAborted)
	if e.store == nil {
		return err
	}
	if ferr := e.store.FinishSession(e.sessionID, verdictAborted, err.Error()); ferr != nil {
		return errors.Join(err, fmt.Errorf("record aborted session: %w", ferr))
	}
	return err
}

// Close releases the audit file and the store.
func (e *runEnv) Close() {
	if e.text != nil {
		if err := e.text.Close(); err != nil {
			e.logger.Warn("close audit log", zap.Error(err))
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn("close state db", zap.Error(err))
		}
	}
}

// #endregion run-env
