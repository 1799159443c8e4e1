// Package metrics exposes round, verdict and sealing counters for both engines.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// #region collector
// Collector records engine activity on a private registry, not the default one.
type Collector struct {
	registry *prometheus.Registry

	roundsTotal   *prometheus.CounterVec
	verdictsTotal *prometheus.CounterVec
	harmonyScore  prometheus.Gauge
	sealDecisions *prometheus.CounterVec
	riskScore     prometheus.Histogram

	logger *zap.Logger
}

// NewCollector creates a collector with every consensus metric registered.
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.roundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consensus",
			Name:      "rounds_total",
			Help:      "Total number of completed rounds",
		},
		[]string{"engine"},
	)

	c.verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consensus",
			Name:      "verdicts_total",
			Help:      "Total number of terminal session outcomes",
		},
		[]string{"verdict"},
	)

	c.harmonyScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "consensus",
			Name:      "harmony_score",
			Help:      "Harmony score of the most recent negotiation round",
		},
	)

	c.sealDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consensus",
			Name:      "seal_decisions_total",
			Help:      "Total number of per-agent gate decisions",
		},
		[]string{"decision", "trigger"}, // trigger: risk, motive, risk+motive, none
	)

	c.riskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "consensus",
			Name:      "risk_score",
			Help:      "Distribution of risk assessment scores",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)

	c.registry.MustRegister(c.roundsTotal, c.verdictsTotal, c.harmonyScore, c.sealDecisions, c.riskScore)
	return c
}

// Registry returns the registry holding every consensus metric.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// #endregion collector

// #region record
// RecordRound counts one completed round of engine.
func (c *Collector) RecordRound(engine string) {
	if c == nil {
		return
	}
	c.roundsTotal.WithLabelValues(engine).Inc()
}

// RecordHarmony sets the latest harmony score.
func (c *Collector) RecordHarmony(score float64) {
	if c == nil {
		return
	}
	c.harmonyScore.Set(score)
}

// RecordVerdict counts a terminal verdict.
func (c *Collector) RecordVerdict(verdict string) {
	if c == nil {
		return
	}
	c.verdictsTotal.WithLabelValues(verdict).Inc()
}

// RecordDecision counts a gate decision and observes its risk score.
func (c *Collector) RecordDecision(decision, trigger string, riskScore int) {
	if c == nil {
		return
	}
	if trigger == "" {
		trigger = "none"
	}
	c.sealDecisions.WithLabelValues(decision, trigger).Inc()
	c.riskScore.Observe(float64(riskScore))
}

// #endregion record

// #region export
// WriteTextfile writes every metric in the node_exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	c.logger.Debug("metrics written", zap.String("path", path))
	return nil
}

// #endregion export

