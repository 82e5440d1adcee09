// Package telemetry wires the Gravity core's epoch/validator/proposal
// metrics and tracing, mirroring the tracer-plus-metrics pairing used by
// gateway/middleware/observability.go in the teacher chain.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles a tracer and the Prometheus gauges/counters the core
// reconfiguration and governance operations update.
type Telemetry struct {
	tracer trace.Tracer

	registry *prometheus.Registry

	currentEpoch     prometheus.Gauge
	totalVotingPower prometheus.Gauge
	activeCount      prometheus.Gauge
	pendingActive    prometheus.Gauge
	pendingInactive  prometheus.Gauge
	proposalsResolved *prometheus.CounterVec
}

// Config controls the metrics namespace and service name used for tracing.
type Config struct {
	ServiceName   string
	MetricsPrefix string
}

// New constructs a Telemetry instance with a fresh private registry, so
// multiple independent Gravity instances (e.g. in tests) never collide on
// global default-registry metric names.
func New(cfg Config) *Telemetry {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "gravity-core"
	}
	if cfg.MetricsPrefix == "" {
		cfg.MetricsPrefix = "gravity"
	}
	registry := prometheus.NewRegistry()

	t := &Telemetry{
		tracer:   otel.Tracer(cfg.ServiceName),
		registry: registry,
		currentEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.MetricsPrefix,
			Name:      "current_epoch",
			Help:      "The current reconfiguration epoch counter.",
		}),
		totalVotingPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.MetricsPrefix,
			Name:      "total_voting_power",
			Help:      "Sum of bond over the active validator set, as a float64 approximation.",
		}),
		activeCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.MetricsPrefix,
			Name:      "active_validators",
			Help:      "Number of validators in the active set.",
		}),
		pendingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.MetricsPrefix,
			Name:      "pending_active_validators",
			Help:      "Number of validators queued to activate.",
		}),
		pendingInactive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.MetricsPrefix,
			Name:      "pending_inactive_validators",
			Help:      "Number of validators queued to deactivate.",
		}),
		proposalsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.MetricsPrefix,
			Name:      "proposals_resolved_total",
			Help:      "Governance proposals resolved, labeled by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(t.currentEpoch, t.totalVotingPower, t.activeCount, t.pendingActive, t.pendingInactive, t.proposalsResolved)
	return t
}

// Registry exposes the private Prometheus registry for scraping.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// ObserveEpoch records the post-transition validator-set shape.
func (t *Telemetry) ObserveEpoch(epoch uint64, totalVotingPower float64, active, pendingActive, pendingInactive int) {
	t.currentEpoch.Set(float64(epoch))
	t.totalVotingPower.Set(totalVotingPower)
	t.activeCount.Set(float64(active))
	t.pendingActive.Set(float64(pendingActive))
	t.pendingInactive.Set(float64(pendingInactive))
}

// ObserveProposalResolved increments the resolved-proposal counter for the
// given outcome label ("executed" or "failed").
func (t *Telemetry) ObserveProposalResolved(outcome string) {
	t.proposalsResolved.WithLabelValues(outcome).Inc()
}

// StartSpan starts a span named name with the supplied attributes, returning
// the derived context and a finish function the caller must invoke.
func (t *Telemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func() { span.End() }
}
