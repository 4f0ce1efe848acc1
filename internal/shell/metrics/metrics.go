// Package metrics records deployment run metrics and pushes them to a
// Prometheus Pushgateway at the end of a run.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "beanstalker"

	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeRemoved   = "removed"
	OutcomeProtected = "protected"
	OutcomeFailed    = "failed"
)

var durationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Recorder collects the metrics of one run in a private registry.
type Recorder struct {
	registry     *prometheus.Registry
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	versions     *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "steps_total",
			Help:      "Count of executed deployment steps",
		}, []string{"step", "outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "step_duration_seconds",
			Help:      "Duration of deployment steps",
			Buckets:   durationBuckets,
		}, []string{"step"}),
		versions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "versions_total",
			Help:      "Count of cleanup candidates by outcome",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(r.steps, r.stepDuration, r.versions)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStep records one finished step. A nil recorder is a no-op.
func (r *Recorder) ObserveStep(step string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	r.steps.With(prometheus.Labels{"step": step, "outcome": outcome}).Inc()
	r.stepDuration.With(prometheus.Labels{"step": step}).Observe(duration.Seconds())
}

// AddVersions records n cleanup candidates with the given outcome.
func (r *Recorder) AddVersions(outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.versions.With(prometheus.Labels{"outcome": outcome}).Add(float64(n))
}

// StepCount returns the counter for a step and outcome.
func (r *Recorder) StepCount(step, outcome string) prometheus.Counter {
	return r.steps.With(prometheus.Labels{"step": step, "outcome": outcome})
}

// VersionCount returns the counter for a cleanup outcome.
func (r *Recorder) VersionCount(outcome string) prometheus.Counter {
	return r.versions.With(prometheus.Labels{"outcome": outcome})
}

// =============================================================================
// Pushgateway
// =============================================================================

// Pusher pushes a recorder's metrics to a Pushgateway.
type Pusher struct {
	url    string
	job    string
	logger *slog.Logger
}

// NewPusher returns nil when url is empty; a nil Pusher does nothing.
func NewPusher(url, job string, logger *slog.Logger) *Pusher {
	if url == "" {
		return nil
	}
	if job == "" {
		job = namespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pusher{url: url, job: job, logger: logger.With("component", "metrics")}
}

// Push sends the metrics grouped by application. Failures are logged and
// returned; callers treat them as non-fatal.
func (p *Pusher) Push(ctx context.Context, r *Recorder, application string) error {
	if p == nil || r == nil {
		return nil
	}
	pusher := push.New(p.url, p.job).Gatherer(r.registry)
	if application != "" {
		pusher = pusher.Grouping("application", application)
	}
	if err := pusher.PushContext(ctx); err != nil {
		p.logger.Warn("failed to push metrics", "url", p.url, "error", err)
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	p.logger.Debug("pushed metrics", "url", p.url, "job", p.job)
	return nil
}
