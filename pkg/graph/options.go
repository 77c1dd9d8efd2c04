package graph

import (
	"log/slog"

	"github.com/mathtutor-ai/mathtutor/pkg/graph/checkpoint"
	"github.com/mathtutor-ai/mathtutor/pkg/graph/observability"
)

// runConfig holds per-run execution configuration.
type runConfig struct {
	maxSteps int

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool

	checkpointStore        checkpoint.Store
	checkpointFailureFatal bool
	runID                  string
	sequence               int
}

func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps: 25,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior for a single Run call.
type RunOption func(*runConfig)

// WithMaxSteps bounds the number of node executions in one run.
// Default: 25. When exceeded, Run returns a MaxStepsError wrapping
// ErrMaxSteps; the run is not retried.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithRunLogger sets the logger used for run and node lifecycle events.
// Without it, lifecycle events are not logged (nodes still receive the
// context logger).
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry span creation for the run and each node.
func WithTracing(spans observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if spans != nil {
			c.spans = spans
			c.tracingEnabled = true
		}
	}
}

// WithCheckpointStore persists a checkpoint after every node execution.
// Requires WithRunID.
func WithCheckpointStore(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithRunID sets the run identifier used to key checkpoints.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithCheckpointFailureFatal makes checkpoint save failures abort the run.
// Default: failures are logged and execution continues.
func WithCheckpointFailureFatal() RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = true
	}
}
