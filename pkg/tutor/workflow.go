package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mathtutor-ai/mathtutor/pkg/graph"
	"github.com/mathtutor-ai/mathtutor/pkg/graph/checkpoint"
	"github.com/mathtutor-ai/mathtutor/pkg/graph/observability"
	"github.com/mathtutor-ai/mathtutor/pkg/tutor/session"
)

// DefaultMaxSteps bounds one request's node executions. A well-behaved run
// needs at most a handful (router hops plus agents plus the synthesizer);
// hitting the bound means routing went pathological and the run aborts.
const DefaultMaxSteps = 10

// Agents collects the worker agents of the workflow. Response is the
// terminal synthesizer; the others loop back to the TaskManager.
type Agents struct {
	Theory     Agent
	Search     Agent
	Generation Agent
	Solving    Agent
	Response   Agent
}

// Workflow is the compiled tutoring graph plus its runtime surroundings:
// session persistence, checkpointing, and telemetry.
type Workflow struct {
	compiled    *graph.CompiledGraph[State]
	sessions    *session.Store
	checkpoints checkpoint.Store
	maxSteps    int
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
	tracing     bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithSessionStore persists conversation state per thread across requests.
func WithSessionStore(s *session.Store) Option {
	return func(w *Workflow) { w.sessions = s }
}

// WithCheckpointStore saves a checkpoint after every node execution.
func WithCheckpointStore(s checkpoint.Store) Option {
	return func(w *Workflow) { w.checkpoints = s }
}

// WithMaxSteps overrides the per-request step bound.
func WithMaxSteps(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.maxSteps = n
		}
	}
}

// WithLogger sets the workflow logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// WithTelemetry enables metrics and tracing for every run.
func WithTelemetry(m observability.MetricsRecorder, s observability.SpanManager) Option {
	return func(w *Workflow) {
		w.metrics = m
		w.spans = s
		w.tracing = true
	}
}

// New wires the tutoring graph: the TaskManager dispatches conditionally to
// the workers and the synthesizer, workers report back to the TaskManager,
// and the synthesizer ends the run.
func New(router Router, agents Agents, opts ...Option) (*Workflow, error) {
	w := &Workflow{
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	g := graph.NewGraph[State]().
		AddNode(NodeTaskManager, routerNode(router)).
		AddNode(NodeExplainTheory, nodeFor(agents.Theory)).
		AddNode(NodeExternalSearch, nodeFor(agents.Search)).
		AddNode(NodeProblemGeneration, nodeFor(agents.Generation)).
		AddNode(NodeProblemSolving, nodeFor(agents.Solving)).
		AddNode(NodeGeneratingResponse, nodeFor(agents.Response)).
		AddConditionalEdge(NodeTaskManager, func(_ graph.Context, s State) string {
			return s.Next
		}).
		AddEdge(NodeExplainTheory, NodeTaskManager).
		AddEdge(NodeExternalSearch, NodeTaskManager).
		AddEdge(NodeProblemGeneration, NodeTaskManager).
		AddEdge(NodeProblemSolving, NodeTaskManager).
		AddEdge(NodeGeneratingResponse, graph.END).
		SetEntry(NodeTaskManager)

	compiled, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("tutor: compile workflow: %w", err)
	}
	w.compiled = compiled
	return w, nil
}

// Ask runs one tutoring request on the given thread and returns the final
// answer. State accumulates across calls with the same threadID when a
// session store is configured.
func (w *Workflow) Ask(ctx context.Context, threadID, query string) (string, error) {
	return w.run(ctx, threadID, UserMessage(query))
}

// AskImage runs one tutoring request that includes a photographed problem.
func (w *Workflow) AskImage(ctx context.Context, threadID, query, mime string, image []byte) (string, error) {
	return w.run(ctx, threadID, UserImageMessage(query, mime, image))
}

func (w *Workflow) run(ctx context.Context, threadID string, msg Message) (string, error) {
	if threadID == "" {
		return "", fmt.Errorf("tutor: thread id required")
	}

	state := State{}
	if w.sessions != nil {
		unlock := w.sessions.LockThread(threadID)
		defer unlock()

		data, ok, err := w.sessions.Load(threadID)
		if err != nil {
			return "", err
		}
		if ok {
			if err := json.Unmarshal(data, &state); err != nil {
				return "", fmt.Errorf("tutor: decode session %s: %w", threadID, err)
			}
		}
	}

	state.Messages = append(state.Messages, msg)
	state.Next = ""

	runID := threadID + "-" + uuid.NewString()
	gctx := graph.NewContext(ctx,
		graph.WithLogger(w.logger.With("thread_id", threadID)),
		graph.WithContextRunID(runID),
	)

	runOpts := []graph.RunOption{
		graph.WithMaxSteps(w.maxSteps),
		graph.WithRunLogger(w.logger.With("thread_id", threadID)),
		graph.WithRunID(runID),
	}
	if w.checkpoints != nil {
		runOpts = append(runOpts, graph.WithCheckpointStore(w.checkpoints))
	}
	if w.tracing {
		runOpts = append(runOpts, graph.WithMetrics(w.metrics), graph.WithTracing(w.spans))
	}

	final, err := w.compiled.Run(gctx, state, runOpts...)
	if err != nil {
		// Partial state is discarded: the session keeps its last good state.
		return "", err
	}

	answer, ok := final.FinalAnswer()
	if !ok {
		return "", fmt.Errorf("tutor: run finished without a final answer")
	}

	if w.sessions != nil {
		data, err := json.Marshal(final)
		if err != nil {
			return "", fmt.Errorf("tutor: encode session %s: %w", threadID, err)
		}
		if err := w.sessions.Save(threadID, data); err != nil {
			return "", err
		}
	}
	return answer, nil
}
