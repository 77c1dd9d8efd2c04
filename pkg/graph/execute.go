package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/mathtutor-ai/mathtutor/pkg/graph/checkpoint"
	"github.com/mathtutor-ai/mathtutor/pkg/graph/observability"
)

// Run executes the graph with the given initial state and returns the final
// state.
//
// On success the returned state is the state after the last node before END.
// On error it is the state at the point of failure; callers deciding whether
// to surface it should treat it as partial, not as a legitimate result.
//
// Execution loop:
//  1. start at the entry point
//  2. check for cancellation
//  3. execute the current node (panics are recovered into a PanicError)
//  4. determine the next node via a simple or conditional edge
//  5. repeat until END or the step bound is hit
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.checkpointStore != nil && cfg.runID == "" {
		return state, ErrRunIDRequired
	}

	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	}

	start := time.Now()
	observability.LogRunStart(cfg.logger, runID)

	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, "graph", runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var steps int
	result, steps, runErr = cg.runFrom(execCtx, ctx, state, cg.entryPoint, &cfg)

	duration := time.Since(start)
	cfg.metrics.RecordGraphRun(ctx, runErr == nil, duration)

	if runErr != nil {
		lastNode := ""
		switch e := runErr.(type) {
		case *NodeError:
			lastNode = e.NodeID
		case *MaxStepsError:
			lastNode = e.LastNodeID
		case *CancellationError:
			lastNode = e.NodeID
		}
		observability.LogRunError(cfg.logger, runID, runErr, float64(duration.Milliseconds()), lastNode)
	} else {
		observability.LogRunComplete(cfg.logger, runID, float64(duration.Milliseconds()), steps)
	}

	return result, runErr
}

// runFrom drives the execution loop starting at startNode.
// tracingCtx carries span context; gctx is the graph Context handed to nodes.
func (cg *CompiledGraph[S]) runFrom(tracingCtx context.Context, gctx Context, state S, startNode string, cfg *runConfig) (S, int, error) {
	current := startNode
	prevNode := ""
	steps := 0

	for current != END {
		if steps >= cfg.maxSteps {
			return state, steps, &MaxStepsError{
				Max:        cfg.maxSteps,
				LastNodeID: current,
				State:      state,
			}
		}

		select {
		case <-gctx.Done():
			return state, steps, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  gctx.Err(),
			}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()
		var nodeErr error
		state, nodeErr = cg.executeNode(gctx, current, state)
		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			// A node that returns the run context's error was interrupted by
			// cancellation, not by its own fault.
			if ctxErr := gctx.Err(); ctxErr != nil && errors.Is(nodeErr, ctxErr) {
				nodeErr = &CancellationError{
					NodeID:       current,
					State:        state,
					Cause:        ctxErr,
					WasExecuting: true,
				}
			}
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return state, steps, nodeErr
		}
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))
		steps++

		next, err := cg.nextNode(gctx, state, current)
		if err != nil {
			return state, steps, err
		}

		if cfg.checkpointStore != nil {
			if err := cg.saveCheckpoint(gctx, cfg, current, prevNode, state, next); err != nil {
				return state, steps, err
			}
		}

		prevNode = current
		current = next
	}

	return state, steps, nil
}

// executeNode runs a single node with panic recovery.
func (cg *CompiledGraph[S]) executeNode(ctx Context, nodeID string, state S) (result S, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// Unreachable after successful compilation.
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(nodeID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return result, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode determines the node to execute after current.
// A conditional edge takes precedence over simple edges. Router results are
// validated strictly: empty or out-of-graph values abort the run.
func (cg *CompiledGraph[S]) nextNode(ctx Context, state S, current string) (string, error) {
	if router, exists := cg.getRouter(current); exists {
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withNodeID(current)
		}

		next := router(routerCtx, state)

		if next == "" {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrInvalidRouterResult,
			}
		}
		if next != END {
			if _, exists := cg.getNode(next); !exists {
				return "", &RouterError{
					FromNode: current,
					Returned: next,
					Err:      ErrRouterTargetNotFound,
				}
			}
		}

		return next, nil
	}

	edges := cg.edges[current]
	if len(edges) == 0 {
		// Unreachable after successful compilation.
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}

	// Nodes execute strictly sequentially; the first simple edge wins.
	return edges[0], nil
}

// saveCheckpoint persists the state after a node execution.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx Context, cfg *runConfig, nodeID, prevNodeID string, state S, nextNode string) error {
	stateBytes, err := json.Marshal(state)
	if err != nil {
		return cg.checkpointFailed(cfg, nodeID, "serialize", err)
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.runID, nodeID, cfg.sequence, stateBytes, nextNode).
		WithPrevNode(prevNodeID)

	data, err := cp.Marshal()
	if err != nil {
		return cg.checkpointFailed(cfg, nodeID, "marshal", err)
	}

	if err := cfg.checkpointStore.Save(cfg.runID, nodeID, data); err != nil {
		return cg.checkpointFailed(cfg, nodeID, "save", err)
	}

	observability.LogCheckpoint(cfg.logger, nodeID, len(data))
	cfg.metrics.RecordCheckpoint(ctx, nodeID, int64(len(data)))
	return nil
}

func (cg *CompiledGraph[S]) checkpointFailed(cfg *runConfig, nodeID, op string, err error) error {
	if cfg.checkpointFailureFatal {
		return &CheckpointError{NodeID: nodeID, Op: op, Err: err}
	}
	observability.LogCheckpointError(cfg.logger, nodeID, op, err)
	return nil
}
