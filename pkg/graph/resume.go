package graph

import (
	"encoding/json"
	"fmt"

	"github.com/mathtutor-ai/mathtutor/pkg/graph/checkpoint"
)

// Resume continues execution of a run from its latest checkpoint.
// The checkpointed state is deserialized and execution restarts at the node
// the checkpoint recorded as next.
//
//	// previous run crashed after node B; continue from node C
//	result, err := compiled.Resume(ctx, store, "run-123")
func (cg *CompiledGraph[S]) Resume(ctx Context, store checkpoint.Store, runID string, opts ...RunOption) (S, error) {
	var zero S

	if ctx == nil {
		return zero, ErrNilContext
	}

	infos, err := store.List(runID)
	if err != nil {
		return zero, fmt.Errorf("list checkpoints: %w", err)
	}
	if len(infos) == 0 {
		return zero, fmt.Errorf("%w: %s", ErrNoCheckpoints, runID)
	}

	latest := infos[len(infos)-1]
	data, err := store.Load(runID, latest.NodeID)
	if err != nil {
		return zero, fmt.Errorf("load checkpoint: %w", err)
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	if cp.Version != checkpoint.Version {
		return zero, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.checkpointStore = store
	cfg.runID = runID
	cfg.sequence = cp.Sequence

	result, _, err := cg.runFrom(ctx, ctx, state, cp.NextNode, &cfg)
	return result, err
}
