package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathtutor-ai/mathtutor/pkg/graph/checkpoint"
)

func TestRun_Checkpointing(t *testing.T) {
	compiled := linearGraph(t)
	store := checkpoint.NewMemoryStore()

	result, err := compiled.Run(testContext(t), Counter{},
		WithCheckpointStore(store),
		WithRunID("run-1"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Value)

	// One checkpoint per executed node, in sequence order.
	infos, err := store.List("run-1")
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "a", infos[0].NodeID)
	assert.Equal(t, "c", infos[2].NodeID)
	assert.Less(t, infos[0].Sequence, infos[1].Sequence)
}

func TestRun_CheckpointRequiresRunID(t *testing.T) {
	compiled := linearGraph(t)

	_, err := compiled.Run(testContext(t), Counter{},
		WithCheckpointStore(checkpoint.NewMemoryStore()))
	assert.ErrorIs(t, err, ErrRunIDRequired)
}

func TestResume_ContinuesFromLatestCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	boom := errors.New("b blew up")
	broken := true

	// b fails on the first run; the retry resumes at b and finishes.
	build := func() *CompiledGraph[Counter] {
		compiled, err := NewGraph[Counter]().
			AddNode("a", visit("a")).
			AddNode("b", func(ctx Context, s Counter) (Counter, error) {
				if broken {
					return s, boom
				}
				return visit("b")(ctx, s)
			}).
			AddNode("c", visit("c")).
			AddEdge("a", "b").
			AddEdge("b", "c").
			AddEdge("c", END).
			SetEntry("a").
			Compile()
		require.NoError(t, err)
		return compiled
	}

	compiled := build()
	_, err := compiled.Run(testContext(t), Counter{},
		WithCheckpointStore(store),
		WithRunID("run-2"))
	require.ErrorIs(t, err, boom)

	broken = false
	result, err := compiled.Resume(testContext(t), store, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Value)
	assert.Equal(t, []string{"a", "b", "c"}, result.Path)
}

func TestResume_NoCheckpoints(t *testing.T) {
	compiled := linearGraph(t)

	_, err := compiled.Resume(testContext(t), checkpoint.NewMemoryStore(), "unknown")
	assert.ErrorIs(t, err, ErrNoCheckpoints)
}

func TestResume_NilContext(t *testing.T) {
	compiled := linearGraph(t)

	_, err := compiled.Resume(nil, checkpoint.NewMemoryStore(), "run")
	assert.ErrorIs(t, err, ErrNilContext)
}

// brokenStore fails every Save.
type brokenStore struct {
	checkpoint.Store
}

func (brokenStore) Save(_, _ string, _ []byte) error { return errors.New("disk full") }

func TestRun_CheckpointFailureNonFatal(t *testing.T) {
	compiled := linearGraph(t)

	result, err := compiled.Run(testContext(t), Counter{},
		WithCheckpointStore(brokenStore{}),
		WithRunID("run-3"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Value)
}

func TestRun_CheckpointFailureFatal(t *testing.T) {
	compiled := linearGraph(t)

	_, err := compiled.Run(testContext(t), Counter{},
		WithCheckpointStore(brokenStore{}),
		WithRunID("run-4"),
		WithCheckpointFailureFatal())
	require.Error(t, err)

	var cpErr *CheckpointError
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, "save", cpErr.Op)
}
