package tutor

import (
	"context"
	"errors"

	"github.com/mathtutor-ai/mathtutor/pkg/graph"
)

// Agent produces one message for the current request. Implementations do
// not mutate the state they receive.
type Agent interface {
	// Name returns the agent's node name in the workflow graph.
	Name() string
	// Run inspects the conversation and returns the agent's contribution.
	Run(ctx context.Context, state State) (Message, error)
}

// nodeFor adapts an Agent to a graph node. Hard faults (tool errors, empty
// model output) are converted into soft FAILED messages so the TaskManager
// can fall back instead of the whole run aborting. Context cancellation
// stays a hard error.
func nodeFor(a Agent) graph.NodeFunc[State] {
	return func(ctx graph.Context, state State) (State, error) {
		msg, err := a.Run(ctx, state)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return state, err
			}
			ctx.Logger().Warn("agent fault, recording soft failure",
				"agent", a.Name(),
				"error", err)
			msg = FailedMessage(a.Name(), err.Error())
		}
		state.Messages = append(state.Messages, msg)
		state.Next = ""
		return state, nil
	}
}
