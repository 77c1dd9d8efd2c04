package graph

// END is the terminal node identifier.
// Use it as an edge target to indicate the workflow should halt.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// A node receives the execution context and the current state and returns
// the updated state together with any error.
//
// State is passed by value: nodes must return a new state value rather
// than relying on pointer mutation.
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc picks the next node for a conditional edge based on state.
//
// The router must return a node ID that exists in the graph, or graph.END.
// An empty string or an unknown node ID aborts the run with a RouterError;
// the executor never falls back to a default target.
type RouterFunc[S any] func(ctx Context, state S) string
