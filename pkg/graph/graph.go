package graph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for workflow graphs.
// Create one with NewGraph, chain AddNode, AddEdge, AddConditionalEdge and
// SetEntry calls, then Compile it into an immutable CompiledGraph.
//
// Graph is not safe for concurrent building. Construct it from a single
// goroutine; the CompiledGraph returned by Compile may be shared freely.
//
// Example:
//
//	g := graph.NewGraph[State]().
//	    AddNode("supervisor", supervise).
//	    AddNode("worker", work).
//	    AddConditionalEdge("supervisor", pickNext).
//	    AddEdge("worker", "supervisor").
//	    SetEntry("supervisor")
//
//	compiled, err := g.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string
}

// NewGraph creates an empty graph builder for state type S.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
	}
}

// AddNode adds a named node. Returns the graph for chaining.
//
// Panics if id is empty, reserved (END), contains whitespace, duplicates an
// existing node, or fn is nil. Builder misuse is a programming error, not a
// runtime condition.
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("graph: node ID cannot be empty")
	}
	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("graph: node ID cannot be reserved word 'END'")
	}
	if strings.ContainsAny(id, " \t\n\r") {
		panic("graph: node ID cannot contain whitespace")
	}
	if fn == nil {
		panic("graph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("graph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge. The target may be a node ID or END.
// Edge endpoints are validated at Compile time so edges can be added in any
// order. Returns the graph for chaining.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge attaches a router to a node so the next node is chosen
// at runtime from state. A node with a conditional edge must not also have
// simple edges; if both exist the conditional edge wins.
// Returns the graph for chaining.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("graph: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	return g
}

// SetEntry designates the entry point node. Must be called before Compile.
// Returns the graph for chaining.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
