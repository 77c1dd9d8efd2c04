package graph

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

// Counter is the state type used across the engine tests. It is JSON
// serializable so the checkpoint tests can reuse it.
type Counter struct {
	Value int      `json:"value"`
	Path  []string `json:"path"`
}

// increment bumps the counter by one.
func increment(_ Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

// visit records the node name in the path and increments.
func visit(name string) NodeFunc[Counter] {
	return func(_ Context, s Counter) (Counter, error) {
		s.Value++
		s.Path = append(s.Path, name)
		return s, nil
	}
}

// failWith returns a node that always fails with err.
func failWith(err error) NodeFunc[Counter] {
	return func(_ Context, s Counter) (Counter, error) {
		return s, err
	}
}

// panicWith returns a node that panics with v.
func panicWith(v any) NodeFunc[Counter] {
	return func(_ Context, _ Counter) (Counter, error) {
		panic(v)
	}
}

// quietLogger discards log output so test runs stay readable.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testContext builds an execution context with a silent logger.
func testContext(t *testing.T) Context {
	t.Helper()
	return NewContext(context.Background(), WithLogger(quietLogger()))
}
