package tutor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mathtutor-ai/mathtutor/pkg/llm"
)

// fakeLLM serves scripted answers. Enum calls pop from enums, Generate
// calls pop from outputs; running past a script is an error so tests catch
// unexpected model calls.
type fakeLLM struct {
	mu      sync.Mutex
	enums   []string
	outputs []string

	enumCalls int
	genCalls  int
	lastReq   llm.Request
}

func (f *fakeLLM) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls++
	f.lastReq = req
	if len(f.outputs) == 0 {
		return "", errors.New("fakeLLM: unscripted Generate call")
	}
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	return out, nil
}

func (f *fakeLLM) GenerateEnum(_ context.Context, _ llm.Request, _ string, _ []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enumCalls++
	if len(f.enums) == 0 {
		return "", errors.New("fakeLLM: unscripted GenerateEnum call")
	}
	out := f.enums[0]
	f.enums = f.enums[1:]
	return out, nil
}

func (f *fakeLLM) Embed(_ context.Context, _, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeLLM) remainingEnums() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enums)
}

// stubAgent is a scripted worker. Each call pops the next step; fail steps
// return an error so the adapter's soft-failure path is exercised.
type stubAgent struct {
	name  string
	steps []stubStep
	calls int
}

type stubStep struct {
	content string
	err     error
}

func completes(name string, contents ...string) *stubAgent {
	a := &stubAgent{name: name}
	for _, c := range contents {
		a.steps = append(a.steps, stubStep{content: c})
	}
	return a
}

func fails(name string, err error) *stubAgent {
	return &stubAgent{name: name, steps: []stubStep{{err: err}}}
}

func (a *stubAgent) Name() string { return a.name }

func (a *stubAgent) Run(_ context.Context, _ State) (Message, error) {
	i := a.calls
	a.calls++
	if i >= len(a.steps) {
		return Message{}, fmt.Errorf("stub %s: unscripted call %d", a.name, i)
	}
	step := a.steps[i]
	if step.err != nil {
		return Message{}, step.err
	}
	if a.name == NodeGeneratingResponse {
		return Message{Role: RoleAgent, Author: a.name, Content: step.content}, nil
	}
	return AgentMessage(a.name, step.content), nil
}

// stubRouter returns a fixed decision, bypassing the TaskManager.
type stubRouter struct {
	next string
	err  error
}

func (r stubRouter) Route(_ context.Context, _ State) (string, error) {
	return r.next, r.err
}

func defaultStubAgents() Agents {
	return Agents{
		Theory:     completes(NodeExplainTheory, "Concept Overview:\nchain rule\n\nStatus: COMPLETE"),
		Search:     completes(NodeExternalSearch, "Main Findings Summary:\nresults\n\nStatus: COMPLETE"),
		Generation: completes(NodeProblemGeneration, "Problem Statement:\nproblem\n\nStatus: COMPLETE"),
		Solving:    completes(NodeProblemSolving, "Step-by-Step Solution:\nsteps\n\nStatus: COMPLETE"),
		Response:   completes(NodeGeneratingResponse, "final answer"),
	}
}
