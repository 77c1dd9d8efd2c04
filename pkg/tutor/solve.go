package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/mathtutor-ai/mathtutor/pkg/llm"
)

// SolvingAgent produces worked, step-by-step solutions for problems the
// student supplied, as text or as a photographed image.
type SolvingAgent struct {
	llm   llm.Client
	model string
}

// NewSolvingAgent builds the problem solver.
func NewSolvingAgent(client llm.Client, model string) *SolvingAgent {
	return &SolvingAgent{llm: client, model: model}
}

func (a *SolvingAgent) Name() string { return NodeProblemSolving }

func (a *SolvingAgent) Run(ctx context.Context, state State) (Message, error) {
	req, ok := state.CurrentRequest()
	if !ok {
		return Message{}, fmt.Errorf("solving agent: no user request in conversation")
	}

	var b strings.Builder
	// Completed work from earlier agents matters here: when the student asks
	// for a problem and its solution, the problem to solve is in the
	// generation agent's output, not in the user message.
	if seg := state.CurrentSegment(); len(seg) > 0 {
		b.WriteString("Context from earlier work:\n\n")
		for _, m := range seg {
			if m.Status == StatusComplete {
				fmt.Fprintf(&b, "%s\n\n", m.Content)
			}
		}
	}
	b.WriteString("Student request:\n")
	b.WriteString(req.Content)

	parts := []llm.Part{llm.Text(b.String())}
	if len(req.ImageData) > 0 {
		parts = append(parts, llm.Image(req.ImageMIME, req.ImageData))
	}

	out, err := a.llm.Generate(ctx, llm.Request{
		Model:       a.model,
		Temperature: 0.1,
		System:      solvingSystemPrompt,
		Parts:       parts,
	})
	if err != nil {
		return Message{}, fmt.Errorf("solving agent: generate: %w", err)
	}
	return AgentMessage(NodeProblemSolving, out), nil
}
