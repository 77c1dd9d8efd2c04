package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/mathtutor-ai/mathtutor/pkg/llm"
)

// GenerationAgent authors new practice problems, including multiple-choice
// quizzes, at the difficulty the student asked for.
type GenerationAgent struct {
	llm   llm.Client
	model string
}

// NewGenerationAgent builds the problem author.
func NewGenerationAgent(client llm.Client, model string) *GenerationAgent {
	return &GenerationAgent{llm: client, model: model}
}

func (a *GenerationAgent) Name() string { return NodeProblemGeneration }

func (a *GenerationAgent) Run(ctx context.Context, state State) (Message, error) {
	req, ok := state.CurrentRequest()
	if !ok {
		return Message{}, fmt.Errorf("generation agent: no user request in conversation")
	}

	var b strings.Builder
	// Completed work from earlier agents (a theory explanation, search
	// findings) seeds the problem so generated material stays on topic.
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

	out, err := a.llm.Generate(ctx, llm.Request{
		Model:       a.model,
		Temperature: 0.3,
		System:      generationSystemPrompt,
		Parts:       []llm.Part{llm.Text(b.String())},
	})
	if err != nil {
		return Message{}, fmt.Errorf("generation agent: generate: %w", err)
	}
	return AgentMessage(NodeProblemGeneration, out), nil
}
