package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/mathtutor-ai/mathtutor/pkg/llm"
)

// ResponseAgent composes the final reply to the student from the work the
// other agents produced for the current request.
type ResponseAgent struct {
	llm   llm.Client
	model string
}

// NewResponseAgent builds the response synthesizer.
func NewResponseAgent(client llm.Client, model string) *ResponseAgent {
	return &ResponseAgent{llm: client, model: model}
}

func (a *ResponseAgent) Name() string { return NodeGeneratingResponse }

func (a *ResponseAgent) Run(ctx context.Context, state State) (Message, error) {
	req, ok := state.CurrentRequest()
	if !ok {
		return Message{}, fmt.Errorf("response agent: no user request in conversation")
	}

	seg := state.CurrentSegment()

	var b strings.Builder
	b.WriteString("Student request:\n")
	b.WriteString(req.Content)
	b.WriteString("\n\n")
	if len(seg) == 0 {
		b.WriteString("No agent work was produced for this request.\n")
	}
	for _, m := range seg {
		fmt.Fprintf(&b, "--- %s (status: %s) ---\n%s\n\n", m.Author, m.Status, m.Content)
	}
	if gaps := unresolvedGaps(seg); len(gaps) > 0 {
		fmt.Fprintf(&b, "Unserved parts of the request (must be acknowledged in the reply): %s\n",
			strings.Join(gaps, ", "))
	}

	out, err := a.llm.Generate(ctx, llm.Request{
		Model:       a.model,
		Temperature: 0.2,
		System:      responseSystemPrompt,
		Parts:       []llm.Part{llm.Text(b.String())},
	})
	if err != nil {
		return Message{}, fmt.Errorf("response agent: generate: %w", err)
	}
	// The final reply carries no status marker.
	return Message{Role: RoleAgent, Author: NodeGeneratingResponse, Content: out}, nil
}

// unresolvedGaps names the agents that failed for the current request and
// whose fallback did not complete either.
func unresolvedGaps(seg []Message) []string {
	completed := map[string]bool{}
	for _, m := range seg {
		if m.Status == StatusComplete {
			completed[m.Author] = true
		}
	}
	var gaps []string
	for _, m := range seg {
		if m.Status != StatusFailed {
			continue
		}
		if completed[m.Author] || completed[fallbackFor(m.Author)] {
			continue
		}
		gaps = append(gaps, m.Author)
	}
	return gaps
}
