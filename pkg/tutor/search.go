package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/mathtutor-ai/mathtutor/pkg/llm"
	"github.com/mathtutor-ai/mathtutor/pkg/websearch"
)

// SearchAgent answers questions outside the internal knowledge base by
// querying the web and summarizing the results.
type SearchAgent struct {
	llm    llm.Client
	search *websearch.Client
	model  string
}

// NewSearchAgent builds the external search agent.
func NewSearchAgent(client llm.Client, search *websearch.Client, model string) *SearchAgent {
	return &SearchAgent{llm: client, search: search, model: model}
}

func (a *SearchAgent) Name() string { return NodeExternalSearch }

func (a *SearchAgent) Run(ctx context.Context, state State) (Message, error) {
	req, ok := state.CurrentRequest()
	if !ok {
		return Message{}, fmt.Errorf("search agent: no user request in conversation")
	}

	resp, err := a.search.Search(ctx, req.Content)
	if err != nil {
		return Message{}, fmt.Errorf("search agent: web search: %w", err)
	}
	if len(resp.Results) == 0 {
		return FailedMessage(NodeExternalSearch, "the web search returned no results"), nil
	}

	var b strings.Builder
	b.WriteString("Search results:\n\n")
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "[%d] %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Content)
	}
	if resp.Answer != "" {
		fmt.Fprintf(&b, "Search engine summary:\n%s\n\n", resp.Answer)
	}
	b.WriteString("Student question:\n")
	b.WriteString(req.Content)

	out, err := a.llm.Generate(ctx, llm.Request{
		Model:       a.model,
		Temperature: 0.2,
		System:      searchSystemPrompt,
		Parts:       []llm.Part{llm.Text(b.String())},
	})
	if err != nil {
		return Message{}, fmt.Errorf("search agent: generate: %w", err)
	}
	return AgentMessage(NodeExternalSearch, out), nil
}
