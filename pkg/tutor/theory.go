package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/mathtutor-ai/mathtutor/pkg/llm"
	"github.com/mathtutor-ai/mathtutor/pkg/retrieval"
)

// theoryResultsPerCollection is how many passages each knowledge-base
// collection contributes to the explanation prompt.
const theoryResultsPerCollection = 2

// TheoryAgent explains calculus concepts from the internal knowledge base.
// It retrieves passages from both the textbook and the guides collections
// and grounds the explanation on them.
type TheoryAgent struct {
	llm   llm.Client
	store *retrieval.Store
	model string
}

// NewTheoryAgent builds the theory explainer.
func NewTheoryAgent(client llm.Client, store *retrieval.Store, model string) *TheoryAgent {
	return &TheoryAgent{llm: client, store: store, model: model}
}

func (a *TheoryAgent) Name() string { return NodeExplainTheory }

func (a *TheoryAgent) Run(ctx context.Context, state State) (Message, error) {
	req, ok := state.CurrentRequest()
	if !ok {
		return Message{}, fmt.Errorf("theory agent: no user request in conversation")
	}

	var passages []retrieval.Result
	for _, col := range []string{retrieval.CollectionTextbook, retrieval.CollectionGuides} {
		results, err := a.store.Search(ctx, col, req.Content, theoryResultsPerCollection)
		if err != nil {
			return Message{}, fmt.Errorf("theory agent: search %s: %w", col, err)
		}
		passages = append(passages, results...)
	}
	if len(passages) == 0 {
		return FailedMessage(NodeExplainTheory, "the internal knowledge base has no material on this topic"), nil
	}

	var b strings.Builder
	b.WriteString("Reference material:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] chapter=%q section=%q url=%q\n%s\n\n", i+1, p.Chapter, p.Section, p.URL, p.Text)
	}
	b.WriteString("Student request:\n")
	b.WriteString(req.Content)

	out, err := a.llm.Generate(ctx, llm.Request{
		Model:       a.model,
		Temperature: 0.2,
		System:      theorySystemPrompt,
		Parts:       []llm.Part{llm.Text(b.String())},
	})
	if err != nil {
		return Message{}, fmt.Errorf("theory agent: generate: %w", err)
	}
	return AgentMessage(NodeExplainTheory, out), nil
}
