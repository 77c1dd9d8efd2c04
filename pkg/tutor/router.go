package tutor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mathtutor-ai/mathtutor/pkg/graph"
	"github.com/mathtutor-ai/mathtutor/pkg/llm"
)

// ErrRouteContract reports a routing decision outside the closed node set.
// It aborts the run: an unknown target means the routing contract is broken,
// not that an agent had a bad day.
var ErrRouteContract = errors.New("tutor: routing decision outside the node set")

// fallbacks maps a failed agent to the agent tried next. Each request gets
// at most one fallback hop; a second failure goes straight to the
// synthesizer, which acknowledges the gap.
var fallbacks = map[string]string{
	NodeExplainTheory:     NodeExternalSearch,
	NodeProblemSolving:    NodeExplainTheory,
	NodeProblemGeneration: NodeExternalSearch,
	NodeExternalSearch:    NodeExplainTheory,
}

// fallbackFor returns the fallback agent for author, or "".
func fallbackFor(author string) string { return fallbacks[author] }

// Router decides which node acts next for the current request.
type Router interface {
	Route(ctx context.Context, state State) (string, error)
}

// TaskManager is the supervisor. Deterministic policy (failure fallback,
// the non-repeat guard) is applied first; only genuinely open decisions go
// to the routing model, which answers from an enum-constrained schema.
type TaskManager struct {
	llm   llm.Client
	model string
}

// NewTaskManager builds the supervisor.
func NewTaskManager(client llm.Client, model string) *TaskManager {
	return &TaskManager{llm: client, model: model}
}

func (tm *TaskManager) Route(ctx context.Context, state State) (string, error) {
	req, ok := state.CurrentRequest()
	if !ok {
		return "", fmt.Errorf("task manager: no user request in conversation")
	}
	seg := state.CurrentSegment()

	// Failure policy runs before the model sees anything.
	if len(seg) > 0 {
		last := seg[len(seg)-1]
		if last.Status == StatusFailed {
			if next, done := failureRoute(seg, last); done {
				return next, nil
			}
		}
	}

	choice, err := tm.consult(ctx, state)
	if err != nil {
		return "", err
	}
	if !ValidTarget(choice) {
		return "", fmt.Errorf("%w: %q", ErrRouteContract, choice)
	}
	if choice == NodeGeneratingResponse {
		return choice, nil
	}

	// Non-repeat guard: an agent that already completed for this request is
	// not invoked again unless the student explicitly asked for that many.
	completions := 0
	for _, m := range seg {
		if m.Author == choice && m.Status == StatusComplete {
			completions++
		}
	}
	if completions > 0 && completions >= requestedCount(req.Content) {
		return NodeGeneratingResponse, nil
	}
	// A previously failed agent is never retried directly; its fallback
	// already ran or the synthesizer handles the gap.
	for _, m := range seg {
		if m.Author == choice && m.Status == StatusFailed {
			return NodeGeneratingResponse, nil
		}
	}
	return choice, nil
}

// failureRoute picks the next node after a FAILED message. It returns
// done=false only in the impossible case of an unmapped author.
func failureRoute(seg []Message, last Message) (string, bool) {
	failures := 0
	for _, m := range seg {
		if m.Status == StatusFailed {
			failures++
		}
	}
	if failures >= 2 {
		return NodeGeneratingResponse, true
	}
	fb := fallbackFor(last.Author)
	if fb == "" {
		return "", false
	}
	if _, seen := segmentHas(seg, fb); seen {
		return NodeGeneratingResponse, true
	}
	return fb, true
}

func segmentHas(seg []Message, author string) (Status, bool) {
	for i := len(seg) - 1; i >= 0; i-- {
		if seg[i].Author == author {
			return seg[i].Status, true
		}
	}
	return StatusNone, false
}

// consult asks the routing model for the next node. The response schema is
// enum-constrained to the closed node set.
func (tm *TaskManager) consult(ctx context.Context, state State) (string, error) {
	var b strings.Builder
	b.WriteString("Conversation:\n\n")
	start := state.lastUserIndex()
	if start < 0 {
		start = 0
	}
	for _, m := range state.Messages[start:] {
		fmt.Fprintf(&b, "%s: %s\n\n", m.Author, m.Content)
	}
	b.WriteString("Which agent should act next?")

	choice, err := tm.llm.GenerateEnum(ctx, llm.Request{
		Model:       tm.model,
		Temperature: 0.1,
		System:      routerSystemPrompt,
		Parts:       []llm.Part{llm.Text(b.String())},
	}, "next", RouteTargets())
	if err != nil {
		return "", fmt.Errorf("task manager: routing model: %w", err)
	}
	return strings.TrimSpace(choice), nil
}

var wordCounts = map[string]int{
	"two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// countPattern matches a count only when it quantifies items ("three hard
// integration problems"), so a stray number like "exercise 3" or "$x^2$"
// does not read as a repeat request.
var countPattern = regexp.MustCompile(
	`\b([2-9]|10|two|three|four|five|six|seven|eight|nine|ten)\b(?:\s+\w+){0,2}\s+(?:problems|questions|exercises|quizzes|examples)\b`)

// requestedCount extracts an explicit multiplicity from the request ("make
// three problems"). Without one, each agent acts at most once per request.
func requestedCount(content string) int {
	m := countPattern.FindStringSubmatch(strings.ToLower(content))
	if m == nil {
		return 1
	}
	if n, err := strconv.Atoi(m[1]); err == nil {
		return n
	}
	return wordCounts[m[1]]
}

// routerNode adapts a Router to the graph. Routing errors are fatal to the
// run; soft failures are an agent concern, not a routing one.
func routerNode(r Router) graph.NodeFunc[State] {
	return func(ctx graph.Context, state State) (State, error) {
		next, err := r.Route(ctx, state)
		if err != nil {
			return state, err
		}
		if !ValidTarget(next) {
			return state, fmt.Errorf("%w: %q", ErrRouteContract, next)
		}
		ctx.Logger().Info("routing decision", "next", next)
		state.Next = next
		return state, nil
	}
}
