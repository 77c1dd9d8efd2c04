// Package tutor implements the calculus tutoring workflow: a supervisor
// (TaskManager) routes each user request through specialized agents over a
// conditional-dispatch graph until the response synthesizer produces the
// final answer.
package tutor

import (
	"regexp"
	"strings"
)

// Node names. These form the closed routing set: the TaskManager may only
// dispatch to one of RouteTargets, and GeneratingResponse is the single
// terminal node every run passes through exactly once.
const (
	NodeTaskManager        = "TaskManager"
	NodeExternalSearch     = "ExternalSearch"
	NodeProblemSolving     = "ProblemSolving"
	NodeProblemGeneration  = "ProblemGeneration"
	NodeExplainTheory      = "ExplainTheoryAgent"
	NodeGeneratingResponse = "GeneratingResponse"
)

// UserAuthor is the author tag of caller-provided messages.
const UserAuthor = "User"

// RouteTargets returns the closed set of nodes the TaskManager may pick.
func RouteTargets() []string {
	return []string{
		NodeExternalSearch,
		NodeProblemSolving,
		NodeProblemGeneration,
		NodeExplainTheory,
		NodeGeneratingResponse,
	}
}

// ValidTarget reports whether name is in the closed routing set.
func ValidTarget(name string) bool {
	switch name {
	case NodeExternalSearch, NodeProblemSolving, NodeProblemGeneration,
		NodeExplainTheory, NodeGeneratingResponse:
		return true
	}
	return false
}

// Status is an agent's self-assessed outcome, embedded in its output.
// The empty value means the message carries no status (user messages, the
// final response).
type Status string

const (
	StatusNone     Status = ""
	StatusComplete Status = "COMPLETE"
	StatusFailed   Status = "FAILED"
)

// statusLine matches the textual status marker agents embed in their output.
var statusLine = regexp.MustCompile(`(?m)^\s*-?\s*Status:\s*(COMPLETE|FAILED)\b`)

// ParseStatus extracts the status marker from message content. The last
// marker wins if several appear (an agent quoting another agent's output).
func ParseStatus(content string) Status {
	matches := statusLine.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return StatusNone
	}
	return Status(matches[len(matches)-1][1])
}

// Role distinguishes caller input from agent output.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one immutable entry of the conversation log.
// Status is first-class, but the COMPLETE/FAILED marker also stays embedded
// in Content so transcript consumers can read it.
type Message struct {
	Role    Role   `json:"role"`
	Author  string `json:"author"`
	Content string `json:"content"`
	Status  Status `json:"status,omitempty"`

	// Optional inline image for photographed problems.
	ImageMIME string `json:"image_mime,omitempty"`
	ImageData []byte `json:"image_data,omitempty"`
}

// UserMessage builds a caller message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Author: UserAuthor, Content: content}
}

// UserImageMessage builds a caller message with an attached image.
func UserImageMessage(content, mime string, image []byte) Message {
	return Message{
		Role:      RoleUser,
		Author:    UserAuthor,
		Content:   content,
		ImageMIME: mime,
		ImageData: image,
	}
}

// AgentMessage builds a worker agent's output message. If the content
// carries no status marker it is treated as COMPLETE and the marker is
// appended, keeping the transcript convention intact.
func AgentMessage(author, content string) Message {
	status := ParseStatus(content)
	if status == StatusNone {
		status = StatusComplete
		content = strings.TrimRight(content, "\n") + "\n\nStatus: COMPLETE"
	}
	return Message{Role: RoleAgent, Author: author, Content: content, Status: status}
}

// FailedMessage builds the soft-failure message the adapter emits when an
// agent hits a hard fault (tool error, malformed model output).
func FailedMessage(author, reason string) Message {
	content := "Unable to complete this step: " + reason + "\n\nStatus: FAILED"
	return Message{Role: RoleAgent, Author: author, Content: content, Status: StatusFailed}
}

// State is the conversation state threaded through every node: an
// append-only message log plus the TaskManager's routing decision.
// The graph engine owns it for the duration of one run.
type State struct {
	Messages []Message `json:"messages"`
	Next     string    `json:"next,omitempty"`
}

// lastUserIndex returns the index of the most recent user message, or -1.
func (s State) lastUserIndex() int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// CurrentRequest returns the most recent user message. Earlier turns are
// background context only.
func (s State) CurrentRequest() (Message, bool) {
	i := s.lastUserIndex()
	if i < 0 {
		return Message{}, false
	}
	return s.Messages[i], true
}

// CurrentSegment returns the agent messages produced after the most recent
// user message, in order.
func (s State) CurrentSegment() []Message {
	i := s.lastUserIndex()
	if i < 0 {
		return nil
	}
	return s.Messages[i+1:]
}

// SegmentAuthor reports whether an agent already produced output for the
// current request, and with which status (the last one wins).
func (s State) SegmentAuthor(author string) (Status, bool) {
	seg := s.CurrentSegment()
	for i := len(seg) - 1; i >= 0; i-- {
		if seg[i].Author == author {
			return seg[i].Status, true
		}
	}
	return StatusNone, false
}

// FinalAnswer returns the synthesizer's message for the current request.
func (s State) FinalAnswer() (string, bool) {
	seg := s.CurrentSegment()
	for i := len(seg) - 1; i >= 0; i-- {
		if seg[i].Author == NodeGeneratingResponse {
			return seg[i].Content, true
		}
	}
	return "", false
}
