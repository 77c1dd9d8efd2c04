package tutor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Status
	}{
		{"complete", "Concept Overview:\n...\n\nStatus: COMPLETE", StatusComplete},
		{"failed", "Main Findings Summary:\nnothing found\n\nStatus: FAILED", StatusFailed},
		{"list marker", "- Status: COMPLETE", StatusComplete},
		{"indented", "  Status: FAILED", StatusFailed},
		{"none", "just some text", StatusNone},
		{"mid-line mention ignored", "the Status: COMPLETE marker goes on its own line", StatusNone},
		{"last marker wins", "quoted:\nStatus: COMPLETE\n\nactual outcome:\nStatus: FAILED", StatusFailed},
		{"unknown value", "Status: PENDING", StatusNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.content))
		})
	}
}

func TestAgentMessage(t *testing.T) {
	m := AgentMessage(NodeExplainTheory, "explanation\n\nStatus: COMPLETE")
	assert.Equal(t, StatusComplete, m.Status)
	assert.Equal(t, NodeExplainTheory, m.Author)
	assert.Equal(t, RoleAgent, m.Role)
}

func TestAgentMessage_AppendsMissingMarker(t *testing.T) {
	m := AgentMessage(NodeProblemSolving, "a bare answer")
	assert.Equal(t, StatusComplete, m.Status)
	assert.Contains(t, m.Content, "Status: COMPLETE")
	assert.Equal(t, StatusComplete, ParseStatus(m.Content))
}

func TestFailedMessage(t *testing.T) {
	m := FailedMessage(NodeExternalSearch, "search backend unreachable")
	assert.Equal(t, StatusFailed, m.Status)
	assert.Contains(t, m.Content, "search backend unreachable")
	assert.Equal(t, StatusFailed, ParseStatus(m.Content))
}

func TestState_CurrentSegment(t *testing.T) {
	s := State{Messages: []Message{
		UserMessage("first question"),
		AgentMessage(NodeExplainTheory, "old work\n\nStatus: COMPLETE"),
		UserMessage("second question"),
		AgentMessage(NodeProblemGeneration, "new work\n\nStatus: COMPLETE"),
	}}

	req, ok := s.CurrentRequest()
	require.True(t, ok)
	assert.Equal(t, "second question", req.Content)

	seg := s.CurrentSegment()
	require.Len(t, seg, 1)
	assert.Equal(t, NodeProblemGeneration, seg[0].Author)
}

func TestState_CurrentSegment_Empty(t *testing.T) {
	var s State
	_, ok := s.CurrentRequest()
	assert.False(t, ok)
	assert.Empty(t, s.CurrentSegment())
}

func TestState_SegmentAuthor(t *testing.T) {
	s := State{Messages: []Message{
		UserMessage("q"),
		FailedMessage(NodeExplainTheory, "gap"),
		AgentMessage(NodeExternalSearch, "found it\n\nStatus: COMPLETE"),
	}}

	status, ok := s.SegmentAuthor(NodeExplainTheory)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, status)

	_, ok = s.SegmentAuthor(NodeProblemSolving)
	assert.False(t, ok)
}

func TestState_FinalAnswer(t *testing.T) {
	s := State{Messages: []Message{
		UserMessage("q"),
		AgentMessage(NodeExplainTheory, "work\n\nStatus: COMPLETE"),
	}}
	_, ok := s.FinalAnswer()
	assert.False(t, ok)

	s.Messages = append(s.Messages, Message{Role: RoleAgent, Author: NodeGeneratingResponse, Content: "done"})
	answer, ok := s.FinalAnswer()
	require.True(t, ok)
	assert.Equal(t, "done", answer)
}

func TestValidTarget(t *testing.T) {
	for _, name := range RouteTargets() {
		assert.True(t, ValidTarget(name), name)
	}
	assert.False(t, ValidTarget(NodeTaskManager))
	assert.False(t, ValidTarget("FINISH"))
	assert.False(t, ValidTarget(""))
}
