package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartConstructors(t *testing.T) {
	p := Text("hello")
	assert.Equal(t, "hello", p.Text)
	assert.Empty(t, p.ImageMIME)

	img := Image("image/png", []byte{1, 2, 3})
	assert.Equal(t, "image/png", img.ImageMIME)
	assert.Equal(t, []byte{1, 2, 3}, img.ImageData)
}

func TestToGenaiParts(t *testing.T) {
	parts := toGenaiParts([]Part{
		Text("describe this"),
		Image("image/jpeg", []byte{0xff, 0xd8}),
	})

	require.Len(t, parts, 2)
	assert.Equal(t, genai.Text("describe this"), parts[0])

	blob, ok := parts[1].(genai.Blob)
	require.True(t, ok)
	// The SDK expands the bare format back into a full MIME type.
	assert.Equal(t, "image/jpeg", blob.MIMEType)
	assert.Equal(t, []byte{0xff, 0xd8}, blob.Data)
}

func TestTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []genai.Part{genai.Text("part one, "), genai.Text("part two")},
			},
		}},
	}

	text, err := textFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "part one, part two", text)
}

func TestTextFromResponse_Empty(t *testing.T) {
	_, err := textFromResponse(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = textFromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
	})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
