package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements Client on the Google Generative AI SDK.
// One Gemini value is shared read-only across concurrent workflow runs.
type Gemini struct {
	client *genai.Client
}

var _ Client = (*Gemini)(nil)

// NewGemini creates a Gemini client authenticated with the given API key.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

// Close releases the underlying gRPC connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) model(req Request) *genai.GenerativeModel {
	m := g.client.GenerativeModel(req.Model)
	m.SetTemperature(req.Temperature)
	if req.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(req.MaxOutputTokens)
	}
	if req.System != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	return m
}

func toGenaiParts(parts []Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.ImageMIME != "" {
			// genai wants the bare format, not the full MIME type.
			format := strings.TrimPrefix(p.ImageMIME, "image/")
			out = append(out, genai.ImageData(format, p.ImageData))
			continue
		}
		out = append(out, genai.Text(p.Text))
	}
	return out
}

// Generate implements Client.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := g.model(req).GenerateContent(ctx, toGenaiParts(req.Parts)...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return textFromResponse(resp)
}

// GenerateEnum implements Client. The response schema restricts the model to
// a one-field JSON object whose value comes from the allowed set.
func (g *Gemini) GenerateEnum(ctx context.Context, req Request, field string, allowed []string) (string, error) {
	m := g.model(req)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			field: {
				Type: genai.TypeString,
				Enum: allowed,
			},
		},
		Required: []string{field},
	}

	resp, err := m.GenerateContent(ctx, toGenaiParts(req.Parts)...)
	if err != nil {
		return "", fmt.Errorf("gemini generate enum: %w", err)
	}
	text, err := textFromResponse(resp)
	if err != nil {
		return "", err
	}

	var decision map[string]string
	if err := json.Unmarshal([]byte(text), &decision); err != nil {
		return "", fmt.Errorf("gemini enum response %q: %w", text, err)
	}
	value, ok := decision[field]
	if !ok {
		return "", fmt.Errorf("gemini enum response %q: missing field %q", text, field)
	}
	return value, nil
}

// Embed implements Client.
func (g *Gemini) Embed(ctx context.Context, model, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(model)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp.Embedding == nil {
		return nil, ErrEmptyResponse
	}
	return resp.Embedding.Values, nil
}

func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
