// Package llm wraps the language model behind a small interface so the
// tutoring workflow stays independent of the vendor SDK.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse indicates the model returned no usable candidates.
// Callers at the agent boundary convert this to a soft failure.
var ErrEmptyResponse = errors.New("llm: empty model response")

// Part is one piece of multimodal input: either text or inline image bytes.
type Part struct {
	Text string

	// ImageData with ImageMIME set ("image/png", "image/jpeg") makes this
	// an image part; Text is ignored then.
	ImageData []byte
	ImageMIME string
}

// Text returns a text-only part.
func Text(s string) Part {
	return Part{Text: s}
}

// Image returns an inline image part.
func Image(mime string, data []byte) Part {
	return Part{ImageMIME: mime, ImageData: data}
}

// Request describes one generation call.
type Request struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32

	// System is the system instruction; prompt content goes in Parts.
	System string
	Parts  []Part
}

// Client is the generation interface consumed by the agents and the router.
type Client interface {
	// Generate produces a free-text completion.
	Generate(ctx context.Context, req Request) (string, error)

	// GenerateEnum produces a structured single-field object whose value is
	// constrained to the allowed set, and returns that value. The model is
	// schema-constrained; membership is still validated by the caller,
	// which treats an out-of-set value as a contract violation.
	GenerateEnum(ctx context.Context, req Request, field string, allowed []string) (string, error)

	// Embed returns the embedding vector for text under the given model.
	Embed(ctx context.Context, model, text string) ([]float32, error)
}
