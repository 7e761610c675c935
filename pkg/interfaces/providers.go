package interfaces

import "context"

// GenerateRequest carries the rendered prompt sent to a generative provider.
type GenerateRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// TextGenerator produces text from a prompt. Implementations classify their
// failures as retryable (transient) or terminal using go-errors values.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Embedder turns texts into raw (unnormalised) vectors, one per input.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
