// Package providers adapts generative and embedding backends to the
// interfaces.TextGenerator and interfaces.Embedder contracts.
package providers

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-locsync/internal/runtimeconfig"
	"github.com/goliatone/go-locsync/pkg/interfaces"
)

// NewGenerator builds the generator named by cfg.Kind. An unbound slot
// returns nil without error.
func NewGenerator(cfg runtimeconfig.ProviderConfig, logger interfaces.Logger) (interfaces.TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAIGenerator(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Timeout:     cfg.Timeout,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}, logger), nil
	case "ollama":
		return NewOllamaGenerator(OllamaConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Timeout:     cfg.Timeout,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}, logger), nil
	case "static":
		return NewStaticGenerator(nil), nil
	default:
		return nil, fmt.Errorf("providers: unsupported generator kind %q", cfg.Kind)
	}
}

// NewEmbedder builds the embedder named by cfg.Kind with the given vector
// dimension. An unbound slot returns nil without error.
func NewEmbedder(cfg runtimeconfig.ProviderConfig, dimension int) (interfaces.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout,
			Dimension: dimension,
		}), nil
	case "ollama":
		return NewOllamaEmbedder(OllamaConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout,
			Dimension: dimension,
		}), nil
	case "static":
		return NewHashEmbedder(dimension), nil
	default:
		return nil, fmt.Errorf("providers: unsupported embedder kind %q", cfg.Kind)
	}
}
