package providers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI compatible adapters. BaseURL may point
// at any OpenAI compatible endpoint (Groq, Azure proxies, local gateways).
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
	Dimension   int
}

func (cfg OpenAIConfig) client() *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	return openai.NewClientWithConfig(clientCfg)
}

// OpenAIGenerator produces translations through chat completions.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger interfaces.Logger
}

// NewOpenAIGenerator constructs a chat completion backed generator.
func NewOpenAIGenerator(cfg OpenAIConfig, logger interfaces.Logger) *OpenAIGenerator {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &OpenAIGenerator{client: cfg.client(), cfg: cfg, logger: logger}
}

func (g *OpenAIGenerator) Name() string {
	return "openai:" + g.cfg.Model
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req interfaces.GenerateRequest) (string, error) {
	callCtx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chat := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		Temperature: pickTemperature(req.Temperature, g.cfg.Temperature),
		MaxTokens:   pickInt(req.MaxTokens, g.cfg.MaxTokens),
	}
	resp, err := g.client.CreateChatCompletion(callCtx, chat)
	if err != nil {
		classified := classifyOpenAI(ctx, err)
		g.logger.Debug("provider.generate.failed", "provider", g.Name(), "retryable", domain.IsRetryable(classified), "error", err)
		return "", classified
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// OpenAIEmbedder produces vectors through the embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIEmbedder constructs an embeddings backed embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: cfg.client(), cfg: cfg}
}

func (e *OpenAIEmbedder) Name() string {
	return "openai:" + e.cfg.Model
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.cfg.Dimension
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	callCtx, cancel := withTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.cfg.Model),
		Dimensions: e.cfg.Dimension,
	})
	if err != nil {
		return nil, classifyOpenAI(ctx, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.ProviderRejected(nil, "openai returned an unexpected number of embeddings")
	}
	data := append([]openai.Embedding(nil), resp.Data...)
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, item := range data {
		out[i] = item.Embedding
	}
	return out, nil
}

func classifyOpenAI(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus("openai", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return classifyStatus("openai", reqErr.HTTPStatusCode, body)
	}
	return classifyTransport(ctx, "openai", err)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func pickTemperature(request, fallback float32) float32 {
	if request > 0 {
		return request
	}
	return fallback
}

func pickInt(request, fallback int) int {
	if request > 0 {
		return request
	}
	return fallback
}
