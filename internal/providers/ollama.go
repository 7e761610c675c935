package providers

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaConfig configures the Ollama HTTP adapters.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
	Dimension   int
}

func (cfg OllamaConfig) url(path string) string {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultOllamaURL
	}
	return strings.TrimRight(base, "/") + path
}

func (cfg OllamaConfig) restClient() *resty.Client {
	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaGenerator produces translations through /api/chat.
type OllamaGenerator struct {
	http   *resty.Client
	cfg    OllamaConfig
	logger interfaces.Logger
}

// NewOllamaGenerator constructs a generator backed by a local Ollama server.
func NewOllamaGenerator(cfg OllamaConfig, logger interfaces.Logger) *OllamaGenerator {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &OllamaGenerator{http: cfg.restClient(), cfg: cfg, logger: logger}
}

func (g *OllamaGenerator) Name() string {
	return "ollama:" + g.cfg.Model
}

func (g *OllamaGenerator) Generate(ctx context.Context, req interfaces.GenerateRequest) (string, error) {
	body := ollamaChatRequest{
		Model:  g.cfg.Model,
		Stream: false,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, ollamaMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, ollamaMessage{Role: "user", Content: req.Prompt})

	options := map[string]any{}
	if temp := pickTemperature(req.Temperature, g.cfg.Temperature); temp > 0 {
		options["temperature"] = temp
	}
	if tokens := pickInt(req.MaxTokens, g.cfg.MaxTokens); tokens > 0 {
		options["num_predict"] = tokens
	}
	if len(options) > 0 {
		body.Options = options
	}

	var out ollamaChatResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		Post(g.cfg.url("/api/chat"))
	if err != nil {
		classified := classifyTransport(ctx, "ollama", err)
		g.logger.Debug("provider.generate.failed", "provider", g.Name(), "retryable", domain.IsRetryable(classified), "error", err)
		return "", classified
	}
	if resp.IsError() {
		return "", classifyStatus("ollama", resp.StatusCode(), resp.String())
	}
	return strings.TrimSpace(out.Message.Content), nil
}

// OllamaEmbedder produces vectors through /api/embed.
type OllamaEmbedder struct {
	http *resty.Client
	cfg  OllamaConfig
}

// NewOllamaEmbedder constructs an embedder backed by a local Ollama server.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	return &OllamaEmbedder{http: cfg.restClient(), cfg: cfg}
}

func (e *OllamaEmbedder) Name() string {
	return "ollama:" + e.cfg.Model
}

func (e *OllamaEmbedder) Dimension() int {
	return e.cfg.Dimension
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out ollamaEmbedResponse
	resp, err := e.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(ollamaEmbedRequest{Model: e.cfg.Model, Input: texts}).
		SetResult(&out).
		Post(e.cfg.url("/api/embed"))
	if err != nil {
		return nil, classifyTransport(ctx, "ollama", err)
	}
	if resp.IsError() {
		return nil, classifyStatus("ollama", resp.StatusCode(), resp.String())
	}
	if len(out.Embeddings) != len(texts) {
		return nil, domain.ProviderRejected(nil, "ollama returned an unexpected number of embeddings")
	}
	return out.Embeddings, nil
}
