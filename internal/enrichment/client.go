package enrichment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pressline/pressline/internal/config"
)

// Completer is the language-model collaborator used by every pipeline stage.
// A failed call returns an empty string and zero cost; it never returns an
// error. Each stage defines its own fallback for the empty result.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, Cost)
}

// OpenAIClient implements Completer with chat completions, pricing every
// call from the response token usage.
type OpenAIClient struct {
	client *openai.Client
	cfg    config.OpenAIConfig
	prices PriceTable
	logger *slog.Logger
}

var _ Completer = (*OpenAIClient)(nil)

// NewOpenAIClient creates a cost-accounted language-model client.
func NewOpenAIClient(cfg config.OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
		prices: PriceTable{
			InputPerMTok:  cfg.InputPricePerMTok,
			OutputPerMTok: cfg.OutputPricePerMTok,
		},
		logger: logger,
	}
}

// Complete sends the prompt and returns the trimmed response text with its
// cost. Quota errors, network errors and malformed responses all degrade to
// ("", zero cost) with a warning log.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, Cost) {
	if c.cfg.APIKey == "" {
		c.logger.Warn("language model api key not configured, skipping call")
		return "", Cost{}
	}

	timeout := time.Duration(c.cfg.TimeoutSeconds) * time.Second
	apiCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(apiCtx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		c.logger.Warn("language model call failed",
			"model", c.cfg.Model,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return "", Cost{}
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn("language model returned no choices", "model", c.cfg.Model)
		return "", Cost{}
	}

	cost := c.prices.Price(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	text := strings.TrimSpace(resp.Choices[0].Message.Content)

	c.logger.Debug("language model call complete",
		"model", c.cfg.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"cost_usd", cost.USD,
		"duration_ms", time.Since(start).Milliseconds())

	return text, cost
}
