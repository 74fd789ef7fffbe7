// Package openrouter talks to an OpenRouter compatible chat-completions API.
package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clinqo-prescriber/internal/common/config"
	commonhttp "clinqo-prescriber/internal/common/http"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/common/metrics"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "meta-llama/llama-3.1-8b-instruct:free"
	DefaultTimeout     = 30 * time.Second
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1500
	DefaultReferer     = "http://localhost"
	DefaultTitle       = "Medical AI Simulation"

	maxErrorBody = 4096
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
	Referer     string
	Title       string
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Timeout:     DefaultTimeout,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Referer:     DefaultReferer,
		Title:       DefaultTitle,
	}
}

// ConfigFromApp maps the inference section onto client settings. Unset
// fields keep their defaults.
func ConfigFromApp(cfg config.InferenceConfig) *Config {
	out := DefaultConfig()
	out.APIKey = cfg.APIKey
	out.Temperature = cfg.Temperature
	if cfg.BaseURL != "" {
		out.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		out.Model = cfg.Model
	}
	if cfg.Timeout > 0 {
		out.Timeout = config.GetDuration(cfg.Timeout)
	}
	if cfg.MaxTokens > 0 {
		out.MaxTokens = cfg.MaxTokens
	}
	if cfg.Referer != "" {
		out.Referer = cfg.Referer
	}
	if cfg.Title != "" {
		out.Title = cfg.Title
	}
	return out
}

// chatRequest mirrors the chat-completions body. stream and temperature are
// always sent, so go-openai's request type (omitempty on both) is not used.
type chatRequest struct {
	Model       string                         `json:"model"`
	Messages    []openai.ChatCompletionMessage `json:"messages"`
	Temperature float32                        `json:"temperature"`
	MaxTokens   int                            `json:"max_tokens"`
	Stream      bool                           `json:"stream"`
}

// Completion is the assistant text of a successful call.
type Completion struct {
	Content string
	Model   string
	Usage   openai.Usage
}

type Client struct {
	config *Config
	http   *commonhttp.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		http: commonhttp.NewClient(config.Timeout).
			WithHeader("Authorization", "Bearer "+config.APIKey).
			WithHeader("HTTP-Referer", config.Referer).
			WithHeader("X-Title", config.Title),
		logger: log.With(map[string]interface{}{
			"component": "openrouter",
			"model":     config.Model,
		}),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.config.Model
}

// Complete sends a single system+user exchange. It never retries. Failures
// are one of ErrTransport (possibly with ErrTimeout), *UpstreamStatusError or
// ErrMalformedEnvelope.
func (c *Client) Complete(ctx context.Context, system, prompt string) (*Completion, error) {
	ctx, span := otel.Tracer("clinqo-prescriber/openrouter").Start(ctx, "openrouter.chat_completion")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.config.Model))

	start := time.Now()
	completion, err := c.complete(ctx, system, prompt)
	outcome := Classify(err)

	metrics.InferenceRequests.WithLabelValues(outcome).Inc()
	metrics.InferenceDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("llm.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		c.logger.Warn("inference request failed", map[string]interface{}{
			"outcome":    outcome,
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return nil, err
	}

	c.logger.Info("inference request completed", map[string]interface{}{
		"durationMs":       time.Since(start).Milliseconds(),
		"promptTokens":     completion.Usage.PromptTokens,
		"completionTokens": completion.Usage.CompletionTokens,
		"totalTokens":      completion.Usage.TotalTokens,
	})
	return completion, nil
}

func (c *Client) complete(ctx context.Context, system, prompt string) (*Completion, error) {
	body := chatRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Stream:      false,
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	resp, err := c.http.PostJSON(ctx, url, body)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &UpstreamStatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	var envelope openai.ChatCompletionResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(envelope.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedEnvelope)
	}

	model := envelope.Model
	if model == "" {
		model = c.config.Model
	}

	return &Completion{
		Content: envelope.Choices[0].Message.Content,
		Model:   model,
		Usage:   envelope.Usage,
	}, nil
}
