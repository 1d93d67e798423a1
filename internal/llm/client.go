package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

// ErrNotConfigured is returned by New when no API key is available.
var ErrNotConfigured = errors.New("llm api key is not configured")

type Config struct {
	ModelType      string  `json:"model_type,omitempty"`
	APIKey         string  `json:"api_key,omitempty"`
	BaseURL        string  `json:"base_url,omitempty"`
	Model          string  `json:"model,omitempty"`
	MaxTokens      int     `json:"max_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
}

func (c Config) WithDefaults() Config {
	out := c
	if t, err := ParseModelType(out.ModelType); err == nil {
		out.ModelType = string(t)
		if strings.TrimSpace(out.Model) == "" && t != ModelTypeNone {
			out.Model = defaultModelFor(t)
		}
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = 1024
	}
	if out.TimeoutSeconds <= 0 {
		out.TimeoutSeconds = 120
	}
	return out
}

// Client sends single-turn completions to the configured provider.
type Client struct {
	Type        ModelType
	Model       string
	MaxTokens   int
	Temperature float64

	openaiSDK    openai.Client
	anthropicSDK anthropic.Client
}

func New(cfg Config) (*Client, error) {
	c := cfg.WithDefaults()
	typ, err := ParseModelType(c.ModelType)
	if err != nil {
		return nil, err
	}
	if typ == ModelTypeNone {
		return nil, ErrNotConfigured
	}
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	httpClient := &http.Client{Timeout: time.Duration(c.TimeoutSeconds) * time.Second}

	client := &Client{
		Type:        typ,
		Model:       strings.TrimSpace(c.Model),
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
	switch typ {
	case ModelTypeAnthropics:
		client.anthropicSDK = newAnthropicSDK(apiKey, c.BaseURL, httpClient)
	default:
		client.openaiSDK = newOpenAISDK(apiKey, c.BaseURL, httpClient)
	}
	return client, nil
}

// Complete sends one system + user exchange and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if c == nil {
		return "", errors.New("nil client")
	}
	if strings.TrimSpace(user) == "" {
		return "", errors.New("prompt is empty")
	}
	var (
		text string
		err  error
	)
	switch c.Type {
	case ModelTypeAnthropics:
		text, err = c.completeAnthropic(ctx, system, user)
	default:
		text, err = c.completeOpenAI(ctx, system, user)
	}
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", c.Type, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("model returned an empty reply")
	}
	return text, nil
}
