package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicBaseURL = "https://api.anthropic.com"

func newAnthropicSDK(apiKey, baseURL string, httpClient *http.Client) anthropic.Client {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithBaseURL(resolvedAnthropicBaseURL(baseURL)),
	}
	if httpClient != nil {
		opts = append(opts, anthropicoption.WithHTTPClient(httpClient))
	}
	return anthropic.NewClient(opts...)
}

func resolvedAnthropicBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		base = defaultAnthropicBaseURL
	}
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/v1")
	base = strings.TrimRight(base, "/")
	return base + "/"
}

func (c *Client) completeAnthropic(ctx context.Context, system, user string) (string, error) {
	if c.Model == "" {
		return "", errors.New("model is required")
	}
	params := anthropic.MessageNewParams{
		MaxTokens: int64(c.MaxTokens),
		Model:     anthropic.Model(c.Model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if c.Temperature != 0 {
		params.Temperature = anthropic.Float(c.Temperature)
	}

	msg, err := c.anthropicSDK.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}
	return anthropicText(msg), nil
}

func anthropicText(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	var out strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			if out.Len() > 0 {
				out.WriteString("\n")
			}
			out.WriteString(text.Text)
		}
	}
	return out.String()
}
