package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/"

func newOpenAISDK(apiKey, baseURL string, httpClient *http.Client) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(resolvedOpenAIBaseURL(baseURL)),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return openai.NewClient(opts...)
}

// resolvedOpenAIBaseURL accepts hosts with or without the /v1 suffix.
func resolvedOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return defaultOpenAIBaseURL
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/"
}

func (c *Client) completeOpenAI(ctx context.Context, system, user string) (string, error) {
	if c.Model == "" {
		return "", errors.New("model is required")
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.Model),
		Messages: messages,
	}
	if c.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.MaxTokens))
	}
	if c.Temperature != 0 {
		params.Temperature = openai.Float(c.Temperature)
	}

	resp, err := c.openaiSDK.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
