package llm

import (
	"context"
	"errors"
	"testing"
)

func TestResolvedBaseURLs(t *testing.T) {
	cases := []struct {
		in, openai, anthropic string
	}{
		{in: "", openai: "https://api.openai.com/v1/", anthropic: "https://api.anthropic.com/"},
		{in: "https://proxy.local", openai: "https://proxy.local/v1/", anthropic: "https://proxy.local/"},
		{in: "https://proxy.local/v1/", openai: "https://proxy.local/v1/", anthropic: "https://proxy.local/"},
	}
	for _, tc := range cases {
		if got := resolvedOpenAIBaseURL(tc.in); got != tc.openai {
			t.Fatalf("openai(%q) = %q, want %q", tc.in, got, tc.openai)
		}
		if got := resolvedAnthropicBaseURL(tc.in); got != tc.anthropic {
			t.Fatalf("anthropic(%q) = %q, want %q", tc.in, got, tc.anthropic)
		}
	}
}

func TestNewWithoutKey(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := New(Config{ModelType: "none", APIKey: "k"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("model_type none should disable the client, got %v", err)
	}
	if _, err := New(Config{ModelType: "gemini", APIKey: "k"}); err == nil {
		t.Fatalf("expected unsupported model type error")
	}
}

func TestNewPicksDefaults(t *testing.T) {
	c, err := New(Config{ModelType: "anthropic", APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Type != ModelTypeAnthropics || c.Model == "" || c.MaxTokens != 1024 {
		t.Fatalf("unexpected client %+v", c)
	}
}

func TestCompleteRejectsEmptyPrompt(t *testing.T) {
	c, err := New(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Complete(context.Background(), "sys", "  "); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestParseModelType(t *testing.T) {
	cases := map[string]ModelType{
		"":           ModelTypeOpenAI,
		"OpenAI":     ModelTypeOpenAI,
		"anthropic":  ModelTypeAnthropics,
		"anthropics": ModelTypeAnthropics,
		"off":        ModelTypeNone,
	}
	for in, want := range cases {
		got, err := ParseModelType(in)
		if err != nil || got != want {
			t.Fatalf("ParseModelType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}
