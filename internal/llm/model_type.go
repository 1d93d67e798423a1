package llm

import (
	"fmt"
	"strings"
)

type ModelType string

const (
	ModelTypeOpenAI      ModelType = "openai"
	ModelTypeAnthropics  ModelType = "anthropics"
	modelTypeAnthropicV1 ModelType = "anthropic"
	// ModelTypeNone disables narrative analysis; reports go out with the fallback text.
	ModelTypeNone ModelType = "none"
)

func ParseModelType(raw string) (ModelType, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "", string(ModelTypeOpenAI):
		return ModelTypeOpenAI, nil
	case string(ModelTypeAnthropics), string(modelTypeAnthropicV1):
		return ModelTypeAnthropics, nil
	case string(ModelTypeNone), "off", "disabled":
		return ModelTypeNone, nil
	default:
		return "", fmt.Errorf("unsupported model_config.model_type %q (supported: %q, %q, %q)", raw, ModelTypeOpenAI, ModelTypeAnthropics, ModelTypeNone)
	}
}

func defaultModelFor(t ModelType) string {
	switch t {
	case ModelTypeAnthropics:
		return "claude-3-5-haiku-latest"
	default:
		return "gpt-4o-mini"
	}
}
