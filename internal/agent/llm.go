package agent

import (
	"context"
	"fmt"

	"hercure/internal/config"
)

// Message is one prior chat turn handed to the model as context.
type Message struct {
	Role    string
	Content string
}

// Generator is the language model contract used by the assistant.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []Message) (string, error)
}

// NewGenerator builds the provider selected by LLM_PROVIDER.
func NewGenerator(cfg *config.Config) (Generator, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case config.ProviderYandex:
		return NewYandex(cfg.YandexOAuthToken, cfg.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
