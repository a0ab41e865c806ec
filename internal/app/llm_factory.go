package app

import (
	"context"
	"fmt"

	"github.com/sharpsoft/almosthuman/internal/config"
	"github.com/sharpsoft/almosthuman/pkg/Logger"
	"github.com/sharpsoft/almosthuman/pkg/assistant"
	"github.com/sharpsoft/almosthuman/pkg/assistant/providers/gemini"
	"github.com/sharpsoft/almosthuman/pkg/assistant/providers/ollama"
	"github.com/sharpsoft/almosthuman/pkg/assistant/providers/openai"
)

// newProvider picks the conversational-model provider from configuration.
func newProvider(cfg *config.Settings, logger *Logger.Logger) (assistant.Provider, error) {
	switch cfg.Assistant.Provider {
	case "", "ollama":
		return ollama.New(cfg.Assistant.Ollama, logger), nil
	case "openai":
		return openai.New(cfg.Assistant.OpenAI)
	case "gemini":
		return gemini.New(context.Background(), cfg.Assistant.Gemini)
	default:
		return nil, fmt.Errorf("unknown assistant provider %q", cfg.Assistant.Provider)
	}
}
