package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/presbrey/ollamafarm"
	"github.com/sharpsoft/almosthuman/internal/config"
	"github.com/sharpsoft/almosthuman/pkg/Logger"
	"github.com/sharpsoft/almosthuman/pkg/assistant"
)

// OllamaProvider completes chats against a farm of Ollama servers, picking
// the first one online per call.
type OllamaProvider struct {
	farm   *ollamafarm.Farm
	model  string
	logger *Logger.Logger
}

func New(cfg config.OllamaConfig, logger *Logger.Logger) *OllamaProvider {
	farm := ollamafarm.New()
	for _, serverURL := range cfg.URLs {
		if err := farm.RegisterURL(serverURL, nil); err != nil {
			logger.Errorf("failed to register ollama server %s: %v", serverURL, err)
		}
	}

	return &OllamaProvider{
		farm:   farm,
		model:  cfg.Model,
		logger: logger,
	}
}

func (o *OllamaProvider) Complete(ctx context.Context, msgs []assistant.Message) (string, error) {
	client := o.farm.First(&ollamafarm.Where{Offline: false})
	if client == nil {
		return "", fmt.Errorf("no ollama server online for model %s", o.model)
	}

	stream := false
	req := api.ChatRequest{
		Model:    o.model,
		Messages: toAPIMessages(msgs),
		Stream:   &stream,
	}

	var out strings.Builder
	err := client.Client().Chat(ctx, &req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	return out.String(), nil
}

func toAPIMessages(msgs []assistant.Message) []api.Message {
	out := make([]api.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, api.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
