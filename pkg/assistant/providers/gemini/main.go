package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sharpsoft/almosthuman/internal/config"
	"github.com/sharpsoft/almosthuman/pkg/assistant"
	"google.golang.org/api/option"
)

// GeminiProvider completes chats against the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg config.GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini API client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash-latest"
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (gp *GeminiProvider) Complete(ctx context.Context, msgs []assistant.Message) (string, error) {
	if len(msgs) == 0 {
		return "", fmt.Errorf("no messages to complete")
	}

	model := gp.client.GenerativeModel(gp.model)

	// Gemini takes the system prompt and prior turns separately from the
	// message being answered.
	var history []*genai.Content
	for _, m := range msgs[:len(msgs)-1] {
		switch m.Role {
		case assistant.SYSTEM:
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(m.Content)},
			}
		case assistant.ASSISTANT:
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(m.Content)},
			})
		default:
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(m.Content)},
			})
		}
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(msgs[len(msgs)-1].Content))
	if err != nil {
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return out.String(), nil
}

// Close releases the underlying API client.
func (gp *GeminiProvider) Close() error {
	return gp.client.Close()
}
