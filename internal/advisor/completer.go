package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/angelmondragon/asarum-backend/pkg/config"
)

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one conversation turn.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Completer produces the next model turn for a conversation.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []Message) (string, error)
}

// ErrCompleterDisabled is returned when no model credentials are configured.
var ErrCompleterDisabled = errors.New("advisor completer not configured")

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiCompleter calls the Gemini API.
type GeminiCompleter struct {
	models      contentGenerator
	model       string
	temperature float32
}

// NewGeminiCompleter builds a completer from config. It returns a disabled
// completer when no API key is set.
func NewGeminiCompleter(ctx context.Context, cfg config.AdvisorConfig) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return DisabledCompleter{}, nil
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("advisor model is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newGeminiCompleter(client.Models, cfg.Model, cfg.Temperature), nil
}

func newGeminiCompleter(models contentGenerator, model string, temperature float32) *GeminiCompleter {
	return &GeminiCompleter{models: models, model: model, temperature: temperature}
}

func (g *GeminiCompleter) Complete(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		contents = append(contents, &genai.Content{
			Role:  string(m.Role),
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}
	temperature := g.temperature
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	})
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// DisabledCompleter always fails, so the service answers with its fallback text.
type DisabledCompleter struct{}

func (DisabledCompleter) Complete(context.Context, string, []Message) (string, error) {
	return "", ErrCompleterDisabled
}
