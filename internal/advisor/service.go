package advisor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/asarum-backend/internal/catalog"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

const (
	maxMessageRunes = 2000
	maxHistoryTurns = 30
)

type productLister interface {
	ListAll(ctx context.Context) ([]catalog.ProductDTO, error)
}

type seasonReader interface {
	CurrentSeason(ctx context.Context) (enums.Season, error)
}

// ReplyInput is the prior conversation plus the customer's new message.
type ReplyInput struct {
	History []Message
	Message string
}

// Reply is the advisor's answer. Fallback marks canned replies.
type Reply struct {
	Reply    string `json:"reply"`
	Fallback bool   `json:"fallback"`
}

// Service answers storefront chat messages.
type Service interface {
	Reply(ctx context.Context, input ReplyInput) (*Reply, error)
}

type service struct {
	completer Completer
	products  productLister
	seasons   seasonReader
	logg      *logger.Logger
}

func NewService(completer Completer, products productLister, seasons seasonReader, logg *logger.Logger) (Service, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lister required")
	}
	if seasons == nil {
		return nil, fmt.Errorf("season reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{completer: completer, products: products, seasons: seasons, logg: logg}, nil
}

// Reply resends the whole conversation with a freshly built system prompt.
// Model failures never surface as errors; the customer gets a fallback reply.
func (s *service) Reply(ctx context.Context, input ReplyInput) (*Reply, error) {
	history, err := normalizeConversation(input)
	if err != nil {
		return nil, err
	}

	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	season, err := s.seasons.CurrentSeason(ctx)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"turns":  len(history),
		"season": season,
	})
	text, err := s.completer.Complete(ctx, BuildSystemPrompt(products, season), history)
	if err != nil {
		s.logg.Error(logCtx, "advisor completion failed", err)
		return &Reply{Reply: FallbackUnavailable, Fallback: true}, nil
	}
	if strings.TrimSpace(text) == "" {
		s.logg.Warn(logCtx, "advisor returned empty reply")
		return &Reply{Reply: FallbackEmpty, Fallback: true}, nil
	}
	return &Reply{Reply: text}, nil
}

func normalizeConversation(input ReplyInput) ([]Message, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("message exceeds %d characters", maxMessageRunes))
	}

	history := make([]Message, 0, len(input.History)+1)
	for i, m := range input.History {
		if m.Role != RoleUser && m.Role != RoleModel {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("history[%d].role must be user or model", i))
		}
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		history = append(history, m)
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	return append(history, Message{Role: RoleUser, Text: message}), nil
}
