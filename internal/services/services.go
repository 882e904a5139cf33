package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/donovanmchenry/Chatify/internal/models"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

// Completer produces the next assistant reply for a conversation.
type Completer interface {
	// Complete sends history, oldest first, and returns the provider's reply text.
	Complete(ctx context.Context, history []models.Message) (string, error)

	// Name returns the provider name (e.g., "openai", "anthropic")
	Name() string
}

// NewCompleter builds the [Completer] selected by completion.provider.
//
// A nil client falls back to [http.DefaultClient].
func NewCompleter(cfg *shared.Config, client *http.Client) (Completer, error) {
	if client == nil {
		client = http.DefaultClient
	}

	switch cfg.Completion.Provider {
	case shared.ProviderOpenAI, "":
		return NewOpenAICompleter(cfg.Credentials.OpenAI, cfg.Completion, client)
	case shared.ProviderAnthropic:
		return NewAnthropicCompleter(cfg.Credentials.Anthropic, cfg.Completion, client)
	default:
		return nil, fmt.Errorf("%w: unknown completion provider %q", shared.ErrInvalidConfig, cfg.Completion.Provider)
	}
}
