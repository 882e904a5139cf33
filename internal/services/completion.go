// Completion provider implementations of [Completer]
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"

	"github.com/donovanmchenry/Chatify/internal/models"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

const (
	defaultOpenAIModel    = "gpt-3.5-turbo"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	defaultMaxTokens      = 1024
)

// OpenAICompleter implements [Completer] with the OpenAI chat completions API.
type OpenAICompleter struct {
	client       openai.Client
	model        string
	maxTokens    int
	systemPrompt string
}

// NewOpenAICompleter creates a completer for the OpenAI API (or any compatible endpoint via base_url).
func NewOpenAICompleter(creds shared.APIKeyConfig, cfg shared.CompletionConfig, client *http.Client) (*OpenAICompleter, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key", shared.ErrMissingCredentials)
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(creds.APIKey),
		openaioption.WithHTTPClient(client),
		openaioption.WithMaxRetries(0),
	}
	if creds.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(creds.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAICompleter{
		client:       openai.NewClient(opts...),
		model:        model,
		maxTokens:    cfg.MaxTokens,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

func (c *OpenAICompleter) Name() string {
	return shared.ProviderOpenAI
}

// Complete sends the full history as chat messages and returns the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, history []models.Message) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if c.systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(c.systemPrompt))
	}
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: openai chat: %v", shared.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", shared.ErrUpstream)
	}

	return resp.Choices[0].Message.Content, nil
}

// AnthropicCompleter implements [Completer] with the Anthropic Messages API.
type AnthropicCompleter struct {
	client       anthropic.Client
	model        string
	maxTokens    int
	systemPrompt string
}

// NewAnthropicCompleter creates a completer for the Anthropic API.
func NewAnthropicCompleter(creds shared.APIKeyConfig, cfg shared.CompletionConfig, client *http.Client) (*AnthropicCompleter, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic api key", shared.ErrMissingCredentials)
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(creds.APIKey),
		anthropicoption.WithHTTPClient(client),
		anthropicoption.WithMaxRetries(0),
	}
	if creds.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(creds.BaseURL))
	}

	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultAnthropicModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicCompleter{
		client:       anthropic.NewClient(opts...),
		model:        model,
		maxTokens:    maxTokens,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

func (c *AnthropicCompleter) Name() string {
	return shared.ProviderAnthropic
}

// Complete sends the full history as messages and concatenates the text blocks of the reply.
func (c *AnthropicCompleter) Complete(ctx context.Context, history []models.Message) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case models.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		Messages:  messages,
		MaxTokens: int64(c.maxTokens),
	}
	if c.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.systemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic chat: %v", shared.ErrUpstream, err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if reply.Len() == 0 {
		return "", fmt.Errorf("%w: anthropic returned no text", shared.ErrUpstream)
	}

	return reply.String(), nil
}
