package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"

	"whatsapp-dashboard/internal/models"
)

const maxHistoryTurns = 5

// Turn is one prior exchange in a conversation, oldest first.
type Turn struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// GenerationError marks a provider failure. Callers treat it as
// recoverable: skip the auto-response, keep the ingested message.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("ai generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator produces replies through an OpenAI-compatible
// chat-completions endpoint.
type Generator struct {
	client       *openai.Client
	defaultModel string
}

func NewGenerator(baseURL, apiKey, defaultModel string) *Generator {
	var options []option.RequestOption
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		options = append(options, option.WithAPIKey(apiKey))
	}

	client := openai.NewClient(options...)
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &Generator{client: &client, defaultModel: defaultModel}
}

// GenerateReply answers message given the most recent conversation
// turns and the tenant's assistant config. History beyond the last
// five turns is dropped.
func (g *Generator) GenerateReply(ctx context.Context, message string, history []Turn, cfg *AssistantConfig) (string, error) {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt(cfg)),
	}
	for _, turn := range history {
		if turn.Role == RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(turn.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(turn.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(message))

	model := g.defaultModel
	temperature := 0.7
	maxTokens := 500
	if cfg != nil {
		if cfg.Profile.Model != "" {
			model = cfg.Profile.Model
		}
		if cfg.Profile.Temperature > 0 {
			temperature = cfg.Profile.Temperature
		}
		if cfg.Profile.MaxTokens > 0 {
			maxTokens = cfg.Profile.MaxTokens
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    msgs,
		Model:       model,
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Err: errors.New("provider returned no choices")}
	}

	return resp.Choices[0].Message.Content, nil
}

// Roles used in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// RoleForDirection maps a stored message direction onto a history role.
func RoleForDirection(direction string) string {
	if direction == models.DirectionOutbound {
		return RoleAssistant
	}
	return RoleUser
}

func systemPrompt(cfg *AssistantConfig) string {
	name := "Assistant"
	role := "a helpful customer support assistant"
	tone := "friendly"
	language := "the customer's language"

	if cfg != nil {
		if cfg.Profile.SystemPrompt != "" {
			return cfg.Profile.SystemPrompt
		}
		if cfg.Profile.AgentName != "" {
			name = cfg.Profile.AgentName
		}
		if cfg.Profile.AgentRole != "" {
			role = cfg.Profile.AgentRole
		}
		if cfg.Tone != "" {
			tone = cfg.Tone
		}
		if cfg.Language != "" {
			language = cfg.Language
		}
	}

	prompt := fmt.Sprintf("You are %s, %s.", name, role)
	if cfg != nil && cfg.Profile.BusinessDescription != "" {
		prompt += fmt.Sprintf(" You represent: %s.", cfg.Profile.BusinessDescription)
	}
	prompt += fmt.Sprintf(" Respond in a %s tone, in %s. Keep replies short enough for a chat message.", tone, language)
	return prompt
}
