package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig configures an AnthropicClient. Zero values other than Temperature are replaced with defaults.
type AnthropicConfig struct {
	Model        string
	Temperature  float64
	MaxTokens    int64
	Timeout      time.Duration
	SystemPrompt string
}

// AnthropicClient is a Completer backed by the Anthropic Messages API
type AnthropicClient struct {
	client anthropic.Client
	config AnthropicConfig
}

func NewAnthropicClient(client anthropic.Client, config AnthropicConfig) *AnthropicClient {
	if config.Model == "" {
		config.Model = string(anthropic.ModelClaudeSonnet4_0)
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	return &AnthropicClient{
		client: client,
		config: config,
	}
}

func (ac *AnthropicClient) GetResponse(ctx context.Context, userMessage string, history []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ac.config.Timeout)
	defer cancel()

	messageParams := []anthropic.MessageParam{}
	for _, turn := range history {
		block := anthropic.NewTextBlock(turn.Content)
		if turn.Role == RoleAssistant {
			messageParams = append(messageParams, anthropic.NewAssistantMessage(block))
		} else {
			messageParams = append(messageParams, anthropic.NewUserMessage(block))
		}
	}
	messageParams = append(messageParams, anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(ac.config.Model),
		MaxTokens:   ac.config.MaxTokens,
		Temperature: anthropic.Float(ac.config.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: ac.config.SystemPrompt},
		},
		Messages: messageParams,
	}

	response, err := ac.client.Messages.New(ctx, params, anthropt.WithMaxRetries(0))
	if err != nil {
		return "", classifyAnthropicError(err)
	}
	if response.StopReason == "" {
		return "", newMalformedError("message has no stop reason")
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", newMalformedError("message has no text content")
	}
	return text.String(), nil
}

func classifyAnthropicError(err error) *CompletionError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		body := apiErr.RawJSON()
		if body == "" {
			body = apiErr.Error()
		}
		return newStatusError(apiErr.StatusCode, body)
	}
	return classifyTransportError(err)
}
