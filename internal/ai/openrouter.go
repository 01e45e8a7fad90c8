package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1/"
	DefaultModel             = "stepfun/step-3.5-flash:free"
	DefaultTemperature       = 0.7
	DefaultMaxTokens         = 4000
	DefaultTimeout           = 120 * time.Second

	// maxErrorBodyRead bounds how much of an error response body is read back
	maxErrorBodyRead = 64 * 1024
)

// OpenRouterConfig configures an OpenRouterClient. Zero values other than Temperature are replaced with defaults;
// a zero temperature is sent as-is.
type OpenRouterConfig struct {
	BaseURL      string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	SystemPrompt string
}

// OpenRouterClient talks to the OpenAI-compatible chat completions API of OpenRouter. Authorization is the
// responsibility of the supplied HTTP client's transport.
type OpenRouterClient struct {
	client openai.Client
	config OpenRouterConfig
}

func NewOpenRouterClient(httpClient *http.Client, config OpenRouterConfig) *OpenRouterClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultOpenRouterBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	client := openai.NewClient(
		option.WithBaseURL(config.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
	return &OpenRouterClient{
		client: client,
		config: config,
	}
}

// GetResponse performs a single completion request. Any failure is returned as a *CompletionError; there are no
// retries.
func (c *OpenRouterClient) GetResponse(ctx context.Context, userMessage string, history []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{}
	for _, turn := range buildMessages(c.config.SystemPrompt, userMessage, history) {
		switch turn.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.config.Model),
		Messages:    messages,
		Temperature: openai.Float(c.config.Temperature),
		MaxTokens:   openai.Int(int64(c.config.MaxTokens)),
	}

	// Set once a response arrives, so decoding failures can be told apart from transport failures
	var httpResp *http.Response
	completion, err := c.client.Chat.Completions.New(ctx, params, option.WithResponseInto(&httpResp))
	if err != nil {
		return "", classifyOpenAIError(err, httpResp)
	}
	return firstChoiceContent(completion)
}

// firstChoiceContent extracts the text of the first choice
func firstChoiceContent(completion *openai.ChatCompletion) (string, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return "", newMalformedError("response has no choices")
	}
	message := completion.Choices[0].Message
	if !message.JSON.Content.Valid() {
		return "", newMalformedError("first choice has no message content")
	}
	return message.Content, nil
}

func classifyOpenAIError(err error, httpResp *http.Response) *CompletionError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return newStatusError(apiErr.StatusCode, openAIErrorBody(apiErr))
	}
	ce := classifyTransportError(err)
	if ce.Kind == KindUnknown && httpResp != nil && !errors.Is(err, context.Canceled) {
		return newMalformedError("failed to decode response: %w", err)
	}
	return ce
}

// openAIErrorBody returns the upstream error body, falling back to the error text when the body was not kept
func openAIErrorBody(apiErr *openai.Error) string {
	if raw := apiErr.RawJSON(); raw != "" {
		return raw
	}
	if apiErr.Response != nil && apiErr.Response.Body != nil {
		body, err := io.ReadAll(io.LimitReader(apiErr.Response.Body, maxErrorBodyRead))
		if err == nil && len(body) > 0 {
			return string(body)
		}
	}
	return apiErr.Error()
}
