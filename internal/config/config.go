// Package config provides configuration management for the ideabot bot.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/vibecode/ideabot/internal/ai"
)

// LLM providers
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

const (
	DefaultLiveStreamURL     = "https://www.youtube.com/live/iOnk4zozyw8?si=qByw0py3KYdjAIji"
	DefaultUpsellImagePath   = "assets/vibes_image.jpg"
	DefaultLogDir            = "logs"
	DefaultTelegramRateLimit = 25.0 // Requests per second, below the platform's global limit
	DefaultThinkingInterval  = 3 * time.Second
	DefaultFollowUpDelay     = time.Hour
)

// Config holds the configuration for the bot
type Config struct {
	// Required secrets
	TelegramBotToken string
	OpenRouterAPIKey string
	AnthropicAPIKey  string

	// LLM
	Provider         string
	Model            string // Empty selects the provider's default
	BaseURL          string // OpenRouter only
	Timeout          time.Duration
	Temperature      float64
	MaxTokens        int
	SystemPromptFile string

	// Conversation flow
	LiveStreamURL          string
	HistoryLimit           int
	ThinkingInterval       time.Duration
	FollowUpDelay          time.Duration
	UpsellImagePath        string
	ContentFile            string
	SerializeConversations bool

	// Operations
	LogDir            string
	TelegramRateLimit float64

	// Telemetry config
	TelemetryEnabled bool
	OTLPEndpoint     string
}

// Default returns the configuration used for every unset variable
func Default() Config {
	return Config{
		Provider:          ProviderOpenRouter,
		Timeout:           ai.DefaultTimeout,
		Temperature:       ai.DefaultTemperature,
		MaxTokens:         ai.DefaultMaxTokens,
		LiveStreamURL:     DefaultLiveStreamURL,
		HistoryLimit:      ai.DefaultHistoryLimit,
		ThinkingInterval:  DefaultThinkingInterval,
		FollowUpDelay:     DefaultFollowUpDelay,
		UpsellImagePath:   DefaultUpsellImagePath,
		LogDir:            DefaultLogDir,
		TelegramRateLimit: DefaultTelegramRateLimit,
	}
}

// Load loads configuration from environment variables. Unset variables keep their defaults; malformed values are
// reported together.
func Load() (Config, error) {
	c := Default()
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	loadFromEnv(&c.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	loadFromEnv(&c.OpenRouterAPIKey, "OPENROUTER_API_KEY")
	loadFromEnv(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")

	loadFromEnv(&c.Provider, "LLM_PROVIDER")
	loadFromEnv(&c.Model, "LLM_MODEL")
	loadFromEnv(&c.BaseURL, "LLM_BASE_URL")
	collect(parseFromEnv(&c.Timeout, "LLM_TIMEOUT", time.ParseDuration))
	collect(parseFromEnv(&c.Temperature, "LLM_TEMPERATURE", parseFloat))
	collect(parseFromEnv(&c.MaxTokens, "LLM_MAX_TOKENS", strconv.Atoi))
	loadFromEnv(&c.SystemPromptFile, "SYSTEM_PROMPT_FILE")

	loadFromEnv(&c.LiveStreamURL, "LIVE_STREAM_URL")
	collect(parseFromEnv(&c.HistoryLimit, "HISTORY_LIMIT", strconv.Atoi))
	collect(parseFromEnv(&c.ThinkingInterval, "THINKING_INTERVAL", time.ParseDuration))
	collect(parseFromEnv(&c.FollowUpDelay, "FOLLOW_UP_DELAY", time.ParseDuration))
	loadFromEnv(&c.UpsellImagePath, "UPSELL_IMAGE_PATH")
	loadFromEnv(&c.ContentFile, "CONTENT_FILE")
	collect(parseFromEnv(&c.SerializeConversations, "SERIALIZE_CONVERSATIONS", strconv.ParseBool))

	loadFromEnv(&c.LogDir, "LOG_DIR")
	collect(parseFromEnv(&c.TelegramRateLimit, "TELEGRAM_RATE_LIMIT", parseFloat))

	collect(parseFromEnv(&c.TelemetryEnabled, "TELEMETRY_ENABLED", strconv.ParseBool))
	loadFromEnv(&c.OTLPEndpoint, "OTLP_ENDPOINT")

	return c, errors.Join(errs...)
}

// Validate checks that the required configuration is present and the values are usable
func (c Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("missing required environment variable: TELEGRAM_BOT_TOKEN")
	}
	switch c.Provider {
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("missing required environment variable: OPENROUTER_API_KEY")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("missing required environment variable: ANTHROPIC_API_KEY")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q, expected %q or %q", c.Provider, ProviderOpenRouter, ProviderAnthropic)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.Temperature < 0 {
		return fmt.Errorf("LLM_TEMPERATURE must not be negative")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if c.HistoryLimit <= 0 || c.HistoryLimit%2 != 0 {
		return fmt.Errorf("HISTORY_LIMIT must be a positive even number")
	}
	if c.ThinkingInterval <= 0 || c.FollowUpDelay <= 0 {
		return fmt.Errorf("THINKING_INTERVAL and FOLLOW_UP_DELAY must be positive")
	}
	if c.TelegramRateLimit <= 0 {
		return fmt.Errorf("TELEGRAM_RATE_LIMIT must be positive")
	}
	return nil
}

func loadFromEnv(dest *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dest = v
	}
}

// parseFromEnv leaves dest untouched if key is unset
func parseFromEnv[T any](dest *T, key string, parseFn func(string) (T, error)) error {
	str := os.Getenv(key)
	if str == "" {
		return nil
	}
	v, err := parseFn(str)
	if err != nil {
		return fmt.Errorf("failed to parse environment variable '%s' value '%s' as '%T': %w", key, str, *dest, err)
	}
	*dest = v
	return nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
