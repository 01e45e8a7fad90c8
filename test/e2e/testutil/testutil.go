//go:build e2e

package testutil

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/oauth2"

	"github.com/vibecode/ideabot/internal/ai"
	"github.com/vibecode/ideabot/internal/content"
	"github.com/vibecode/ideabot/internal/transport"
)

// TestConfig holds configuration for end-to-end tests
type TestConfig struct {
	Provider      string
	Model         string
	Iterations    int
	Timeout       time.Duration
	OpenRouterKey string
	AnthropicKey  string
}

// LoadTestConfig loads test configuration from environment variables
func LoadTestConfig() TestConfig {
	config := TestConfig{
		Provider:   "openrouter",
		Iterations: 3,
		Timeout:    ai.DefaultTimeout,
	}

	if provider := os.Getenv("E2E_PROVIDER"); provider != "" {
		config.Provider = provider
	}
	config.Model = os.Getenv("E2E_MODEL")

	if iterations := os.Getenv("E2E_ITERATIONS"); iterations != "" {
		if val, err := strconv.Atoi(iterations); err == nil {
			config.Iterations = val
		}
	}

	if timeout := os.Getenv("E2E_TIMEOUT"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil {
			config.Timeout = time.Duration(val) * time.Second
		}
	}

	config.OpenRouterKey = os.Getenv("OPENROUTER_API_KEY")
	config.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")

	return config
}

// TestHarness provides utilities for end-to-end testing against a live model
type TestHarness struct {
	t         *testing.T
	config    TestConfig
	completer ai.Completer
	content   *content.Content
}

// NewTestHarness creates a completer for the configured provider with the built-in system prompt
func NewTestHarness(t *testing.T) *TestHarness {
	config := LoadTestConfig()

	systemPrompt, err := ai.LoadSystemPrompt("")
	require.NoError(t, err)
	copyText, err := content.Default()
	require.NoError(t, err)

	loggingTransport := transport.WithRequestLogging(nil, zaptest.NewLogger(t))

	var completer ai.Completer
	switch config.Provider {
	case "anthropic":
		require.NotEmpty(t, config.AnthropicKey, "ANTHROPIC_API_KEY environment variable is required for e2e tests")
		client := anthropic.NewClient(
			option.WithHTTPClient(&http.Client{Transport: loggingTransport}),
			option.WithAPIKey(config.AnthropicKey),
		)
		completer = ai.NewAnthropicClient(client, ai.AnthropicConfig{
			Model:        config.Model,
			Temperature:  ai.DefaultTemperature,
			Timeout:      config.Timeout,
			SystemPrompt: systemPrompt,
		})
	default:
		require.NotEmpty(t, config.OpenRouterKey, "OPENROUTER_API_KEY environment variable is required for e2e tests")
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: config.OpenRouterKey},
		)
		httpClient := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: loggingTransport}}
		completer = ai.NewOpenRouterClient(httpClient, ai.OpenRouterConfig{
			Model:        config.Model,
			Temperature:  ai.DefaultTemperature,
			Timeout:      config.Timeout,
			SystemPrompt: systemPrompt,
		})
	}

	return &TestHarness{
		t:         t,
		config:    config,
		completer: completer,
		content:   copyText,
	}
}

// Config returns the test configuration
func (h *TestHarness) Config() TestConfig {
	return h.config
}

// Completer returns the live completer
func (h *TestHarness) Completer() ai.Completer {
	return h.completer
}

// Content returns the built-in bot copy
func (h *TestHarness) Content() *content.Content {
	return h.content
}

// RunIterations runs a test function multiple times and reports results
func (h *TestHarness) RunIterations(testName string, testFunc func(iteration int) error) {
	h.t.Helper()

	successCount := 0
	var lastError error

	for i := 0; i < h.config.Iterations; i++ {
		h.t.Logf("Running iteration %d/%d of %s", i+1, h.config.Iterations, testName)

		err := testFunc(i)
		if err != nil {
			h.t.Logf("Iteration %d failed: %v", i+1, err)
			lastError = err
		} else {
			successCount++
			h.t.Logf("Iteration %d succeeded", i+1)
		}
	}

	h.t.Logf("Test %s: %d/%d iterations succeeded", testName, successCount, h.config.Iterations)

	// Model output varies between runs, so require a 2/3 success rate
	minSuccessCount := (h.config.Iterations*2 + 2) / 3
	if successCount < minSuccessCount {
		require.NoErrorf(h.t, lastError, "Test %s failed with %d/%d successes (minimum %d required)",
			testName, successCount, h.config.Iterations, minSuccessCount)
	}
}

// WithTimeout runs a function with the configured timeout
func (h *TestHarness) WithTimeout(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	return fn(ctx)
}
