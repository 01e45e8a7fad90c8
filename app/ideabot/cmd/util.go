package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/oauth2"

	"github.com/vibecode/ideabot/internal/ai"
	"github.com/vibecode/ideabot/internal/config"
	"github.com/vibecode/ideabot/internal/telemetry"
	"github.com/vibecode/ideabot/internal/transport"
)

func setupContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		logger.Info("Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		logger.Fatal("Forcing shutdown")
	}()

	return ctx
}

func createCompleter(systemPrompt string) (ai.Completer, error) {
	loggingTransport := transport.WithRequestLogging(nil, logger.Named("llm"))

	switch cfg.Provider {
	case config.ProviderAnthropic:
		client := anthropic.NewClient(
			option.WithHTTPClient(&http.Client{Transport: loggingTransport}),
			option.WithAPIKey(cfg.AnthropicAPIKey),
		)
		return ai.NewAnthropicClient(client, ai.AnthropicConfig{
			Model:        cfg.Model,
			Temperature:  cfg.Temperature,
			MaxTokens:    int64(cfg.MaxTokens),
			Timeout:      cfg.Timeout,
			SystemPrompt: systemPrompt,
		}), nil

	case config.ProviderOpenRouter:
		tokenSource := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.OpenRouterAPIKey},
		)
		httpClient := &http.Client{
			Transport: &oauth2.Transport{Source: tokenSource, Base: loggingTransport},
		}
		return ai.NewOpenRouterClient(httpClient, ai.OpenRouterConfig{
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			Timeout:      cfg.Timeout,
			SystemPrompt: systemPrompt,
		}), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider '%s'", cfg.Provider)
	}
}

func createTelemetryProvider(ctx context.Context) (*telemetry.Provider, error) {
	telemetryConfig := telemetry.Config{
		Enabled:        cfg.TelemetryEnabled,
		Endpoint:       cfg.OTLPEndpoint,
		ServiceVersion: version,
	}
	return telemetry.NewProvider(ctx, telemetryConfig)
}
