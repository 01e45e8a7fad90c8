// Package telegram connects the conversation flow to the Telegram Bot API.
package telegram

import (
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultHTTPTimeout bounds every Bot API call. It leaves headroom over the long-poll timeout, so getUpdates is not
// cut short, while a stalled edit or send cannot hold a conversation flow forever.
const DefaultHTTPTimeout = (DefaultPollTimeout + 15) * time.Second

// DefaultHTTPClient is the client used when NewClient is given none
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultHTTPTimeout}
}

// NewClient creates a Bot API client and verifies the token with getMe. An empty endpoint selects the public API;
// otherwise it is a format string taking the token and the method name.
func NewClient(token string, httpClient *http.Client, endpoint string) (*tgbotapi.BotAPI, error) {
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	return api, nil
}
