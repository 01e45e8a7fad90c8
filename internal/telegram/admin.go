package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AdminAPI is the subset of the Bot API client used by the operational commands
type AdminAPI interface {
	GetMe() (tgbotapi.User, error)
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Status describes the bot account and how updates reach it
type Status struct {
	Bot     tgbotapi.User
	Webhook tgbotapi.WebhookInfo
	// QueuedUpdates is the number of updates waiting to be polled, or -1 when a webhook is set and polling is not
	// possible
	QueuedUpdates int
}

// PollingMode reports whether updates are delivered by polling rather than a webhook
func (s Status) PollingMode() bool {
	return s.Webhook.URL == ""
}

// GetStatus queries the bot identity, its webhook and whether updates are queued. It does not confirm any update.
func GetStatus(api AdminAPI) (Status, error) {
	me, err := api.GetMe()
	if err != nil {
		return Status{}, fmt.Errorf("failed to get bot info: %w", err)
	}
	webhook, err := api.GetWebhookInfo()
	if err != nil {
		return Status{}, fmt.Errorf("failed to get webhook info: %w", err)
	}

	status := Status{Bot: me, Webhook: webhook, QueuedUpdates: -1}
	if status.PollingMode() {
		config := tgbotapi.NewUpdate(0)
		config.Limit = 1
		updates, err := api.GetUpdates(config)
		if err != nil {
			return Status{}, fmt.Errorf("failed to get updates: %w", err)
		}
		status.QueuedUpdates = len(updates)
	}
	return status, nil
}

// ClearWebhook deletes the bot's webhook so that long polling can take over, optionally discarding queued updates.
// Another instance still polling with the same token will keep competing for updates.
func ClearWebhook(api AdminAPI, dropPending bool) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}
