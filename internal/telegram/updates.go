package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vibecode/ideabot/internal/bot"
	"github.com/vibecode/ideabot/internal/dedupe"
)

const (
	// DefaultPollTimeout is the long-poll timeout in seconds
	DefaultPollTimeout = 60

	startCommand = "start"
)

// UpdateSource delivers raw updates by long polling
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller converts Bot API updates into conversation updates. Updates redelivered after a reconnect are dropped.
type Poller struct {
	source  UpdateSource
	seen    *dedupe.Cache[int]
	logger  *zap.Logger
	timeout int
}

func NewPoller(source UpdateSource, seen *dedupe.Cache[int], logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source:  source,
		seen:    seen,
		logger:  logger,
		timeout: DefaultPollTimeout,
	}
}

// Run forwards updates to out until ctx is cancelled or the source stops
func (p *Poller) Run(ctx context.Context, out chan<- bot.Update) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = p.timeout
	config.AllowedUpdates = []string{"message", "callback_query"}

	updates := p.source.GetUpdatesChan(config)
	defer p.source.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-updates:
			if !ok {
				return nil
			}
			if p.seen != nil && p.seen.Seen(raw.UpdateID) {
				p.logger.Debug("Dropping duplicate update", zap.Int("update_id", raw.UpdateID))
				continue
			}
			update, ok := ConvertUpdate(raw)
			if !ok {
				p.logger.Debug("Ignoring unsupported update", zap.Int("update_id", raw.UpdateID))
				continue
			}
			select {
			case out <- update:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// ConvertUpdate maps a Bot API update to a conversation update. Only text messages and callback queries are
// supported. The start command resets the conversation; any other command is passed on as text.
func ConvertUpdate(raw tgbotapi.Update) (bot.Update, bool) {
	switch {
	case raw.Message != nil:
		msg := raw.Message
		if msg.Text == "" || msg.Chat == nil {
			return bot.Update{}, false
		}
		update := bot.Update{
			ID:     raw.UpdateID,
			Kind:   bot.UpdateText,
			ChatID: msg.Chat.ID,
			User:   convertUser(msg.From),
			Text:   msg.Text,
		}
		if msg.IsCommand() && msg.Command() == startCommand {
			update.Kind = bot.UpdateStart
		}
		return update, true

	case raw.CallbackQuery != nil:
		query := raw.CallbackQuery
		update := bot.Update{
			ID:         raw.UpdateID,
			Kind:       bot.UpdateSelection,
			User:       convertUser(query.From),
			CallbackID: query.ID,
			Data:       query.Data,
		}
		switch {
		case query.Message != nil && query.Message.Chat != nil:
			update.ChatID = query.Message.Chat.ID
		case query.From != nil:
			update.ChatID = query.From.ID
		default:
			return bot.Update{}, false
		}
		return update, true
	}
	return bot.Update{}, false
}

func convertUser(u *tgbotapi.User) bot.User {
	if u == nil {
		return bot.User{}
	}
	return bot.User{ID: u.ID, Username: u.UserName}
}
