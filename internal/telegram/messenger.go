package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/vibecode/ideabot/internal/bot"
)

// API is the subset of the Bot API client used to deliver messages
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger implements bot.Messenger on the Bot API. Every outbound call waits for the rate limiter first.
type Messenger struct {
	api     API
	limiter *rate.Limiter
}

var _ bot.Messenger = (*Messenger)(nil)

// NewLimiter allows perSecond calls per second with bursts of the same size
func NewLimiter(perSecond float64) *rate.Limiter {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// NewMessenger creates a messenger. A nil limiter means no throttling.
func NewMessenger(api API, limiter *rate.Limiter) *Messenger {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Messenger{api: api, limiter: limiter}
}

func (m *Messenger) SendText(ctx context.Context, chatID int64, msg bot.OutgoingText) (bot.MessageRef, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return bot.MessageRef{}, err
	}

	config := tgbotapi.NewMessage(chatID, msg.Text)
	config.ParseMode = parseMode(msg.Format)
	if len(msg.Actions) > 0 {
		config.ReplyMarkup = keyboard(msg.Actions)
	}
	sent, err := m.api.Send(config)
	if err != nil {
		return bot.MessageRef{}, fmt.Errorf("failed to send message: %w", err)
	}
	return bot.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (m *Messenger) SendImage(ctx context.Context, chatID int64, path string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := m.api.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	return nil
}

func (m *Messenger) EditText(ctx context.Context, ref bot.MessageRef, text string, format bot.TextFormat) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	config := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	config.ParseMode = parseMode(format)
	if _, err := m.api.Request(config); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (m *Messenger) Delete(ctx context.Context, ref bot.MessageRef) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (m *Messenger) SendTyping(ctx context.Context, chatID int64) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return fmt.Errorf("failed to send chat action: %w", err)
	}
	return nil
}

func (m *Messenger) AnswerCallback(ctx context.Context, callbackID string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func parseMode(format bot.TextFormat) string {
	if format == bot.FormatHTML {
		return tgbotapi.ModeHTML
	}
	return ""
}

// keyboard lays out actions as an inline keyboard. Consecutive callback buttons share a row; each link button gets a
// row of its own.
func keyboard(actions []bot.Action) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var pending []tgbotapi.InlineKeyboardButton
	flush := func() {
		if len(pending) > 0 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(pending...))
			pending = nil
		}
	}

	for _, action := range actions {
		if action.URL != "" {
			flush()
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(action.Label, action.URL)))
			continue
		}
		pending = append(pending, tgbotapi.NewInlineKeyboardButtonData(action.Label, action.Data))
	}
	flush()

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
