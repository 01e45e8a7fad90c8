package bot

import "context"

// TextFormat selects how the chat platform interprets message text
type TextFormat int

const (
	FormatPlain TextFormat = iota
	FormatHTML
)

// Action is an interactive affordance attached to a message. Exactly one of Data and URL is set: Data actions come
// back as selection updates, URL actions open a link.
type Action struct {
	Label string
	Data  string
	URL   string
}

// OutgoingText is a text message to send
type OutgoingText struct {
	Text    string
	Format  TextFormat
	Actions []Action
}

// MessageRef identifies a message previously sent by the bot
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Messenger delivers messages to the chat platform
type Messenger interface {
	SendText(ctx context.Context, chatID int64, msg OutgoingText) (MessageRef, error)
	SendImage(ctx context.Context, chatID int64, path string) error
	EditText(ctx context.Context, ref MessageRef, text string, format TextFormat) error
	Delete(ctx context.Context, ref MessageRef) error
	SendTyping(ctx context.Context, chatID int64) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// sendWithFallback sends msg, retrying once as plain text if the platform rejects it. Rich text rejections (e.g.
// unbalanced HTML generated by the model) are never surfaced to the user.
func sendWithFallback(ctx context.Context, messenger Messenger, chatID int64, msg OutgoingText) error {
	_, err := messenger.SendText(ctx, chatID, msg)
	if err == nil || msg.Format == FormatPlain {
		return err
	}
	msg.Format = FormatPlain
	_, err = messenger.SendText(ctx, chatID, msg)
	return err
}
