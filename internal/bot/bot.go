// Package bot implements the conversation flow of the idea generator: it relays user messages to the completion
// client, animates a placeholder while the model is thinking, and runs the upsell sequence on idea presentations.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/vibecode/ideabot/internal/ai"
	"github.com/vibecode/ideabot/internal/content"
)

// Journal records each exchange and failure as a side channel. It never feeds back into the flow.
type Journal interface {
	Exchange(user User, message, response string)
	Failure(flow string, err error)
}

// Dependencies are the collaborators a Bot is built from
type Dependencies struct {
	Completer ai.Completer
	History   ai.HistoryStore
	Messenger Messenger
	Scheduler Scheduler
	Content   *content.Content
	Journal   Journal
	Logger    *zap.Logger  // Optional
	Tracer    trace.Tracer // Optional
}

// Options tune the flow
type Options struct {
	LiveStreamURL    string
	UpsellImagePath  string
	ThinkingInterval time.Duration
	FollowUpDelay    time.Duration
	// SerializeConversations makes flows of the same conversation run one at a time. When false, two messages of one
	// conversation in flight at once both read the same history, so neither request sees the other's exchange. Both
	// exchanges are still appended.
	SerializeConversations bool
}

// Bot is the application context shared by all conversation flows
type Bot struct {
	completer ai.Completer
	history   ai.HistoryStore
	messenger Messenger
	content   *content.Content
	journal   Journal
	logger    *zap.Logger
	tracer    trace.Tracer
	upsell    *upsell
	options   Options
	locks     *conversationLocks
}

func New(deps Dependencies, options Options) (*Bot, error) {
	if deps.Completer == nil || deps.History == nil || deps.Messenger == nil || deps.Scheduler == nil {
		return nil, fmt.Errorf("completer, history, messenger and scheduler are required")
	}
	if deps.Content == nil {
		return nil, fmt.Errorf("content is required")
	}
	if deps.Journal == nil {
		return nil, fmt.Errorf("journal is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if options.ThinkingInterval <= 0 {
		options.ThinkingInterval = DefaultThinkingInterval
	}
	if options.FollowUpDelay <= 0 {
		options.FollowUpDelay = DefaultFollowUpDelay
	}

	return &Bot{
		completer: deps.Completer,
		history:   deps.History,
		messenger: deps.Messenger,
		content:   deps.Content,
		journal:   deps.Journal,
		logger:    deps.Logger,
		tracer:    deps.Tracer,
		upsell: &upsell{
			messenger:     deps.Messenger,
			scheduler:     deps.Scheduler,
			content:       deps.Content,
			imagePath:     options.UpsellImagePath,
			liveStreamURL: options.LiveStreamURL,
			followUpDelay: options.FollowUpDelay,
		},
		options: options,
		locks:   newConversationLocks(),
	}, nil
}

// Run handles updates until ctx is cancelled or the channel is closed, each in its own goroutine. It waits for
// in-flight flows before returning.
func (b *Bot) Run(ctx context.Context, updates <-chan Update) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate runs the flow for a single update. Failures are reported to the user and the journal, never returned.
func (b *Bot) HandleUpdate(ctx context.Context, update Update) {
	ctx, span := b.tracer.Start(ctx, "bot.handle_update", trace.WithAttributes(
		attribute.Int64("conversation.id", update.ChatID),
		attribute.String("update.kind", update.Kind.String()),
	))
	defer span.End()

	logger := b.logger.With(
		zap.Int("update_id", update.ID),
		zap.Int64("chat_id", update.ChatID),
		zap.Stringer("kind", update.Kind),
	)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while handling update", zap.Any("panic", r))
			span.SetStatus(codes.Error, "panic")
		}
	}()

	switch update.Kind {
	case UpdateStart:
		b.start(ctx, update)
	case UpdateSelection:
		b.selection(ctx, logger, update)
	default:
		b.respond(ctx, logger, update.ChatID, update.User, update.Text)
	}
}

// start resets the conversation and greets the user
func (b *Bot) start(ctx context.Context, update Update) {
	b.history.Reset(update.ChatID)

	msg := OutgoingText{Text: b.content.Welcome, Format: FormatHTML}
	if err := sendWithFallback(ctx, b.messenger, update.ChatID, msg); err != nil {
		b.journal.Failure("start", err)
		return
	}
	b.journal.Exchange(update.User, "/start", b.content.Welcome)
}

// selection turns an idea-selection action into a synthetic user message
func (b *Bot) selection(ctx context.Context, logger *zap.Logger, update Update) {
	if update.CallbackID != "" {
		if err := b.messenger.AnswerCallback(ctx, update.CallbackID); err != nil {
			logger.Warn("Failed to acknowledge selection", zap.Error(err))
		}
	}

	n, ok := parseIdeaSelection(update.Data)
	if !ok {
		logger.Debug("Ignoring unknown action", zap.String("data", update.Data))
		return
	}
	b.respond(ctx, logger, update.ChatID, update.User, b.content.IdeaPrompt(n))
}

// respond runs one completion round trip for a user message
func (b *Bot) respond(ctx context.Context, logger *zap.Logger, chatID int64, user User, text string) {
	if b.options.SerializeConversations {
		unlock := b.locks.Lock(chatID)
		defer unlock()
	}
	// Registered before release, so the placeholder is gone by the time the apology is sent
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in conversation flow", zap.Any("panic", r), zap.Stack("stack"))
			b.fail(ctx, chatID, user, text, "message", fmt.Errorf("panic: %v", r))
		}
	}()

	history := b.history.Get(chatID)

	placeholder, err := b.messenger.SendText(ctx, chatID, OutgoingText{Text: b.content.Thinking.Intro, Format: FormatHTML})
	if err != nil {
		b.fail(ctx, chatID, user, text, "message", fmt.Errorf("failed to send placeholder: %w", err))
		return
	}
	indicator := StartThinking(ctx, b.messenger, placeholder, b.content.Thinking.Phrases, b.options.ThinkingInterval)

	// The indicator must be stopped before the placeholder goes away, on every path
	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			indicator.Stop()
			if err := b.messenger.Delete(context.WithoutCancel(ctx), placeholder); err != nil {
				logger.Debug("Failed to delete placeholder", zap.Error(err))
			}
		})
	}
	defer release()

	if err := b.messenger.SendTyping(ctx, chatID); err != nil {
		logger.Debug("Failed to send typing action", zap.Error(err))
	}

	response, err := b.complete(ctx, chatID, text, history)
	release()
	if err != nil {
		b.fail(ctx, chatID, user, text, "message", err)
		return
	}

	reply := ai.ParseReply(response, b.content.Ideas.Marker)
	logger.Debug("Received reply", zap.Stringer("reply_kind", reply.Kind), zap.Int("length", len(reply.Text)))

	if err := b.dispatch(ctx, chatID, reply); err != nil {
		b.fail(ctx, chatID, user, text, "dispatch", err)
		return
	}

	b.history.Append(chatID, ai.NewUserTurn(text), ai.NewAssistantTurn(response))
	b.journal.Exchange(user, text, response)
}

func (b *Bot) complete(ctx context.Context, chatID int64, text string, history []ai.Turn) (string, error) {
	ctx, span := b.tracer.Start(ctx, "ai.completion", trace.WithAttributes(
		attribute.Int64("conversation.id", chatID),
		attribute.Int("history.length", len(history)),
	))
	defer span.End()

	response, err := b.completer.GetResponse(ctx, text, history)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.kind", string(ai.KindOf(err))))
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	return response, nil
}

func (b *Bot) dispatch(ctx context.Context, chatID int64, reply ai.Reply) error {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("reply.kind", reply.Kind.String()))

	if reply.Kind == ai.ReplyIdeaPresentation {
		return b.upsell.present(ctx, chatID, reply.Text)
	}
	if err := sendWithFallback(ctx, b.messenger, chatID, OutgoingText{Text: reply.Text, Format: FormatHTML}); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// fail reports a flow failure: error log, one apology, and an ERROR entry in the conversation log. History is left
// untouched.
func (b *Bot) fail(ctx context.Context, chatID int64, user User, text string, flow string, err error) {
	trace.SpanFromContext(ctx).SetStatus(codes.Error, err.Error())
	b.journal.Failure(flow, err)
	b.logger.Warn("Conversation flow failed", zap.Int64("chat_id", chatID), zap.String("flow", flow), zap.Error(err))

	// The apology is sent even if the update's context was cancelled mid-flow
	msg := OutgoingText{Text: b.content.Apology, Format: FormatHTML}
	if sendErr := sendWithFallback(context.WithoutCancel(ctx), b.messenger, chatID, msg); sendErr != nil {
		b.logger.Warn("Failed to send apology", zap.Int64("chat_id", chatID), zap.Error(sendErr))
	}

	b.journal.Exchange(user, text, "ERROR: "+err.Error())
}
