package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vibecode/ideabot/internal/ai"
	"github.com/vibecode/ideabot/internal/bot"
	"github.com/vibecode/ideabot/internal/content"
	"github.com/vibecode/ideabot/internal/dedupe"
	"github.com/vibecode/ideabot/internal/logging"
	"github.com/vibecode/ideabot/internal/task"
	"github.com/vibecode/ideabot/internal/telegram"
)

const (
	// Redelivered updates arrive within seconds of a reconnect
	updateDedupeTTL  = 10 * time.Minute
	updateDedupeSize = 10000

	telemetryShutdownTimeout = 5 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot with long polling",
	Long: `Starts the bot in long-running mode. Any webhook is deleted and pending updates are
dropped first, then updates are polled until the process is interrupted.`,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := setupContext()

	copyText, err := content.Load(cfg.ContentFile)
	if err != nil {
		return fmt.Errorf("failed to load bot copy: %w", err)
	}
	systemPrompt, err := ai.LoadSystemPrompt(cfg.SystemPromptFile)
	if err != nil {
		return err
	}

	telemetryProvider, err := createTelemetryProvider(ctx)
	if err != nil {
		return fmt.Errorf("failed to create telemetry provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down telemetry", zap.Error(err))
		}
	}()

	completer, err := createCompleter(systemPrompt)
	if err != nil {
		return err
	}

	api, err := telegram.NewClient(cfg.TelegramBotToken, nil, "")
	if err != nil {
		return err
	}
	if err := telegram.ClearWebhook(api, true); err != nil {
		return err
	}

	journal, err := logging.OpenJournal(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to open conversation log: %w", err)
	}
	defer journal.Close()

	scheduler := task.NewScheduler(logger)
	// Pending follow-ups are dropped on shutdown
	defer scheduler.Close()

	seen := dedupe.New[int](updateDedupeTTL, updateDedupeSize, time.Minute)
	defer seen.Close()

	b, err := bot.New(bot.Dependencies{
		Completer: completer,
		History:   ai.NewMemoryHistoryStore(cfg.HistoryLimit),
		Messenger: telegram.NewMessenger(api, telegram.NewLimiter(cfg.TelegramRateLimit)),
		Scheduler: scheduler,
		Content:   copyText,
		Journal:   journal,
		Logger:    logger.Named("bot"),
		Tracer:    telemetryProvider.Tracer(),
	}, bot.Options{
		LiveStreamURL:          cfg.LiveStreamURL,
		UpsellImagePath:        cfg.UpsellImagePath,
		ThinkingInterval:       cfg.ThinkingInterval,
		FollowUpDelay:          cfg.FollowUpDelay,
		SerializeConversations: cfg.SerializeConversations,
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot started",
		zap.String("username", api.Self.UserName),
		zap.String("provider", cfg.Provider),
		zap.Bool("serialize_conversations", cfg.SerializeConversations),
		zap.Duration("follow_up_delay", cfg.FollowUpDelay),
	)

	poller := telegram.NewPoller(api, seen, logger.Named("poller"))
	updates := make(chan bot.Update)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(updates)
		return poller.Run(gctx, updates)
	})
	g.Go(func() error {
		return b.Run(gctx, updates)
	})

	err = g.Wait()
	logger.Info("Bot stopped", zap.Int("pending_follow_ups", scheduler.Pending()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
