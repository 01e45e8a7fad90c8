package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibecode/ideabot/internal/telegram"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the bot account, its webhook and queued updates",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if cfg.TelegramBotToken == "" {
		return fmt.Errorf("missing required environment variable: TELEGRAM_BOT_TOKEN")
	}
	api, err := telegram.NewClient(cfg.TelegramBotToken, nil, "")
	if err != nil {
		return err
	}
	status, err := telegram.GetStatus(api)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Bot: @%s (id %d, %s)\n", status.Bot.UserName, status.Bot.ID, status.Bot.FirstName)
	if status.PollingMode() {
		fmt.Fprintln(out, "Webhook: not set (polling mode)")
		fmt.Fprintf(out, "Queued updates: %d\n", status.QueuedUpdates)
	} else {
		fmt.Fprintf(out, "Webhook: %s\n", status.Webhook.URL)
		fmt.Fprintf(out, "Pending updates: %d\n", status.Webhook.PendingUpdateCount)
	}
	if status.Webhook.LastErrorMessage != "" {
		fmt.Fprintf(out, "Last error: %s\n", status.Webhook.LastErrorMessage)
	}
	return nil
}
