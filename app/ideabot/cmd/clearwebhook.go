package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibecode/ideabot/internal/telegram"
)

var keepPending bool

var clearWebhookCmd = &cobra.Command{
	Use:   "clear-webhook",
	Short: "Delete the bot's webhook so polling can take over",
	Long: `Deletes the webhook configured for the bot token and, unless --keep-pending is set,
drops the updates queued for it. Use this when another deployment registered a webhook
and the polling bot receives nothing.`,
	RunE: runClearWebhook,
}

func init() {
	clearWebhookCmd.Flags().BoolVar(&keepPending, "keep-pending", false, "Keep updates queued for the webhook")
	rootCmd.AddCommand(clearWebhookCmd)
}

func runClearWebhook(cmd *cobra.Command, args []string) error {
	if cfg.TelegramBotToken == "" {
		return fmt.Errorf("missing required environment variable: TELEGRAM_BOT_TOKEN")
	}
	api, err := telegram.NewClient(cfg.TelegramBotToken, nil, "")
	if err != nil {
		return err
	}

	before, err := api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("failed to get webhook info: %w", err)
	}
	if before.URL == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Webhook: not set")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Webhook: %s\n", before.URL)
	}

	if err := telegram.ClearWebhook(api, !keepPending); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Webhook deleted")
	return nil
}
