package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vibecode/ideabot/internal/config"
	"github.com/vibecode/ideabot/internal/logging"
)

var (
	cfg    = config.Default()
	logger = zap.NewNop()

	verbose    bool
	consoleLog bool
)

var rootCmd = &cobra.Command{
	Use:   "ideabot",
	Short: "Telegram bot that suggests vibe-coding project ideas",
	Long: `ideabot relays chat messages to an LLM that suggests small projects the user can
build without a programmer, and follows idea lists up with an invitation to the course.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRootConfig,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func loadRootConfig(_ *cobra.Command, _ []string) error {
	var err error
	logger, err = logging.NewLogger(verbose, consoleLog)
	if err != nil {
		return err
	}

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&consoleLog, "console-log", false, "Log in human-readable form instead of JSON")
}
