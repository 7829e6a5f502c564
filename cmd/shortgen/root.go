package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/bootstrap"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/config"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
)

var (
	configPath string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:   "shortgen",
	Short: "Generate narrated vertical short videos",
	Long: `shortgen writes, narrates, captions and renders 60 second vertical videos.
Profiles choose where topics come from and how narration is timed:
daily (one themed master video with subtitles per language), trends
(trending topics with fixed captions) and story (six beat stories).`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or config.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load (default .env)")

	rootCmd.AddCommand(dailyCmd, trendsCmd, storyCmd)
	rootCmd.AddCommand(srtCmd, planCmd)
	rootCmd.AddCommand(tokenCmd, dlqCmd)
}

func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := bootstrap.LoadConfig(configPath, envFiles...)
	if err != nil {
		return nil, nil, err
	}
	logger, err := bootstrap.NewLogger(cfg.Logging, "shortgen")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}
