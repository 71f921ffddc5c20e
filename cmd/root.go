package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rent-billing/internal/config"
	"rent-billing/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "rentbilling",
	Short: "Rent billing and automation engine",
	Long: `rentbilling generates monthly rent invoices, tracks payments and runs
the overdue, late-fee and vacancy sweeps on a schedule.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}
