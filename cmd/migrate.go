package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rent-billing/internal/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|steps N|version]",
	Short: "Apply or roll back database migrations",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		// The migrator owns this handle and closes it.
		db, err := openDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		m, err := migration.New(db, logger)
		if err != nil {
			_ = db.Close()
			return err
		}
		defer m.Close()

		switch args[0] {
		case "up":
			return m.Up()
		case "down":
			return m.Down()
		case "steps":
			if len(args) != 2 {
				return fmt.Errorf("migrate steps: missing count")
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("migrate steps: %w", err)
			}
			return m.Steps(n)
		case "version":
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		default:
			return fmt.Errorf("migrate: unknown action %q", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
