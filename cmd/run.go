package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Run one billing job now and print its result",
	Long: `Run one billing job immediately. Jobs:
  generate-monthly-rents, update-overdue-rents,
  calculate-late-fees, cleanup-orphaned-rents`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.runJob(cmd.Context(), strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out, result.String())
		}
		if result.Fatal != nil {
			return result.Fatal
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(runCmd)
}
