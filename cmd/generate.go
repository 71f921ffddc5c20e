package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	billing "rent-billing/internal/billing/domain"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate rent invoices for one owner and period",
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, _ := cmd.Flags().GetString("owner")
		periodLabel, _ := cmd.Flags().GetString("period")
		dueDateValue, _ := cmd.Flags().GetString("due-date")
		if ownerID == "" || periodLabel == "" || dueDateValue == "" {
			return fmt.Errorf("--owner, --period and --due-date are required")
		}
		period, err := billing.ParsePeriod(periodLabel)
		if err != nil {
			return err
		}

		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		dueDate, err := time.ParseInLocation("2006-01-02", dueDateValue, cfg.Location())
		if err != nil {
			return fmt.Errorf("%w: %s", billing.ErrInvalidDueDate, dueDateValue)
		}
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.generator.GenerateForOwner(cmd.Context(), ownerID, period, dueDate)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary.Message)
		for _, item := range summary.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", item.Error())
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().String("owner", "", "owner id")
	generateCmd.Flags().String("period", "", "billing period, YYYY-MM")
	generateCmd.Flags().String("due-date", "", "due date, YYYY-MM-DD")
	rootCmd.AddCommand(generateCmd)
}
