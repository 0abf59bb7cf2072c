package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsMonths int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		database, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		now := time.Now()
		m, err := database.DashboardMetrics(ctx, now)
		if err != nil {
			return fmt.Errorf("get metrics: %w", err)
		}
		users, err := database.CountUsers(ctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		volume, err := database.MonthlyVolume(ctx, now, statsMonths)
		if err != nil {
			return fmt.Errorf("get volume: %w", err)
		}

		fmt.Printf("Database: %s (%s)\n", cfg.Database.DSN, database.Driver())
		fmt.Printf("  Emails:          %s\n", humanize.Comma(m.TotalEmails))
		fmt.Printf("  Uncategorized:   %s\n", humanize.Comma(m.UncategorizedEmails))
		fmt.Printf("  Attachments:     %s\n", humanize.Comma(m.TotalDocuments))
		fmt.Printf("  Users:           %s\n", humanize.Comma(users))
		fmt.Printf("  Expenses (%s): %s\n", now.Format("Jan"), humanize.FormatFloat("#,###.##", m.MonthlyExpenses))
		fmt.Println()
		fmt.Println("Monthly volume:")
		for _, v := range volume {
			fmt.Printf("  %s  %8s emails  %12s\n", v.Month, humanize.Comma(v.Emails), humanize.FormatFloat("#,###.##", v.Amount))
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsMonths, "months", 6, "months of volume history to show (1-24)")
	rootCmd.AddCommand(statsCmd)
}
