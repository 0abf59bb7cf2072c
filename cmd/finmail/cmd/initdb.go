package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database schema",
	Long: `Create every table and index finmail needs. Safe to run more than once;
existing tables are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()

		users, err := database.CountUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}

		logger.Info("database initialized", "driver", database.Driver())
		fmt.Printf("Database: %s (%s)\n", cfg.Database.DSN, database.Driver())
		fmt.Printf("  Users: %d\n", users)
		if users == 0 {
			fmt.Println("\nNo users yet. Create one with: finmail user add --username <name> --email <addr>")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
