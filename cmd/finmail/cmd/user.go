package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"finmail/internal/db"
	"finmail/internal/models"
	"finmail/internal/security"
)

var (
	userName     string
	userEmail    string
	userPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage dashboard users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user who can sign in to the dashboard",
	Long: `Create a user. The password is taken from --password or, when that is
empty, from FINMAIL_USER_PASSWORD so it stays out of shell history.`,
	Example: `  FINMAIL_USER_PASSWORD=s3cret-pass finmail user add --username admin --email admin@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := userPassword
		if password == "" {
			password = os.Getenv("FINMAIL_USER_PASSWORD")
		}
		in := models.RegisterInput{Username: userName, Email: userEmail, Password: password}
		if err := validator.New(validator.WithRequiredStructEnabled()).Struct(in); err != nil {
			return fmt.Errorf("invalid user: %w", err)
		}

		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()

		auth, err := security.NewAuthenticator(database, security.NewBcryptVerifier(0))
		if err != nil {
			return err
		}
		user, err := auth.Register(cmd.Context(), in)
		var verr *db.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		logger.Info("user created", "id", user.ID, "username", user.Username)
		fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userName, "username", "", "login name")
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "password (default: $FINMAIL_USER_PASSWORD)")
	_ = userAddCmd.MarkFlagRequired("username")
	_ = userAddCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
