package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Check the configured admin account",
	}

	cmd.AddCommand(newAdminVerifyCmd())

	return cmd
}

// ---------- admin verify ----------

func newAdminVerifyCmd() *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a username and password against the configured admin",
		Example: `  leadbox admin verify --username admin   # prompts for password
  leadbox admin verify --username admin --password secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminVerify(username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Admin username (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runAdminVerify(username, password string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)
	}

	authSvc, err := newAuthService(s)
	if err != nil {
		return err
	}
	if !authSvc.Verify(username, password) {
		return fmt.Errorf("credentials do not match the configured admin")
	}

	fmt.Println("Credentials OK.")
	return nil
}
