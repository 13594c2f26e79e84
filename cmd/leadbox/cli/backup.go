package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadbox/leadbox/internal/backup"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Email lead backups",
	}

	cmd.AddCommand(newBackupSendCmd())

	return cmd
}

func newBackupSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Email a CSV backup of every lead now",
		Long: `Build a CSV of every lead and email it to the configured recipient, waiting
for the provider's answer. Nothing is sent when there are no leads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupSend(cmd.Context())
		},
	}

	return cmd
}

func runBackupSend(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := loadSettings()
	if err != nil {
		return err
	}
	logger := newLogger(s.Log, os.Stderr)

	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := newBackupService(s, st, backup.NewRunner(logger), logger)
	outcome, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	switch outcome {
	case backup.OutcomeSkipped:
		fmt.Println("No leads to back up; nothing sent.")
	default:
		fmt.Printf("Backup sent to %s\n", s.Email.To)
	}
	return nil
}
