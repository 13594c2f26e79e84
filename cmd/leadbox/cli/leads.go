package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadbox/leadbox/internal/export"
	"github.com/leadbox/leadbox/internal/model"
)

func newLeadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Inspect captured leads",
		Long:  "List and export leads straight from the database, without the web dashboard.",
	}

	cmd.AddCommand(newLeadsListCmd())
	cmd.AddCommand(newLeadsExportCmd())

	return cmd
}

// ---------- leads list ----------

func newLeadsListCmd() *cobra.Command {
	var (
		search     string
		status     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads, newest first",
		Example: `  leadbox leads list
  leadbox leads list --search 555
  leadbox leads list --status new --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeadsList(cmd.Context(), cmd.OutOrStdout(), search, model.Status(status), jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive match on name, phone or message")
	cmd.Flags().StringVar(&status, "status", "", "Only show leads with this status (new or contacted)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output leads as JSON")

	return cmd
}

func runLeadsList(ctx context.Context, out io.Writer, search string, status model.Status, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if status != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q (use new or contacted)", status)
	}

	s, err := loadStoreSettings()
	if err != nil {
		return err
	}
	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer st.Close()

	all, err := st.ListLeads(ctx, model.LeadFilter{Search: search})
	if err != nil {
		return err
	}
	leads := make([]model.Lead, 0, len(all))
	for _, lead := range all {
		if status == "" || lead.Status == status {
			leads = append(leads, lead)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(leads)
	}

	if len(leads) == 0 {
		fmt.Fprintln(out, "No leads found.")
		return nil
	}

	fmt.Fprintf(out, "%-6s %-20s %-16s %-10s %-19s %s\n", "ID", "NAME", "PHONE", "STATUS", "CREATED", "MESSAGE")
	fmt.Fprintf(out, "%-6s %-20s %-16s %-10s %-19s %s\n", "--", "----", "-----", "------", "-------", "-------")
	for _, l := range leads {
		fmt.Fprintf(out, "%-6d %-20s %-16s %-10s %-19s %s\n",
			l.ID, truncate(l.Name, 20), truncate(l.Phone, 16), l.Status,
			l.CreatedAt.UTC().Format(export.TimeFormat), truncate(l.Message, 40))
	}
	return nil
}

// ---------- leads export ----------

func newLeadsExportCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every lead as CSV",
		Example: `  leadbox leads export                 # CSV to stdout
  leadbox leads export -o leads.csv
  leadbox leads export -o -            # explicit stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeadsExport(cmd.Context(), cmd.OutOrStdout(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write CSV to file instead of stdout (use 'auto' for a timestamped name)")

	return cmd
}

func runLeadsExport(ctx context.Context, out io.Writer, outputFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := loadStoreSettings()
	if err != nil {
		return err
	}
	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer st.Close()

	leads, err := st.ListLeads(ctx, model.LeadFilter{})
	if err != nil {
		return err
	}

	data, err := export.CSV(leads)
	if errors.Is(err, export.ErrNoData) {
		fmt.Fprintln(os.Stderr, "No leads to export.")
		return nil
	}
	if err != nil {
		return err
	}

	switch outputFile {
	case "", "-":
		_, err = out.Write(data)
		return err
	case "auto":
		outputFile = export.Filename(time.Now())
	}
	if err := os.WriteFile(outputFile, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", outputFile, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d leads to %s\n", len(leads), outputFile)
	return nil
}
