package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/leadbox/leadbox/internal/store"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"built"`
}

// resolve fills commit and date from the VCS stamp Go embeds in module
// builds when ldflags did not set them.
func (b BuildInfo) resolve(read func() (*debug.BuildInfo, bool)) BuildInfo {
	if b.Version == "" {
		b.Version = "dev"
	}
	if info, ok := read(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.Date == "" {
					b.Date = s.Value
				}
			}
		}
	}
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}

type versionReport struct {
	BuildInfo
	GoVersion string   `json:"go_version"`
	Platform  string   `json:"platform"`
	Drivers   []string `json:"store_drivers"`
}

func newVersionCmd(build BuildInfo) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the leadbox build and supported lead stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := versionReport{
				BuildInfo: build,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
				Drivers:   []string{store.DriverSQLite, store.DriverPostgres, store.DriverMySQL},
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprintf(out, "leadbox %s (%s, built %s)\n", versionString(), report.Commit, report.Date)
			fmt.Fprintf(out, "  %s on %s\n", report.GoVersion, report.Platform)
			fmt.Fprintf(out, "  lead stores: %v\n", report.Drivers)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output build info as JSON")

	return cmd
}
