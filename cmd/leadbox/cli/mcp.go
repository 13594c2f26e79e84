package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	lmcp "github.com/leadbox/leadbox/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes lead listing,
statistics, triage and CSV export as tools. Supports stdio (default) and
HTTP transports.

In stdio mode the server speaks JSON-RPC over stdin/stdout, for clients that
launch leadbox as a subprocess. In HTTP mode it listens on --port.`,
		Example: `  leadbox mcp                              # stdio mode
  leadbox mcp --transport http --port 3001   # Streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	s, err := loadStoreSettings()
	if err != nil {
		return err
	}
	// stdout carries the protocol; logs go to stderr.
	logger := newLogger(s.Log, os.Stderr)

	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer st.Close()

	mcpSrv := lmcp.NewMCPServer(st, versionString(), logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
