package cli

import (
	"runtime/debug"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leadbox/leadbox/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in newRootCmd, used for the OpenAPI document and MCP server
)

// Execute creates the root command tree and runs it.
func Execute(build BuildInfo) error {
	return newRootCmd(build).Execute()
}

func newRootCmd(build BuildInfo) *cobra.Command {
	build = build.resolve(debug.ReadBuildInfo)
	appVersion = build.Version

	cmd := &cobra.Command{
		Use:   "leadbox",
		Short: "Capture contact-form leads and manage them from a small admin dashboard",
		Long: `Leadbox: a lead-capture web app in one binary.

Visitors submit a name, phone number and message through a rate-limited
contact form. An admin signs in to search, triage, delete and export leads,
and a keyed endpoint emails a CSV backup of every lead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./leadbox.yaml)")
	cmd.PersistentFlags().String("data-dir", "", "directory holding leads.db when using SQLite (default: .)")
	viper.BindPFlag("store.data_dir", cmd.PersistentFlags().Lookup("data-dir"))

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(build))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLeadsCmd())
	cmd.AddCommand(newBackupCmd())
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newMCPCmd())

	return cmd
}

func initConfig() {
	// Existing environment variables win over .env entries.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("leadbox")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.leadbox")
	}

	config.Bind(viper.GetViper())
	viper.ReadInConfig() // Ignore error - config file is optional
}
