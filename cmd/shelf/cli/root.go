package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	dataDir string
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelf",
		Short: "A small product catalog with an admin API",
		Long: `Shelf: a self-contained product catalog service.

Shelf serves a public storefront and REST API backed by SQLite, PostgreSQL,
or MySQL. Admins manage products (including image uploads) through a
JWT-protected API and a built-in admin console. An MCP server exposes the
catalog as tools for AI agents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./shelf.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the database and uploads (default: ~/.shelf)")

	cobra.OnInitialize(initConfig)

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newMCPCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("shelf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.shelf")
	}

	viper.SetEnvPrefix("SHELF")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
