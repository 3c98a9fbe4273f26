package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "settingsctl",
	Short: "Operate the tenant settings service",
	Long: `settingsctl runs the tenant settings server and administers its database:
migrations, tenants, settings documents, global defaults and data keys.

Configuration is read from $SETTINGS_CONFIG_PATH/settings.yml and the
environment; a .env file in the working directory is loaded first.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional
		_ = godotenv.Load()
	},
}

// exitOnError reports err and exits when it is non-nil.
func exitOnError(what string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
