package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// secretsCmd represents the secrets command
var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage encrypted setting fields",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'secrets' requires a subcommand rotate")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var secretsRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Re-encrypt secret fields under the current data key",
	Long: `Re-encrypt every secret field sealed under a key from
SETTINGS_PREVIOUS_DATA_KEYS with SETTINGS_DATA_KEY.

Run it while no other process writes settings. Once it reports no remaining
rows the previous keys can be removed from the environment.

Example:
  SETTINGS_PREVIOUS_DATA_KEYS="$OLD_KEY" SETTINGS_DATA_KEY="$NEW_KEY" settingsctl secrets rotate`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := operatorContext(context.Background())
		a, err := openApp(ctx, appOptions{cache: true})
		exitOnError("Rotation failed", err)
		defer a.Close()

		report, err := a.resolver.Rotate(ctx)
		if err != nil {
			a.Close()
			exitOnError("Rotation failed", err)
		}
		fmt.Printf("Scanned %d row(s), re-encrypted %d\n", report.Scanned, report.Rotated)
	},
}

func init() {
	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsRotateCmd)
}
