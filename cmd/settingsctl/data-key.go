package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/tenant-settings/pkg/secrets"
)

// dataKeyCmd represents the data-key command
var dataKeyCmd = &cobra.Command{
	Use:   "data-key",
	Short: "Manage the data encryption key",
	Long:  `Manage the data encryption key`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'data-key' requires a subcommand generate")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

// dataKeyGenerateCmd represents the data-key > generate command
var dataKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a data encryption key",
	Long: `
Generate a data encryption key

Use this command to generate a new Base64-encoded 256 bit data encryption key.
Once generated, place it in the environment of the settings server. It
encrypts every secret field stored in the database.

To rotate, move the current key into SETTINGS_PREVIOUS_DATA_KEYS, set the new
one as SETTINGS_DATA_KEY and run "settingsctl secrets rotate".

Example:

$ export SETTINGS_DATA_KEY="$(settingsctl data-key generate)"
`,
	Run: func(cmd *cobra.Command, args []string) {
		bytes, err := secrets.RandomBytes(secrets.KeySize)
		exitOnError("Failed to generate key", err)
		fmt.Printf("%s", base64.StdEncoding.Strict().EncodeToString(bytes))
	},
}

func init() {
	rootCmd.AddCommand(dataKeyCmd)
	dataKeyCmd.AddCommand(dataKeyGenerateCmd)
}
