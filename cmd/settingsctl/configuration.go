package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/tenant-settings/pkg/config"
)

// configurationCmd represents the configuration command
var configurationCmd = &cobra.Command{
	Use:   "configuration",
	Short: "Inspect the settings server configuration",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'configuration' requires a subcommand (show, check)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

// configurationShowCmd represents the configuration show command
var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration attributes and their sources",
	Long: `Show configuration attributes and their sources.

Each attribute is listed with its value and where it came from: the
built-in default, the configuration file or the environment.

Example:
  settingsctl configuration show
  settingsctl configuration show --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		cfg, err := config.Load()
		exitOnError("Failed to load configuration", err)

		switch output {
		case "json":
			out, err := cfg.FormatJSON()
			exitOnError("Failed to format configuration", err)
			fmt.Println(out)
		case "text", "":
			fmt.Print(cfg.FormatText())
		default:
			exitOnError("Invalid output format", fmt.Errorf("%q is not one of text, json", output))
		}
	},
}

var configurationCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and required environment",
	Run: func(cmd *cobra.Command, args []string) {
		_, err := loadConfig()
		exitOnError("Configuration is invalid", err)
		if os.Getenv("DATABASE_URL") == "" {
			exitOnError("Configuration is invalid", fmt.Errorf("DATABASE_URL is not set"))
		}
		_, err = loadCodec()
		exitOnError("Configuration is invalid", err)
		fmt.Println("Configuration is valid.")
	},
}

func init() {
	rootCmd.AddCommand(configurationCmd)
	configurationCmd.AddCommand(configurationShowCmd)
	configurationCmd.AddCommand(configurationCheckCmd)
	configurationShowCmd.Flags().StringP("output", "o", "text", "Output format (text, json)")
}
