package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage gateway bearer tokens",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'token' requires a subcommand issue")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <actor>",
	Short: "Issue a bearer token signed with SETTINGS_TOKEN_KEY",
	Long: `Issue a bearer token signed with SETTINGS_TOKEN_KEY.

The token carries the actor as its subject and, with --elevate, the privilege
global writes and tenant administration require.

Example:
  curl -H "Authorization: Bearer $(settingsctl token issue ops@district --elevate)" ...`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		elevate, _ := cmd.Flags().GetBool("elevate")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := loadConfig()
		exitOnError("Failed to issue token", err)
		verifier, err := loadTokenVerifier(cfg)
		exitOnError("Failed to issue token", err)
		if verifier == nil {
			exitOnError("Failed to issue token", fmt.Errorf("%s environment variable is required", tokenKeyEnv))
		}

		privilege := identity.PrivilegeNone
		if elevate {
			privilege = identity.PrivilegeElevate
		}
		token, err := verifier.Sign(args[0], privilege, ttl)
		exitOnError("Failed to issue token", err)
		fmt.Print(token)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenIssueCmd.Flags().Bool("elevate", false, "Grant elevated privilege")
	tokenIssueCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}
