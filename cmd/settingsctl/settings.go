package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and write settings documents",
	Long: `Read and write settings documents.

Without --tenant, commands address the global default of a key.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'settings' requires a subcommand (keys, get, set, reset)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List registered settings keys",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(context.Background(), appOptions{})
		exitOnError("Failed to list keys", err)
		defer a.Close()
		for _, key := range a.resolver.Keys() {
			fmt.Println(key)
		}
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective document of a key",
	Long: `Print the effective document of a key: the tenant override merged over
the global default, or the global default alone without --tenant.

Example:
  settingsctl settings get financial.fees --tenant school-a`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tenantID, _ := cmd.Flags().GetString("tenant")
		exitOnError("Failed to get setting", getSetting(cmd.OutOrStdout(), args[0], tenantID))
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <json|->",
	Short: "Write fields of a settings document",
	Long: `Write fields of a settings document. The document is a JSON object given
inline or on stdin with "-". Fields are merged into the stored override
unless --replace is set.

Example:
  settingsctl settings set financial.fees '{"currency":"KES"}'
  echo '{"late_fine":null}' | settingsctl settings set financial.fees - --tenant school-a`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		tenantID, _ := cmd.Flags().GetString("tenant")
		replace, _ := cmd.Flags().GetBool("replace")

		doc, err := parseDocument(args[1], cmd.InOrStdin())
		exitOnError("Invalid document", err)
		exitOnError("Failed to set setting", setSetting(cmd.OutOrStdout(), args[0], tenantID, doc, replace))
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Remove the override of a key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tenantID, _ := cmd.Flags().GetString("tenant")
		existed, err := resetSetting(args[0], tenantID)
		exitOnError("Failed to reset setting", err)
		if !existed {
			fmt.Fprintln(os.Stderr, "No override was stored")
		}
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)

	for _, c := range []*cobra.Command{settingsGetCmd, settingsSetCmd, settingsResetCmd} {
		c.Flags().StringP("tenant", "t", "", "Tenant id (default: the global scope)")
	}
	settingsSetCmd.Flags().Bool("replace", false, "Replace the stored document instead of merging")
}

// scopeFor is the global scope for an empty id and the tenant scope
// otherwise.
func scopeFor(tenantID string) (model.Scope, error) {
	if tenantID == "" {
		return model.GlobalScope(), nil
	}
	if !tenant.ValidID(tenantID) {
		return model.Scope{}, fmt.Errorf("%w: %q", tenant.ErrInvalidTenantID, tenantID)
	}
	return model.TenantScope(tenantID), nil
}

// parseDocument decodes a JSON object from arg, or from stdin when arg is
// "-".
func parseDocument(arg string, stdin io.Reader) (model.Document, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return nil, err
		}
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("must be a JSON object: %w", err)
	}
	if doc == nil {
		doc = model.Document{}
	}
	return doc, nil
}

func printDocument(w io.Writer, doc model.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func getSetting(w io.Writer, key, tenantID string) error {
	owner, err := scopeFor(tenantID)
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.resolver.ResolveScope(ctx, key, owner)
	if err != nil {
		return err
	}
	return printDocument(w, doc)
}

func setSetting(w io.Writer, key, tenantID string, doc model.Document, replace bool) error {
	owner, err := scopeFor(tenantID)
	if err != nil {
		return err
	}
	ctx := operatorContext(context.Background())
	a, err := openApp(ctx, appOptions{cache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var stored model.Document
	if replace {
		stored, err = a.resolver.ReplaceScope(ctx, key, owner, doc)
	} else {
		stored, err = a.resolver.PersistScope(ctx, key, owner, doc)
	}
	if err != nil {
		return err
	}
	return printDocument(w, stored)
}

func resetSetting(key, tenantID string) (bool, error) {
	owner, err := scopeFor(tenantID)
	if err != nil {
		return false, err
	}
	ctx := operatorContext(context.Background())
	a, err := openApp(ctx, appOptions{cache: true})
	if err != nil {
		return false, err
	}
	defer a.Close()

	return a.resolver.Reset(ctx, key, owner)
}
