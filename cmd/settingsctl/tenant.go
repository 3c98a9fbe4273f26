package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/tenant-settings/pkg/audit"
	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

// tenantCmd represents the tenant command
var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenants",
	Long:  `Create, list and delete the tenants settings can be overridden for.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'tenant' requires a subcommand (create, list, delete)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create <id>",
	Short: "Create a tenant",
	Long: `Create a tenant.

Example:
  settingsctl tenant create school-a --name "School A"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		exitOnError("Failed to create tenant", createTenant(args[0], name))
		fmt.Fprintf(os.Stderr, "Created tenant '%s'\n", args[0])
	},
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError("Failed to list tenants", listTenants())
	},
}

var tenantDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a tenant and all of its overrides",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError("Failed to delete tenant", deleteTenant(args[0]))
		fmt.Fprintf(os.Stderr, "Deleted tenant '%s'\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantCreateCmd)
	tenantCmd.AddCommand(tenantListCmd)
	tenantCmd.AddCommand(tenantDeleteCmd)

	tenantCreateCmd.Flags().StringP("name", "n", "", "Display name (default: the id)")
}

func tenantEvent(ctx context.Context, id, op string, err error) audit.TenantEvent {
	ev := audit.TenantEvent{
		Actor:     identity.Actor(ctx),
		TenantID:  id,
		Operation: op,
		Success:   err == nil,
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}
	return ev
}

func createTenant(id, name string) error {
	if !tenant.ValidID(id) {
		return tenant.ErrInvalidTenantID
	}
	if name == "" {
		name = id
	}

	ctx := operatorContext(context.Background())
	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.tenants.CreateTenant(ctx, &model.Tenant{ID: id, Name: name})
	audit.Log(tenantEvent(ctx, id, "create", err))
	return err
}

func listTenants() error {
	ctx := context.Background()
	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	tenants, err := a.tenants.ListTenants(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED")
	for _, t := range tenants {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func deleteTenant(id string) error {
	ctx := operatorContext(context.Background())
	a, err := openApp(ctx, appOptions{cache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.tenants.DeleteTenant(ctx, id)
	audit.Log(tenantEvent(ctx, id, "delete", err))
	if err != nil {
		return err
	}
	return a.resolver.ForgetTenant(ctx, id)
}
