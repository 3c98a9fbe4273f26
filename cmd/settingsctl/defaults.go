package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/tenant-settings/pkg/settings"
)

// defaultsCmd represents the defaults command
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Manage global default settings",
	Long: `Manage global default settings from a YAML file mapping settings keys to
documents:

  financial.fees:
    currency: KES
    late_fine: 50
  school.profile:
    motto: Lux`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'defaults' requires a subcommand (apply, watch)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var defaultsApplyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Write a defaults file as the global settings",
	Long: `Write a defaults file as the global settings. The file defaults to the
defaults_file configuration attribute.

Example:
  settingsctl defaults apply defaults.yml
  settingsctl defaults apply --replace defaults.yml`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		replace, _ := cmd.Flags().GetBool("replace")
		ctx := operatorContext(context.Background())

		a, err := openApp(ctx, appOptions{cache: true})
		exitOnError("Failed to apply defaults", err)
		defer a.Close()

		path, err := defaultsPath(args, a.cfg.DefaultsFile)
		exitOnError("Failed to apply defaults", err)

		n, err := applyDefaultsFile(ctx, a.resolver, path, replace)
		if err != nil {
			a.Close()
			exitOnError("Failed to apply defaults", err)
		}
		fmt.Fprintf(os.Stderr, "Applied %d default(s) from %s\n", n, path)
	},
}

var defaultsWatchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Watch a defaults file and apply it whenever it changes",
	Long: `Watch a defaults file and apply it whenever it changes.

The file is applied once on start. Editors that replace the file rather
than writing it in place are handled by watching its directory.

Example:
  settingsctl defaults watch /etc/tenant-settings/defaults.yml`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		replace, _ := cmd.Flags().GetBool("replace")
		exitOnError("Failed to watch defaults", watchDefaults(args, replace))
	},
}

func init() {
	rootCmd.AddCommand(defaultsCmd)
	defaultsCmd.AddCommand(defaultsApplyCmd)
	defaultsCmd.AddCommand(defaultsWatchCmd)

	for _, c := range []*cobra.Command{defaultsApplyCmd, defaultsWatchCmd} {
		c.Flags().Bool("replace", false, "Drop stored fields missing from the file")
	}
}

func defaultsPath(args []string, configured string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if configured == "" {
		return "", fmt.Errorf("no defaults file given and defaults_file is not configured")
	}
	return configured, nil
}

func applyDefaultsFile(ctx context.Context, resolver *settings.Resolver, path string, replace bool) (int, error) {
	d, err := settings.LoadDefaultsFile(path)
	if err != nil {
		return 0, err
	}
	return resolver.ApplyDefaults(ctx, d, replace)
}

func watchDefaults(args []string, replace bool) error {
	ctx := operatorContext(context.Background())
	a, err := openApp(ctx, appOptions{cache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	path, err := defaultsPath(args, a.cfg.DefaultsFile)
	if err != nil {
		return err
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return err
	}

	apply := func() {
		n, err := applyDefaultsFile(ctx, a.resolver, path, replace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error applying defaults: %v\n", err)
			return
		}
		fmt.Printf("[%s] Applied %d default(s) from %s\n", time.Now().Format(time.RFC3339), n, path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	fmt.Printf("Watching %s for changes\n", path)
	apply()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				apply()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		}
	}
}
