package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jakubGodula/cyber-toolkit/internal/config"
	"github.com/jakubGodula/cyber-toolkit/internal/pacman"
	"github.com/jakubGodula/cyber-toolkit/internal/provider"
	"github.com/jakubGodula/cyber-toolkit/internal/resolver"
	"github.com/jakubGodula/cyber-toolkit/internal/rolestore"
	"github.com/jakubGodula/cyber-toolkit/internal/sync"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	dryRun    bool
	listTools bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cyber-toolkit",
	Short: "Keep installed security tools in sync with named roles",
	Long: `cyber-toolkit manages collections of security tools ("roles") on Arch-based
systems. Each role is an externally hosted list of package names; adding,
removing or setting roles installs and uninstalls the corresponding packages
through pacman while never removing a package another active role still needs.

The active role set is kept in a local roles file and only advances after the
package operations actually succeeded, so any failed command is safe to retry.`,
	SilenceUsage: true,
}

var addCmd = &cobra.Command{
	Use:     "add <role>...",
	Aliases: []string{"sync"},
	Short:   "Add roles and install their tools",
	Long: `Add activates the given roles on top of the currently active set and
installs the combined tool list of the resulting set. Re-adding an active role
re-fetches its definition, so add doubles as a sync command when a role file
changed upstream.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOperation(sync.OpAdd),
}

var removeCmd = &cobra.Command{
	Use:   "remove <role>...",
	Short: "Remove roles and uninstall their unique tools",
	Long: `Remove deactivates the given roles and uninstalls every tool they required
that no surviving role still needs. Tools shared with an active role are kept.
Removing a role that is not active is a no-op for that role.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOperation(sync.OpRemove),
}

var setCmd = &cobra.Command{
	Use:   "set <role>...",
	Short: "Make the given roles the exact active set",
	Long: `Set transitions the machine to exactly the given roles: tools only the new
set needs are installed, tools only the old set needed are uninstalled, and
tools shared between both sets are left untouched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOperation(sync.OpSetExact),
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the currently active roles",
	RunE:  runCurrent,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the roles the configured source defines",
	Long: `List fetches the role index from the configured source. With --tools, the
tool list of every role is fetched and printed as well; roles that fail to
fetch are reported and the listing continues.`,
	RunE: runList,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cyber-toolkit %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cyber-toolkit/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Mutating command flags
	for _, cmd := range []*cobra.Command{addCmd, removeCmd, setCmd} {
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")
	}

	listCmd.Flags().BoolVar(&listTools, "tools", false, "also fetch and print each role's tool list")

	// Add commands
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

// runOperation builds the RunE func for one role-set operation
func runOperation(op sync.Operation) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := setupSignalHandler()
		defer cancel()

		logger := setupLogger()

		cfg, err := loadConfig(logger)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		prov, err := provider.New(cfg)
		if err != nil {
			return err
		}

		engine := sync.NewEngine(
			rolestore.NewFileStore(cfg.Paths.RolesFile),
			resolver.New(prov, logger),
			pacman.NewShellClient(logger, cfg.Pacman.NoConfirm, cfg.Pacman.UseSudo, cfg.Pacman.PerPackageFallback),
			logger,
			dryRun,
		)

		if err := engine.Run(ctx, op, args); err != nil {
			if errors.Is(err, sync.ErrStateNotPersisted) {
				// Packages already match the new role set; a re-run converges.
				color.Yellow("Warning: %v", err)
				return err
			}
			logger.Error("command failed", "op", string(op), "error", err)
			return err
		}

		return nil
	}
}

func runCurrent(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := rolestore.NewFileStore(cfg.Paths.RolesFile)
	roles, err := store.Load()
	if err != nil {
		return err
	}

	if len(roles) == 0 {
		fmt.Println("No roles are currently active.")
		return nil
	}

	cyan := color.New(color.FgCyan)
	_, _ = cyan.Println("Active roles:")
	for _, role := range roles {
		fmt.Printf("  %s\n", role)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	prov, err := provider.New(cfg)
	if err != nil {
		return err
	}

	roles, err := prov.ListRoles(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch role index: %w", err)
	}

	if len(roles) == 0 {
		fmt.Println("The source defines no roles.")
		return nil
	}

	if !listTools {
		for _, role := range roles {
			fmt.Println(role)
		}
		return nil
	}

	res := resolver.New(prov, logger)
	cyan := color.New(color.FgCyan)

	for _, role := range roles {
		_, _ = cyan.Printf("%s:\n", role)

		// Listing is best-effort per role, unlike sync resolution.
		resolved, err := res.Resolve(ctx, []string{role})
		if err != nil {
			color.Red("  error fetching tool list: %v", err)
			continue
		}

		tools := resolved[role]
		if len(tools) == 0 {
			fmt.Println("  (no tools listed)")
			continue
		}
		for _, tool := range tools {
			fmt.Printf("  %s\n", tool)
		}
	}

	return nil
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	// An explicit --config file must exist.
	if cfgFile != "" {
		logger.Debug("loading configuration", "path", cfgFile)
		return config.Load(cfgFile)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(home, ".config", "cyber-toolkit", "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logger.Debug("no config file found, using defaults", "path", configPath)
		return config.Default()
	}

	logger.Debug("loading configuration", "path", configPath)
	return config.Load(configPath)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
