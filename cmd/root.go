package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sunhome243/nexus-cli-sub000/internal/archive"
	"github.com/sunhome243/nexus-cli-sub000/internal/config"
	"github.com/sunhome243/nexus-cli-sub000/internal/logging"
	"github.com/sunhome243/nexus-cli-sub000/internal/provider"
	"github.com/sunhome243/nexus-cli-sub000/internal/provider/claude"
	"github.com/sunhome243/nexus-cli-sub000/internal/provider/gemini"
	"github.com/sunhome243/nexus-cli-sub000/internal/session"
	"github.com/sunhome243/nexus-cli-sub000/internal/state"
	"github.com/sunhome243/nexus-cli-sub000/internal/syncer"
)

var (
	verbose    bool
	configPath string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Keep one conversation in sync across Claude Code and Gemini CLI",
	Long: `nexus lets you hold one continuous conversation while switching
between Claude Code and Gemini CLI. Each backend keeps its own native
conversation log; nexus keeps both logs consistent without ever
rewriting history either side already accepted.

Quick Start:
  nexus init                       # Write the default configuration
  nexus create my-project          # Create a session on every provider
  nexus switch gemini -s my-project  # Move the conversation, syncing as you go
  nexus sync my-project            # Sync both directions on demand
  nexus list                       # Show session sync status`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// app bundles the wired-up components a command needs
type app struct {
	cfg      *config.Config
	states   *state.Store
	registry *provider.Registry
	archive  *archive.Archive
	engine   *syncer.Engine
	manager  *session.Manager
}

// resolveConfigPath honors --config and falls back to the default
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

// newApp loads configuration and wires the providers, state store,
// archive, and orchestrators.
func newApp() (*app, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	states := state.NewStore(cfg.StateDir,
		state.WithLockTimeout(cfg.LockTimeout()),
		state.WithPollInterval(cfg.LockPollInterval()),
	)

	registry := provider.NewRegistry()
	syncDir := filepath.Join(cfg.StateDir, "snapshots")

	claudeHandler := claude.NewHandler(cfg.Claude.Root, syncDir)
	registry.Register(&provider.Registration{
		Type:      provider.Claude,
		Handler:   claudeHandler,
		Lifecycle: claude.NewLifecycle(claudeHandler),
	})

	geminiHandler := gemini.NewHandler(cfg.Gemini.Root, syncDir)
	registry.Register(&provider.Registration{
		Type:      provider.Gemini,
		Handler:   geminiHandler,
		Lifecycle: gemini.NewLifecycle(geminiHandler),
	})

	if err := os.MkdirAll(filepath.Dir(cfg.ArchivePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive dir: %w", err)
	}
	arch, err := archive.Open(cfg.ArchivePath)
	if err != nil {
		return nil, err
	}

	engine := syncer.New(registry, states, arch)
	breaker := session.NewBreaker(cfg.Breaker.Threshold, cfg.BreakerCooldown())
	manager := session.NewManager(registry, states, engine, session.WithBreaker(breaker))

	return &app{
		cfg:      cfg,
		states:   states,
		registry: registry,
		archive:  arch,
		engine:   engine,
		manager:  manager,
	}, nil
}

// Close releases resources held by the app
func (a *app) Close() {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			logging.Warn("Failed to close archive: %v", err)
		}
	}
}
