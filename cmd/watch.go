package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sunhome243/nexus-cli-sub000/internal/logging"
	"github.com/sunhome243/nexus-cli-sub000/internal/syncer"
	"github.com/sunhome243/nexus-cli-sub000/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch provider logs and sync automatically",
	Long: `Watch both providers' conversation directories and run a
directional sync whenever a conversation file changes. Runs until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		onChange := func(path string) {
			dir := syncer.DirectionGeminiToClaude
			if strings.HasPrefix(path, a.cfg.Claude.Root) {
				dir = syncer.DirectionClaudeToGemini
			}

			states, err := a.states.ListStates()
			if err != nil {
				logging.Warn("Failed to list sessions: %v", err)
				return
			}
			for _, st := range states {
				changed, err := a.engine.HasChangesToSync(ctx, st.SessionTag, dir)
				if err != nil || !changed {
					continue
				}
				if _, err := a.engine.SyncSession(ctx, st.SessionTag, dir); err != nil {
					logging.Warn("Auto-sync for %s failed: %v", st.SessionTag, err)
				}
			}
		}

		w, err := watch.New([]string{a.cfg.Claude.Root, a.cfg.Gemini.Root}, onChange)
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s and %s\n", a.cfg.Claude.Root, a.cfg.Gemini.Root)
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
