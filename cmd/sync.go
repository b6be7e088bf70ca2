package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunhome243/nexus-cli-sub000/internal/syncer"
)

var syncDirection string

var syncCmd = &cobra.Command{
	Use:   "sync <tag>",
	Short: "Synchronize a session between providers",
	Long: `Synchronize the conversation for a session tag. By default both
directions run: each provider receives the messages the other gained
since the last sync. Messages are only ever added; history neither
side has already accepted is never removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := args[0]
		dir, err := syncer.ParseDirection(syncDirection)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		changed, err := a.engine.HasChangesToSync(ctx, tag, dir)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintln(cmd.OutOrStdout(), "Already in sync")
			return nil
		}

		report, err := a.engine.SyncSession(ctx, tag, dir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for target, res := range report.Results {
			if res.Err != nil {
				fmt.Fprintf(out, "  -> %s: failed: %v\n", target, res.Err)
			} else if res.Added > 0 {
				fmt.Fprintf(out, "  -> %s: %d message(s) added, %d total\n", target, res.Added, res.MessageCount)
			} else {
				fmt.Fprintf(out, "  -> %s: up to date\n", target)
			}
		}
		if !report.Succeeded() {
			return fmt.Errorf("sync completed with errors; will retry on next run")
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncDirection, "direction", "d", "bidirectional", "Sync direction: bidirectional, claude-to-gemini, gemini-to-claude")
	rootCmd.AddCommand(syncCmd)
}
