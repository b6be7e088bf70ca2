package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <tag>",
	Short: "Create a session on every available provider",
	Long: `Create a conversation session for the given tag on every
registered provider. Creation fans out to all providers; one provider
failing does not block the others, and the session exists as long as at
least one provider succeeded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := args[0]

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if err := a.manager.Initialize(ctx); err != nil {
			return err
		}
		result, err := a.manager.CreateSession(ctx, tag)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, t := range a.registry.Types() {
			outcome := result.Providers[t]
			if outcome == nil {
				continue
			}
			if outcome.Err != nil {
				fmt.Fprintf(out, "  %s: failed: %v\n", t, outcome.Err)
			} else {
				fmt.Fprintf(out, "  %s: session %s\n", t, outcome.Info.SessionID)
			}
		}
		if !result.Success {
			return fmt.Errorf("session creation failed on every provider")
		}
		fmt.Fprintf(out, "Created session %q\n", tag)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
