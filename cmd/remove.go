package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <tag>",
	Short: "Tear down a session",
	Long: `Tear down a session: provider tracking files are cleaned up and
the durable sync state for the tag is removed. Provider conversation
logs themselves are left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := args[0]

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.manager.Teardown(cmd.Context(), tag); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed session %q\n", tag)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
