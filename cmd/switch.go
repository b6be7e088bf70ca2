package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

var switchSession string

var switchCmd = &cobra.Command{
	Use:   "switch <provider>",
	Short: "Move the conversation to another provider",
	Long: `Move the conversation to the given provider (claude or gemini).
The provider being left gets a final save when it needs one, and the
provider being entered is caught up by a directional sync before you
continue there.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := message.Provider(args[0])
		if target != message.ProviderClaude && target != message.ProviderGemini {
			return fmt.Errorf("unknown provider %q (expected claude or gemini)", args[0])
		}
		if switchSession == "" {
			return fmt.Errorf("a session tag is required (use --session)")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if err := a.manager.Initialize(ctx); err != nil {
			return err
		}
		if err := a.manager.AttachSession(switchSession); err != nil {
			return err
		}
		if err := a.manager.SwitchProvider(ctx, target); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Session %q is now on %s\n", switchSession, target)
		return nil
	},
}

func init() {
	switchCmd.Flags().StringVarP(&switchSession, "session", "s", "", "Session tag to switch")
	rootCmd.AddCommand(switchCmd)
}
