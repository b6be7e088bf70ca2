package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sunhome243/nexus-cli-sub000/internal/state"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	tagStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	syncedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions and their sync status",
	Long:  `List every known session tag with its provider sessions, message count, and last sync time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		states, err := a.states.ListStates()
		if err != nil {
			return fmt.Errorf("failed to list sync states: %w", err)
		}
		if len(states) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions found. Create one with: nexus create <tag>")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Sessions (%d)", len(states))))

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TAG\tACTIVE\tSTATUS\tMESSAGES\tLAST SYNC")
		for _, st := range states {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				tagStyle.Render(st.SessionTag),
				string(st.ActiveProvider),
				renderStatus(st.Status),
				countStyle.Render(fmt.Sprintf("%d", st.MessageCount)),
				dateStyle.Render(renderTime(st.LastSyncTimestamp)),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		for _, st := range states {
			for p, ps := range st.Providers {
				fmt.Fprintf(out, "  %s %s\n", st.SessionTag,
					idStyle.Render(fmt.Sprintf("%s: %s", p, ps.CurrentSessionID)))
			}
		}
		return nil
	},
}

func renderStatus(status string) string {
	if status == state.StatusSynced {
		return syncedStyle.Render(status)
	}
	return pendingStyle.Render(status)
}

func renderTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}

func init() {
	rootCmd.AddCommand(listCmd)
}
