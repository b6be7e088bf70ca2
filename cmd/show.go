package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

var showCmd = &cobra.Command{
	Use:   "show <tag>",
	Short: "Show the archived conversation for a session",
	Long:  `Show the most recently synced conversation for a session tag from the archive.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := args[0]

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		msgs, err := a.archive.Get(tag)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s (%d messages)", tag, len(msgs))))
		for i := range msgs {
			printMessage(out, &msgs[i])
		}
		return nil
	},
}

func printMessage(out io.Writer, m *message.Message) {
	label := userStyle.Render("user")
	if m.Role == message.RoleAssistant {
		label = assistantStyle.Render("assistant")
	}

	switch m.Type {
	case message.TypeToolUse:
		fmt.Fprintf(out, "%s %s\n", label, toolStyle.Render(fmt.Sprintf("[tool: %s]", m.Call.Name)))
	case message.TypeToolResult:
		content := m.Result.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Fprintf(out, "%s %s %s\n", label, toolStyle.Render(fmt.Sprintf("[result: %s]", m.Result.Name)), content)
	default:
		fmt.Fprintf(out, "%s %s\n", label, m.Text)
	}
	if !m.Timestamp.IsZero() {
		fmt.Fprintf(out, "  %s\n", dateStyle.Render(m.Timestamp.Format("2006-01-02 15:04:05")))
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}
