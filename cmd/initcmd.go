package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sunhome243/nexus-cli-sub000/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long:  `Write the default configuration file and create the state directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}

		cfg := config.Default()
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
			return fmt.Errorf("failed to create state dir: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
