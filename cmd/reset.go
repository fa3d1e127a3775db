package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testlog"
)

var resetLogCmd = &cobra.Command{
	Use:   "reset-log",
	Short: "Forget which test records were created",
	Long: `
Empty the site's .test_log. The next run creates every doctype's test
records again; records already in the database are still skipped by name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := testlog.Reset(cfg.SitePath); err != nil {
			return fmt.Errorf("failed to reset test log: %w", err)
		}

		color.Green("✅ Cleared %s", cfg.LogPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetLogCmd)
}
