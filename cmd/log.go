package cmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testlog"
)

var logCmd = &cobra.Command{
	Use:   "log [doctype]",
	Short: "Show the test records recorded for the site",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		entries, err := testlog.Open(cfg.SitePath, nil).Load()
		if err != nil {
			return err
		}

		doctypes := make([]string, 0, len(entries))
		for dt := range entries {
			if len(args) == 1 && dt != args[0] {
				continue
			}
			doctypes = append(doctypes, dt)
		}
		sort.Strings(doctypes)

		if len(doctypes) == 0 {
			color.Yellow("⚠️  No test records logged in %s", cfg.LogPath())
			return nil
		}

		for _, dt := range doctypes {
			color.Cyan("%s (%d)", dt, len(entries[dt]))
			for _, name := range entries[dt] {
				fmt.Printf("   • %s\n", name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
