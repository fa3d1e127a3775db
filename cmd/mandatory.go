package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testrecords"
)

var mandatoryCmd = &cobra.Command{
	Use:   "mandatory <doctype>",
	Short: "List the fields a test record of a doctype must set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		metas, err := meta.LoadDir(cfg.DoctypesDir)
		if err != nil {
			return fmt.Errorf("failed to load doctypes: %w", err)
		}

		dt, err := metas.Get(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Print(testrecords.FormatMandatoryFields(dt))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mandatoryCmd)
}
