package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var orderCmd = &cobra.Command{
	Use:   "order <doctype>",
	Short: "Show the order records would be created in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.close(ctx, false)

		order, err := rt.generator.Plan(ctx, args[0])
		if err != nil {
			return err
		}

		color.Cyan("📋 Creation order: %s", strings.Join(order, " → "))
		for i, dt := range order {
			deps, err := rt.generator.Dependencies(ctx, dt)
			if err != nil {
				return err
			}
			if len(deps) == 0 {
				fmt.Printf("   %2d. %s\n", i+1, dt)
				continue
			}
			fmt.Printf("   %2d. %-30s needs %s\n", i+1, dt, strings.Join(deps, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(orderCmd)
}
