package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testrecords"
)

var (
	makeForce  bool
	makeCommit bool
	makeOnly   bool
)

var makeCmd = &cobra.Command{
	Use:   "make <doctype>",
	Short: "Create test records for a doctype and its dependencies",
	Long: `
Create the test records of a doctype after those of every doctype it links
to, directly or through child tables. Doctypes already recorded in the
site's .test_log are reused rather than created again.

Use --only to skip dependencies and --force to ignore the log and attempt
every record again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := context.Background()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := rt.close(ctx, err == nil); err == nil {
				err = closeErr
			}
		}()

		doctype := args[0]
		opts := testrecords.Options{Force: makeForce, Commit: makeCommit, CommitBeforeLog: true}

		if makeOnly {
			names, err := rt.generator.MakeTestRecordsForDocType(ctx, doctype, opts)
			if err != nil {
				return err
			}
			color.Green("✅ %s: %d record(s)", doctype, len(names))
			for _, name := range names {
				fmt.Printf("   • %s\n", name)
			}
			rt.printOutcomes()
			return nil
		}

		color.Cyan("🌱 Making test records for %s...", doctype)
		counts, err := rt.generator.MakeTestRecords(ctx, doctype, opts)
		printCounts(counts)
		if err != nil {
			return err
		}

		color.Green("✅ Done")
		rt.printOutcomes()
		return nil
	},
}

func printCounts(counts []testrecords.TypeCount) {
	if len(counts) == 0 {
		color.Yellow("⚠️  Nothing to do, every doctype was already visited")
		return
	}

	order := make([]string, len(counts))
	for i, c := range counts {
		order[i] = c.DocType
	}
	color.Cyan("📋 Creation order: %s", strings.Join(order, " → "))
	for _, c := range counts {
		fmt.Printf("   %-30s %d\n", c.DocType, c.Count)
	}
}

func init() {
	makeCmd.Flags().BoolVar(&makeForce, "force", false, "Ignore the test log and attempt every record again")
	makeCmd.Flags().BoolVar(&makeCommit, "commit", false, "Commit after every created record")
	makeCmd.Flags().BoolVar(&makeOnly, "only", false, "Create records for this doctype only, skipping dependencies")
	rootCmd.AddCommand(makeCmd)
}
