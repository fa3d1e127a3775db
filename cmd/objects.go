package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testrecords"
)

var (
	objectsFile   string
	objectsForce  bool
	objectsCommit bool
)

var objectsCmd = &cobra.Command{
	Use:   "objects <doctype>",
	Short: "Create an explicit list of records for a doctype",
	Long: `
Create the records listed in --file (YAML or JSON list) for a doctype.
Without --file the doctype's own test_records file is used. Dependencies
are not created.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var records []document.Record
		if objectsFile != "" {
			if records, err = readRecords(objectsFile); err != nil {
				return err
			}
		}

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

		names, err := rt.generator.MakeTestObjects(ctx, args[0], records, testrecords.Options{
			Force:           objectsForce,
			Commit:          objectsCommit,
			CommitBeforeLog: true,
		})
		for _, name := range names {
			fmt.Printf("   • %s\n", name)
		}
		if err != nil {
			return err
		}

		color.Green("✅ %s: %d record(s)", args[0], len(names))
		return nil
	},
}

func readRecords(path string) ([]document.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	records := []document.Record{}
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records file %s: %w", path, err)
	}
	return records, nil
}

func init() {
	objectsCmd.Flags().StringVar(&objectsFile, "file", "", "YAML or JSON file holding a list of records")
	objectsCmd.Flags().BoolVar(&objectsForce, "force", false, "Ignore the test log and attempt every record again")
	objectsCmd.Flags().BoolVar(&objectsCommit, "commit", false, "Commit after every created record")
	rootCmd.AddCommand(objectsCmd)
}
