package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonicsv/sonicsv-go"
	"github.com/sonicsv/sonicsv-go/iodriver"
)

var validateStrict bool

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a CSV file's structure",
	Long: `Validate the structure of a CSV file by checking for a
consistent field count across rows and, with --strict, rejecting
malformed quoting instead of recovering from it.

Example:
  sonicsv validate data.csv
  sonicsv validate --strict data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		opts := sonicsv.DefaultOptions()
		opts.Strict = validateStrict

		p, err := sonicsv.NewParser(opts)
		if err != nil {
			return fmt.Errorf("creating parser: %w", err)
		}

		var rowCount int
		var fieldCount int
		var mismatches []string

		p.SetRowCallback(func(row *sonicsv.Row) {
			rowCount++
			if rowCount == 1 {
				fieldCount = len(row.Fields)
				return
			}
			if len(row.Fields) != fieldCount {
				mismatches = append(mismatches, fmt.Sprintf(
					"row %d: expected %d fields, got %d", row.RowNumber, fieldCount, len(row.Fields)))
			}
		})

		if err := iodriver.ReadFile(p, filePath, iodriver.Config{}); err != nil {
			return fmt.Errorf("parsing %s: %w", filePath, err)
		}

		stats := p.Stats()
		fmt.Printf("File: %s\n", filePath)
		fmt.Printf("Rows: %d\n", stats.RowsParsed)
		fmt.Printf("Fields per row: %d\n", fieldCount)

		if len(mismatches) > 0 {
			fmt.Println("\nValidation errors:")
			for _, m := range mismatches {
				fmt.Printf("- %s\n", m)
			}
			return fmt.Errorf("validation failed with %d field-count mismatches", len(mismatches))
		}

		fmt.Println("\nValidation successful: no errors found.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVarP(&validateStrict, "strict", "s", false,
		"Reject malformed quoting instead of recovering from it")
}
