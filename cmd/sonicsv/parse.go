package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sonicsv/sonicsv-go"
	"github.com/sonicsv/sonicsv-go/iodriver"
)

var (
	parseDelimiter string
	parseQuote     string
	parseTrim      bool
	parseStrict    bool
	parseTSV       bool
	parseLZ4       bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse and print a CSV/TSV file's rows",
	Long: `Parse and display the contents of a CSV/TSV file with
customizable delimiter, quote character, and whitespace trimming.

Example:
  sonicsv parse data.csv
  sonicsv parse --delimiter=";" --quote="'" data.csv
  sonicsv parse --tsv data.tsv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		opts := sonicsv.DefaultOptions()
		opts.TrimWhitespace = parseTrim
		opts.Strict = parseStrict
		if parseTSV {
			opts.Mode = sonicsv.ModeTSV
		}
		if parseDelimiter != "" {
			opts.Delimiter = []byte(parseDelimiter)[0]
		}
		if parseQuote != "" {
			opts.Quote = []byte(parseQuote)[0]
		}

		p, err := sonicsv.NewParser(opts)
		if err != nil {
			return fmt.Errorf("creating parser: %w", err)
		}
		p.SetRowCallback(func(row *sonicsv.Row) {
			for i, f := range row.Fields {
				if i > 0 {
					fmt.Print("\t")
				}
				fmt.Print(string(f.Data))
			}
			fmt.Println()
		})
		p.SetErrorCallback(func(kind sonicsv.ErrorKind, message string, rowNumber uint64) {
			fmt.Fprintf(os.Stderr, "row %d: %s\n", rowNumber, message)
		})

		if err := iodriver.ReadFile(p, filePath, iodriver.Config{LZ4: parseLZ4}); err != nil {
			return fmt.Errorf("parsing %s: %w", filePath, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseDelimiter, "delimiter", "d", "", "Field delimiter character (default ',')")
	parseCmd.Flags().StringVarP(&parseQuote, "quote", "q", "", "Quote character (default '\"')")
	parseCmd.Flags().BoolVarP(&parseTrim, "trim", "t", false, "Trim whitespace in unquoted fields")
	parseCmd.Flags().BoolVarP(&parseStrict, "strict", "s", false, "Fail on malformed quoting instead of recovering")
	parseCmd.Flags().BoolVar(&parseTSV, "tsv", false, "Use tab as the delimiter")
	parseCmd.Flags().BoolVar(&parseLZ4, "lz4", false, "Treat the input as LZ4-compressed")
}
