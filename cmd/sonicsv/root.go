package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sonicsv",
	Short: "Stream, validate, and benchmark CSV/TSV files",
	Long: `sonicsv is a command-line front end for the sonicsv streaming
CSV/TSV parser: parse a file and print its rows, validate a file's
structure, or benchmark parse throughput.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
