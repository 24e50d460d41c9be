package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonicsv/sonicsv-go"
	"github.com/sonicsv/sonicsv-go/iodriver"
)

var benchLZ4 bool

var benchCmd = &cobra.Command{
	Use:   "bench [file]",
	Short: "Measure parse throughput for a file",
	Long: `Run the parser over a file and report elapsed time, throughput
in MB/s, and rows/s.

Example:
  sonicsv bench data.csv
  sonicsv bench --lz4 data.csv.lz4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("stat %s: %w", filePath, err)
		}

		p, err := sonicsv.NewParser(sonicsv.DefaultOptions())
		if err != nil {
			return fmt.Errorf("creating parser: %w", err)
		}

		start := time.Now()
		if err := iodriver.ReadFile(p, filePath, iodriver.Config{LZ4: benchLZ4}); err != nil {
			return fmt.Errorf("parsing %s: %w", filePath, err)
		}
		elapsed := time.Since(start)

		stats := p.Stats()
		mbPerSec := float64(info.Size()) / elapsed.Seconds() / (1024 * 1024)
		rowsPerSec := float64(stats.RowsParsed) / elapsed.Seconds()

		fmt.Printf("File: %s\n", filePath)
		fmt.Printf("  Size: %.2f MB\n", float64(info.Size())/(1024*1024))
		fmt.Printf("  Rows: %d\n", stats.RowsParsed)
		fmt.Printf("  Fields: %d\n", stats.FieldsParsed)
		fmt.Printf("  Time: %v\n", elapsed)
		fmt.Printf("  Speed: %.2f MB/s\n", mbPerSec)
		fmt.Printf("  Rows/s: %.0f\n", rowsPerSec)
		fmt.Printf("  Internal throughput: %.2f MB/s\n", stats.Throughput/(1024*1024))
		fmt.Printf("  Peak buffer memory: %d bytes\n", stats.PeakMemory)
		fmt.Printf("  Carryover stashes: %d\n", stats.PerfCounters.CarryoverStashes)
		fmt.Printf("  Accumulated fields: %d\n", stats.PerfCounters.AccumulatedFields)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().BoolVar(&benchLZ4, "lz4", false, "Treat the input as LZ4-compressed")
}
