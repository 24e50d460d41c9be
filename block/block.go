// Package block implements a multithreaded "block parser": it splits a
// large in-memory CSV/TSV blob into roughly chunkSize pieces, ending each
// piece at the first line boundary at or after its target size that is
// guaranteed not to fall inside an open quoted field, and runs one
// sonicsv.Parser per piece concurrently.
//
// This is explicitly a composing layer built on top of the streaming
// core, not part of it: sonicsv.Parser itself has no notion of splitting
// a file into independently-parseable pieces.
package block

import (
	"runtime"
	"sync"

	"github.com/sonicsv/sonicsv-go"
)

// Config controls chunking and parse options for Parse.
type Config struct {
	// ChunkSize is the target size of each chunk; a chunk ends at the first
	// safe boundary at or after it. Zero selects a 4 MiB default.
	ChunkSize int
	// Workers caps concurrent goroutines. Zero selects runtime.NumCPU().
	Workers int
	// Options configures each underlying Parser.
	Options sonicsv.Options
}

func (c Config) chunkSize() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return 4 * 1024 * 1024
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// safeSplitPoints does a single forward pass over data tracking quote
// state (toggling on every unescaped quote byte) and records the offset
// just after every newline encountered while outside a quoted field. Those
// offsets are the only positions a chunk boundary may legally land on: a
// chunk boundary inside an open quoted field would hand each half of that
// field to a different Parser with no way to reassemble it. Rather than
// sampling a prefix window per chunk to guess at ambiguity, this does one
// linear pass over the whole blob so every candidate boundary is actually
// known-safe rather than guessed.
func safeSplitPoints(data []byte, quote byte) []int {
	points := make([]int, 0, len(data)/4096+1)
	inQuote := false
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case quote:
			inQuote = !inQuote
		case '\n':
			if !inQuote {
				points = append(points, i+1)
			}
		}
	}
	if len(points) == 0 || points[len(points)-1] != len(data) {
		points = append(points, len(data))
	}
	return points
}

// splitRanges picks a safe split point at or after each chunkSize-th byte,
// returning the resulting [start, end) byte ranges. Consecutive target
// offsets that land on the same safe point collapse into one range.
func splitRanges(data []byte, chunkSize int, quote byte) [][2]int {
	safe := safeSplitPoints(data, quote)
	var ranges [][2]int
	start := 0
	target := chunkSize
	for _, p := range safe {
		if p <= start {
			continue
		}
		if p >= target || p == len(data) {
			ranges = append(ranges, [2]int{start, p})
			start = p
			target = start + chunkSize
			if start >= len(data) {
				break
			}
		}
	}
	if start < len(data) {
		ranges = append(ranges, [2]int{start, len(data)})
	}
	return ranges
}

// chunkResult collects one worker's rows, preserving the chunk's position
// in the blob so results can be reassembled in file order.
type chunkResult struct {
	index int
	rows  []sonicsv.Row
	err   error
}

// Parse splits data into concurrently-parsed chunks and returns all rows
// in file order. A parse error in any chunk is returned once every worker
// has finished; results from chunks that parsed cleanly are discarded in
// that case, matching sonicsv.Parser's own all-or-nothing ParseBuffer
// error contract.
func Parse(data []byte, cfg Config) ([]sonicsv.Row, error) {
	opts := cfg.Options
	if opts.Quote == 0 {
		opts.Quote = '"'
	}
	ranges := splitRanges(data, cfg.chunkSize(), opts.Quote)
	if len(ranges) == 0 {
		return nil, nil
	}

	work := make(chan int)
	results := make([]chunkResult, len(ranges))

	var wg sync.WaitGroup
	workers := cfg.workers()
	if workers > len(ranges) {
		workers = len(ranges)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = parseChunk(idx, data[ranges[idx][0]:ranges[idx][1]], uint64(ranges[idx][0]), cfg.Options)
			}
		}()
	}
	for i := range ranges {
		work <- i
	}
	close(work)
	wg.Wait()

	var out []sonicsv.Row
	var firstErr error
	for _, r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		out = append(out, r.rows...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	// Each chunk's Parser numbers its own rows starting at 1; renumber
	// across the merged, file-ordered result so RowNumber reflects each
	// row's actual position in the file, the same translation ByteOffset
	// already gets via chunkOffset in parseChunk.
	for i := range out {
		out[i].RowNumber = uint64(i + 1)
	}
	return out, nil
}

func parseChunk(index int, chunk []byte, chunkOffset uint64, opts sonicsv.Options) chunkResult {
	p, err := sonicsv.NewParser(opts)
	if err != nil {
		return chunkResult{index: index, err: err}
	}
	var rows []sonicsv.Row
	p.SetRowCallback(func(row *sonicsv.Row) {
		fields := make([]sonicsv.Field, len(row.Fields))
		for i, f := range row.Fields {
			data := make([]byte, len(f.Data))
			copy(data, f.Data)
			fields[i] = sonicsv.Field{Data: data, Quoted: f.Quoted}
		}
		// Each chunk is parsed by its own Parser starting at stream offset
		// zero; chunkOffset translates that chunk-local offset back to the
		// position within the whole blob.
		rows = append(rows, sonicsv.Row{Fields: fields, RowNumber: row.RowNumber, ByteOffset: chunkOffset + row.ByteOffset})
	})
	if err := p.ParseBuffer(chunk, true); err != nil {
		return chunkResult{index: index, err: err}
	}
	return chunkResult{index: index, rows: rows}
}
