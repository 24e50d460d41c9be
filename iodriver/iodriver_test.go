package iodriver

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sonicsv/sonicsv-go"
)

func parseAndCollect(t *testing.T, fn func(p *sonicsv.Parser) error) [][]string {
	t.Helper()
	p, err := sonicsv.NewParser(sonicsv.DefaultOptions())
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	var rows [][]string
	p.SetRowCallback(func(row *sonicsv.Row) {
		vals := make([]string, len(row.Fields))
		for i, f := range row.Fields {
			vals[i] = string(append([]byte(nil), f.Data...))
		}
		rows = append(rows, vals)
	})
	if err := fn(p); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return rows
}

// =============================================================================
// TestReadStream - Chunked Reading
// =============================================================================

func TestReadStreamChunked(t *testing.T) {
	data := "a,b,c\n1,2,3\n4,5,6\n"
	for _, chunkSize := range []int{1, 2, 3, 7, 64} {
		t.Run("", func(t *testing.T) {
			rows := parseAndCollect(t, func(p *sonicsv.Parser) error {
				return ReadStream(p, bytes.NewReader([]byte(data)), Config{ChunkSize: chunkSize})
			})
			if len(rows) != 3 {
				t.Fatalf("chunkSize %d: expected 3 rows, got %d: %v", chunkSize, len(rows), rows)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("x,y\n1,2\n3,4\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	rows := parseAndCollect(t, func(p *sonicsv.Parser) error {
		return ReadFile(p, path, Config{})
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}

// =============================================================================
// TestLZ4RoundTrip
// =============================================================================

func TestLZ4RoundTripReadStream(t *testing.T) {
	data := "id,name\n1,alice\n2,bob\n"
	var compressed bytes.Buffer
	if err := WriteLZ4(&compressed, bytes.NewReader([]byte(data))); err != nil {
		t.Fatalf("WriteLZ4: %v", err)
	}

	rows := parseAndCollect(t, func(p *sonicsv.Parser) error {
		return ReadStream(p, bytes.NewReader(compressed.Bytes()), Config{LZ4: true})
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %v", len(rows), rows)
	}
	if rows[1][1] != "alice" {
		t.Fatalf("got %v", rows[1])
	}
}

func TestReadMemoryMapped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	content := "a,b\nc,d\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	rows := parseAndCollect(t, func(p *sonicsv.Parser) error {
		return ReadMemoryMapped(p, path, Config{})
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestReadMemoryMappedLZ4(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv.lz4")

	var compressed bytes.Buffer
	if err := WriteLZ4(&compressed, bytes.NewReader([]byte("a,b\nc,d\ne,f\n"))); err != nil {
		t.Fatalf("WriteLZ4: %v", err)
	}
	if err := os.WriteFile(path, compressed.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rows := parseAndCollect(t, func(p *sonicsv.Parser) error {
		return ReadMemoryMapped(p, path, Config{LZ4: true})
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}

// TestReadFileUnterminatedQuotedFieldAtEOF reproduces reading a file whose
// last byte leaves the tokenizer parked mid-quoted-field: bufio.Reader's
// last successful Read returns (n, nil) followed by a separate (0, io.EOF),
// so ReadStream issues the chunk and the isFinal flush as two distinct
// ParseBuffer calls. The trailing row must still surface.
func TestReadFileUnterminatedQuotedFieldAtEOF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("a,b\n\"unterminated"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	rows := parseAndCollect(t, func(p *sonicsv.Parser) error {
		return ReadFile(p, path, Config{})
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if len(rows[1]) != 1 || rows[1][0] != "unterminated" {
		t.Fatalf("last row = %v, want [[unterminated]]", rows[1])
	}
}

func TestConfigChunkSizeFallback(t *testing.T) {
	cfg := Config{}
	if got := cfg.chunkSize(1024); got != 1024 {
		t.Errorf("got %d, want fallback 1024", got)
	}
	if got := cfg.chunkSize(0); got != 64*1024 {
		t.Errorf("got %d, want default 65536", got)
	}
	cfg.ChunkSize = 99
	if got := cfg.chunkSize(1024); got != 99 {
		t.Errorf("got %d, want explicit 99", got)
	}
}
