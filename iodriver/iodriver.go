// Package iodriver composes sonicsv.Parser over concrete input sources:
// plain files, arbitrary io.Readers, and LZ4-compressed streams. None of
// this is part of the tokenizer itself; it is the chunked-read plumbing
// the tokenizer's push-style ParseBuffer contract expects a caller to
// provide.
package iodriver

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/sonicsv/sonicsv-go"
)

// Config controls how a stream is chunked and whether it is treated as
// LZ4-compressed.
type Config struct {
	// ChunkSize is the number of bytes read per Parser.ParseBuffer call.
	// Zero selects 64 KiB; the Parser's Options.BufferHint is not
	// consulted.
	ChunkSize int
	// LZ4 transparently wraps the source in an lz4.Reader before chunked
	// reading begins.
	LZ4 bool
}

func (c Config) chunkSize(fallback int) int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	if fallback > 0 {
		return fallback
	}
	return 64 * 1024
}

// ReadStream drives p over r in fixed-size chunks, honoring cfg.LZ4 by
// wrapping r in an lz4.Reader first. End of stream is signaled to
// ParseBuffer with isFinal true, either on the last chunk (when the read
// that returns it also reports io.EOF) or on a separate empty call,
// satisfying the tokenizer's end-of-stream flush contract.
func ReadStream(p *sonicsv.Parser, r io.Reader, cfg Config) error {
	var src io.Reader = r
	if cfg.LZ4 {
		src = lz4.NewReader(r)
	}

	br := bufio.NewReaderSize(src, cfg.chunkSize(0))
	buf := make([]byte, cfg.chunkSize(0))
	for {
		n, err := br.Read(buf)
		if n > 0 {
			if perr := p.ParseBuffer(buf[:n], err == io.EOF); perr != nil {
				return perr
			}
		}
		switch {
		case err == io.EOF:
			if n == 0 {
				return p.ParseBuffer(nil, true)
			}
			return nil
		case err != nil:
			return &sonicsv.ParseError{Kind: sonicsv.ErrIOError, Err: err}
		}
	}
}

// ReadFile opens path and drives p over its contents via ReadStream.
func ReadFile(p *sonicsv.Parser, path string, cfg Config) error {
	f, err := os.Open(path)
	if err != nil {
		return &sonicsv.ParseError{Kind: sonicsv.ErrIOError, Err: err}
	}
	defer f.Close()
	return ReadStream(p, f, cfg)
}

// ReadMemoryMapped parses the full contents of path in one ParseBuffer
// call rather than chunked reads. It is named for the access pattern it
// stands in for (a single large read, the shape an mmap-backed reader
// would also present to the parser) since a portable mmap requires
// platform-specific syscalls this module does not otherwise need.
// cfg.LZ4 still applies: the full file is decompressed in memory first.
func ReadMemoryMapped(p *sonicsv.Parser, path string, cfg Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &sonicsv.ParseError{Kind: sonicsv.ErrIOError, Err: err}
	}
	if !cfg.LZ4 {
		return p.ParseBuffer(raw, true)
	}
	decompressed, err := io.ReadAll(lz4.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return &sonicsv.ParseError{Kind: sonicsv.ErrIOError, Err: err}
	}
	return p.ParseBuffer(decompressed, true)
}

// WriteLZ4 copies src into dst through an lz4.Writer, for producing test
// fixtures and for round-tripping ReadStream's LZ4 path.
func WriteLZ4(dst io.Writer, src io.Reader) error {
	w := lz4.NewWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}
