package sonicsv

import (
	"bufio"
	"io"
	"os"
	"time"
)

// tokenizerState is the byte-position state machine driving ParseBuffer,
// resumable across calls so a row (or a quoted field) may legally span a
// chunk boundary.
type tokenizerState uint8

const (
	// stateFieldStart: at the first byte of a field. A Quote byte here
	// opens a quoted field; anything else begins an unquoted field.
	stateFieldStart tokenizerState = iota
	// stateInUnquoted: scanning the body of an unquoted field for the next
	// delimiter or line terminator.
	stateInUnquoted
	// stateInQuoted: scanning the body of a quoted field for the closing
	// quote.
	stateInQuoted
	// stateAfterClosingQuote: just past a quote byte that closed a quoted
	// field. A second Quote byte here is DoubleQuote escaping (append one
	// literal quote, return to stateInQuoted); a delimiter or terminator
	// here ends the field normally; anything else is the
	// ErrUnexpectedCharAfterQuote condition.
	stateAfterClosingQuote
)

// Parser is a resumable, push-style CSV/TSV tokenizer. A Parser is not
// safe for concurrent use by multiple goroutines; give each goroutine its
// own Parser.
type Parser struct {
	opts  Options
	table charClassTable

	state tokenizerState

	// carryover holds the unconsumed suffix of a previous ParseBuffer call
	// whose contents were needed to finish the field/row in progress
	// (e.g. an unquoted field with no delimiter or terminator yet, or a CR
	// at chunk end that might pair with an LF). Once non-empty,
	// ParseBuffer.processes the carryover-joined-with-new-data window
	// instead of the new chunk in isolation.
	carryover *growableBuffer

	// fieldAccum holds the content of the quoted field currently being
	// assembled, with doubled quotes unfolded. Every quoted field is built
	// here (and copied out when emitted); unquoted fields never use it.
	fieldAccum *growableBuffer

	fields *fieldTable
	row    Row

	// fieldStartedQuoted records whether the field currently in progress
	// began with a quote byte, independent of tokenizerState; it is copied
	// onto the emitted Field.Quoted. Non-strict recovery after a closing
	// quote keeps the field in stateInQuoted, so such a field stays Quoted.
	fieldStartedQuoted bool

	rowNumber uint64
	rowBytes  int // bytes accumulated in the row so far, for MaxRowSize

	// streamOffset is the absolute byte offset, from the start of the whole
	// stream, of data[0] for whichever ParseBuffer call is in progress (or,
	// between calls, of the next call's data[0]). callBase is streamOffset's
	// value latched at the top of the current ParseBuffer call, so
	// rowStartOffset can be computed as callBase+pos regardless of which
	// step call recognizes the row's first byte. rowStartOffset is the
	// offset of the row currently being assembled, latched once per row by
	// stepFieldStart and copied onto Row.ByteOffset in closeRow.
	streamOffset   uint64
	callBase       uint64
	rowStartOffset uint64

	rowCB      RowCallback
	errCB      ErrorCallback
	progressCB ProgressCallback

	stats parserStats
}

// NewParser constructs a Parser from opts, filling zero-valued fields with
// defaults. Returns an *ArgumentError if opts describes an impossible
// configuration (e.g. Delimiter == Quote).
func NewParser(opts Options) (*Parser, error) {
	norm, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	detectFeatures()
	p := &Parser{
		opts:       norm,
		table:      newCharClassTable(norm.Delimiter, norm.Quote),
		carryover:  acquireBuffer(norm.MaxRowSize),
		fieldAccum: acquireBuffer(norm.MaxFieldSize),
		fields:     newFieldTable(32),
	}
	p.stats.simdFeatures.Store(uint32(detectFeatures()))
	return p, nil
}

// SetRowCallback installs the callback invoked for each completed row.
// Must be set before ParseBuffer is called for rows to be observable.
func (p *Parser) SetRowCallback(cb RowCallback) { p.rowCB = cb }

// SetErrorCallback installs the callback invoked best-effort alongside a
// returned error.
func (p *Parser) SetErrorCallback(cb ErrorCallback) { p.errCB = cb }

// SetProgressCallback installs a callback invoked once per completed row
// with cumulative byte/row counts, for long-running parses that want
// coarse-grained progress reporting without polling Stats.
func (p *Parser) SetProgressCallback(cb ProgressCallback) { p.progressCB = cb }

// Stats returns a snapshot of this Parser's cumulative counters.
func (p *Parser) Stats() Stats { return p.stats.snapshot() }

// Close returns the Parser's internal carryover and field-accumulator
// buffers to the shared pool for reuse by a future Parser. Close is
// optional: a Parser that is simply dropped is collected normally, but a
// caller cycling through many short-lived Parsers (one per request, one
// per file) should call Close to cut allocator pressure. The Parser must
// not be used again after Close.
func (p *Parser) Close() {
	releaseBuffer(p.carryover)
	releaseBuffer(p.fieldAccum)
	p.carryover = nil
	p.fieldAccum = nil
}

// Reset clears all in-progress tokenizer state (carryover, partial field,
// partial row, row number, stream offset, stats) so the Parser can be
// reused for an unrelated input stream without reconstructing it.
func (p *Parser) Reset() {
	p.state = stateFieldStart
	p.carryover.reset()
	p.fieldAccum.reset()
	p.fields.reset()
	p.fieldStartedQuoted = false
	p.rowNumber = 0
	p.rowBytes = 0
	p.streamOffset = 0
	p.callBase = 0
	p.rowStartOffset = 0
	p.stats.reset()
	p.stats.simdFeatures.Store(uint32(detectFeatures()))
}

// ParseBuffer feeds buf to the tokenizer. isFinal must be true on the last
// call for a given stream so that a trailing unterminated row (or, in
// non-strict mode, an unterminated quoted field) is flushed as a row
// instead of held pending forever. ParseBuffer may be called any number of
// times with isFinal false first; the tokenizer carries state across
// calls transparently.
//
// buf is not retained after ParseBuffer returns except for the unconsumed
// suffix copied into the carryover buffer; the caller may reuse or
// discard buf immediately afterward.
func (p *Parser) ParseBuffer(buf []byte, isFinal bool) error {
	start := time.Now()
	defer func() { p.stats.parseTimeNanos.Add(uint64(time.Since(start))) }()

	p.stats.bytesProcessed.Add(uint64(len(buf)))

	data := buf
	if p.carryover.len() > 0 {
		if !p.carryover.append(buf) {
			return p.fail(ErrRowTooLarge, p.rowNumber+1, errRowTooLarge)
		}
		data = p.carryover.bytes()
	}

	// data is always a contiguous window of the logical stream: carryover
	// is exactly the prior window's unconsumed suffix, immediately
	// followed by new bytes with no gap. So streamOffset (the absolute
	// offset of data[0]) is valid for this whole call, and whatever pos the
	// processing loop below ends on, the next call's data[0] starts at
	// callBase+pos — whether that's len(data) (fully consumed) or less (a
	// suspended carryover).
	p.callBase = p.streamOffset

	pos := 0
	for pos < len(data) || p.needsFinalFlush(isFinal, pos, len(data)) {
		consumed, err := p.step(data, pos, isFinal)
		if err != nil {
			return err
		}
		pos += consumed
		if consumed == 0 {
			break
		}
	}

	if pos < len(data) {
		// Suspend: the remainder of data could not be fully tokenized
		// without more input (an unquoted field with no delimiter or
		// terminator yet, a CR that might pair with a following LF in the
		// next chunk). An open quoted field never lands here: its content
		// is already in fieldAccum. Stash the remainder as
		// carryover so the next call re-scans it together with new data.
		// Copy the remainder out before touching p.carryover: data may
		// already alias p.carryover's backing array (when a previous
		// call left a carryover in place), so reset+append in place
		// would stomp on the very bytes being saved.
		saved := append([]byte(nil), data[pos:]...)
		p.carryover.reset()
		if !p.carryover.append(saved) {
			return p.fail(ErrRowTooLarge, p.rowNumber+1, errRowTooLarge)
		}
		p.stats.carryoverStashes.Add(1)
	} else {
		p.carryover.reset()
	}
	p.streamOffset = p.callBase + uint64(pos)
	p.stats.notePeakMemory(uint64(cap(p.carryover.bytes())) + uint64(cap(p.fieldAccum.bytes())))

	if isFinal {
		return p.finish()
	}
	return nil
}

// needsFinalFlush reports whether the tokenizer, having run out of data at
// pos == length, still owes the caller one more step call to flush pending
// content. This matters only for stateInQuoted and stateAfterClosingQuote:
// both hold field content already copied into fieldAccum and, on the final
// call, must force-close and emit it even though the outer loop's
// pos < length condition has gone false. stateInUnquoted never needs this —
// its suspend paths (which return 0 without changing p.state) only occur
// when isFinal is false and always leave pos < length, so
// carryover-stashing handles them. stateFieldStart's own final-field case is handled separately
// by finish.
func (p *Parser) needsFinalFlush(isFinal bool, pos, length int) bool {
	if !isFinal || pos != length {
		return false
	}
	return p.state == stateInQuoted || p.state == stateAfterClosingQuote
}

// step attempts to advance the tokenizer by consuming one structural token
// (a field's worth of content up to its terminating delimiter/newline/
// quote-close) starting at data[pos:]. It returns the number of bytes
// consumed from data[pos:], or 0 if data[pos:] does not yet contain enough
// information to make progress (i.e. the caller should suspend and wait
// for more input, unless isFinal).
func (p *Parser) step(data []byte, pos int, isFinal bool) (int, error) {
	switch p.state {
	case stateFieldStart:
		return p.stepFieldStart(data, pos, isFinal)
	case stateInUnquoted:
		return p.stepInUnquoted(data, pos, isFinal)
	case stateInQuoted:
		return p.stepInQuoted(data, pos, isFinal)
	case stateAfterClosingQuote:
		return p.stepAfterClosingQuote(data, pos, isFinal)
	default:
		return 0, nil
	}
}

// stepFieldStart decides, from a single lookahead byte (always available:
// step is only ever called with pos < len(data)), whether the field
// beginning here is quoted or not, then chains directly into the
// resulting state's step function rather than returning to the caller's
// loop with zero bytes consumed — a bare state change with nothing
// consumed would be indistinguishable from "need more input" to
// ParseBuffer's loop, which treats consumed == 0 as a signal to suspend.
func (p *Parser) stepFieldStart(data []byte, pos int, isFinal bool) (int, error) {
	if p.fields.len() == 0 {
		// First field of a new row: latch its starting offset now, since
		// stepFieldStart runs exactly once per field occurrence (never
		// re-invoked mid-field across a suspend/resume) and this is the
		// only place that sees the row's very first byte, even if that
		// field itself goes on to span further ParseBuffer calls.
		p.rowStartOffset = p.callBase + uint64(pos)
	}
	if p.opts.Mode == ModeSimple || (p.opts.Mode != ModeQuotedOnly && data[pos] != p.opts.Quote) {
		p.fieldStartedQuoted = false
		p.state = stateInUnquoted
		return p.stepInUnquoted(data, pos, isFinal)
	}
	// Opening quote.
	p.fieldStartedQuoted = true
	p.fieldAccum.reset()
	p.state = stateInQuoted
	return 1, nil
}

func (p *Parser) stepInUnquoted(data []byte, pos int, isFinal bool) (int, error) {
	rest := data[pos:]
	off, found := scanStructural(rest, p.opts.Delimiter, '\n', '\r', p.opts.Delimiter)
	if !found {
		if !isFinal {
			return 0, nil // need more input; nothing committed yet
		}
		off = len(rest)
	} else if rest[off] == '\r' && off+1 >= len(rest) && !isFinal {
		// CR sits exactly at the end of available data: it might pair
		// with a following LF in the next chunk. Suspend without
		// committing the field or changing state, so the whole field
		// (including this CR) is rescanned as a unit once more data
		// arrives — committing now and resuming at stateFieldStart would
		// make the next call misread this CR as the start of a new field.
		return 0, nil
	}

	fieldBytes := rest[:off]
	if p.opts.Strict && !p.fieldStartedQuoted {
		if i := p.indexOfClass(fieldBytes, classQuote); i >= 0 {
			return 0, p.fail(ErrParseError, p.rowNumber+1, ErrBareQuote)
		}
	}
	if err := p.emitField(fieldBytes, false); err != nil {
		return 0, err
	}
	p.state = stateFieldStart

	if !found {
		// isFinal and nothing structural left: this was the last field of
		// the last row.
		return p.closeRow(off, rowTermNone)
	}

	switch rest[off] {
	case p.opts.Delimiter:
		return off + 1, nil
	case '\n':
		return p.closeRow(off+1, rowTermLF)
	case '\r':
		if off+1 < len(rest) && rest[off+1] == '\n' {
			return p.closeRow(off+2, rowTermCRLF)
		}
		return p.closeRow(off+1, rowTermCR)
	}
	// Unreachable: scanStructural was only asked to match Delimiter, '\n',
	// or '\r' (Delimiter passed twice to fill the 4-byte signature), and
	// normalize() guarantees those three are pairwise distinct.
	return off + 1, nil
}

func (p *Parser) stepInQuoted(data []byte, pos int, isFinal bool) (int, error) {
	rest := data[pos:]
	off, found := quoteScan(rest, p.opts.Quote)
	if !found {
		if !isFinal {
			if !p.fieldAccum.append(rest) {
				return 0, p.fail(ErrFieldTooLarge, p.rowNumber+1, nil)
			}
			return len(rest), nil
		}
		// Non-strict: force-close the unterminated quoted field at EOF.
		if !p.opts.Strict {
			if !p.fieldAccum.append(rest) {
				return 0, p.fail(ErrFieldTooLarge, p.rowNumber+1, nil)
			}
			if err := p.emitField(p.fieldAccum.bytes(), true); err != nil {
				return 0, err
			}
			p.state = stateFieldStart
			return p.closeRow(len(rest), rowTermNone)
		}
		return 0, p.fail(ErrParseError, p.rowNumber+1, ErrUnclosedQuotedField)
	}

	if !p.fieldAccum.append(rest[:off]) {
		return 0, p.fail(ErrFieldTooLarge, p.rowNumber+1, nil)
	}
	p.state = stateAfterClosingQuote
	return off + 1, nil
}

func (p *Parser) stepAfterClosingQuote(data []byte, pos int, isFinal bool) (int, error) {
	if pos >= len(data) {
		if !isFinal {
			return 0, nil
		}
		// Final call, nothing after the closing quote: field ends here.
		if err := p.emitField(p.fieldAccum.bytes(), true); err != nil {
			return 0, err
		}
		p.state = stateFieldStart
		return p.closeRow(0, rowTermNone)
	}

	c := data[pos]
	switch {
	case c == p.opts.Quote && p.opts.DoubleQuote:
		if !p.fieldAccum.appendByte(p.opts.Quote) {
			return 0, p.fail(ErrFieldTooLarge, p.rowNumber+1, nil)
		}
		p.state = stateInQuoted
		return 1, nil
	case c == p.opts.Delimiter:
		if err := p.emitField(p.fieldAccum.bytes(), true); err != nil {
			return 0, err
		}
		p.state = stateFieldStart
		return 1, nil
	case c == '\n':
		if err := p.emitField(p.fieldAccum.bytes(), true); err != nil {
			return 0, err
		}
		p.state = stateFieldStart
		return p.closeRow(1, rowTermLF)
	case c == '\r':
		if pos+1 < len(data) {
			if err := p.emitField(p.fieldAccum.bytes(), true); err != nil {
				return 0, err
			}
			p.state = stateFieldStart
			if data[pos+1] == '\n' {
				return p.closeRow(2, rowTermCRLF)
			}
			return p.closeRow(1, rowTermCR)
		}
		if isFinal {
			if err := p.emitField(p.fieldAccum.bytes(), true); err != nil {
				return 0, err
			}
			p.state = stateFieldStart
			return p.closeRow(1, rowTermCR)
		}
		return 0, nil
	default:
		if p.opts.Strict {
			return 0, p.fail(ErrParseError, p.rowNumber+1, ErrUnexpectedCharAfterQuote)
		}
		// Non-strict recovery: treat the closing quote as data and keep
		// accumulating the field as quoted content starting from c; chain
		// into stepInQuoted so c itself is reprocessed under the new
		// state instead of returning 0 consumed to ParseBuffer's loop,
		// which would misread that as "suspend, need more input".
		if !p.fieldAccum.appendByte(p.opts.Quote) {
			return 0, p.fail(ErrFieldTooLarge, p.rowNumber+1, nil)
		}
		p.state = stateInQuoted
		return p.stepInQuoted(data, pos, isFinal)
	}
}

type rowTerm uint8

const (
	rowTermNone rowTerm = iota
	rowTermLF
	rowTermCR
	rowTermCRLF
)

// closeRow finalizes the row currently accumulated in p.fields, invokes
// the row callback (unless IgnoreEmptyLines suppresses a blank row), and
// resets per-row state. consumedSoFar is the number of bytes the caller's
// token occupies, terminator included, and is returned unchanged as the
// step's consumed count. term names the terminator that ended the row
// (rowTermNone when closing at EOF with no terminator).
func (p *Parser) closeRow(consumedSoFar int, term rowTerm) (int, error) {
	fields := p.fields.snapshotFields(p.row.Fields)
	p.row.Fields = fields
	p.row.RowNumber = p.rowNumber + 1
	p.row.ByteOffset = p.rowStartOffset

	skip := p.opts.IgnoreEmptyLines && isBlankRow(fields)
	if !skip {
		p.rowNumber++
		p.stats.addRow(len(fields))
		if p.rowCB != nil {
			p.rowCB(&p.row)
		}
		if p.progressCB != nil {
			p.progressCB(p.stats.bytesProcessed.Load(), p.rowNumber)
		}
	}

	p.fields.reset()
	p.rowBytes = 0
	return consumedSoFar, nil
}

// emitField appends a completed field to the current row's field table.
// owned indicates the bytes live in fieldAccum (already copied) rather
// than being a zero-copy window into the caller's buffer.
func (p *Parser) emitField(b []byte, owned bool) error {
	p.rowBytes += len(b)
	if p.rowBytes > p.opts.MaxRowSize {
		return p.fail(ErrRowTooLarge, p.rowNumber+1, nil)
	}
	field := Field{Quoted: p.fieldStartedQuoted}
	if owned {
		cp := make([]byte, len(b))
		copy(cp, b)
		field.Data = cp
		p.stats.accumulatedFields.Add(1)
	} else {
		field.Data = trimField(b, p.opts.TrimWhitespace, p.fieldStartedQuoted)
	}
	p.fields.addField(field)
	return nil
}

func trimField(b []byte, trim, quoted bool) []byte {
	if !trim || quoted {
		return b
	}
	i, j := 0, len(b)
	for i < j && (b[i] == ' ' || b[i] == '\t') {
		i++
	}
	for j > i && (b[j-1] == ' ' || b[j-1] == '\t') {
		j--
	}
	return b[i:j]
}

// indexOfClass returns the offset of the first byte in b carrying every bit
// of want according to p.table, the byte classification built once at
// construction time for this Parser's (delimiter, quote) pair, or -1 if
// none is found.
func (p *Parser) indexOfClass(b []byte, want byteClass) int {
	for i, v := range b {
		if p.table.hasClass(v, want) {
			return i
		}
	}
	return -1
}

func (p *Parser) fail(kind ErrorKind, rowNumber uint64, cause error) error {
	p.stats.errorCount.Add(1)
	err := &ParseError{Kind: kind, RowNumber: rowNumber, ByteOffset: p.stats.bytesProcessed.Load(), Err: cause}
	if p.errCB != nil {
		p.errCB(kind, err.Error(), rowNumber)
	}
	return err
}

// errRowTooLarge is the cause wrapped into a ParseError when a
// growableBuffer.append fails with no more specific error available at the
// call site.
var errRowTooLarge = &ArgumentError{Reason: "row exceeds configured MaxRowSize"}

// finish flushes whatever row is still pending once the caller has
// signaled isFinal. Every in-field case (unterminated quoted field,
// trailing unquoted field, junk after a closing quote) is already
// resolved inline by step's isFinal branches; the one case only finish can
// see is a row that ended with a trailing delimiter, leaving the
// tokenizer parked in stateFieldStart awaiting one more (empty) field
// that will never arrive.
func (p *Parser) finish() error {
	if p.state == stateFieldStart && p.fields.len() > 0 {
		if err := p.emitField(nil, false); err != nil {
			return err
		}
	}
	if p.fields.len() == 0 {
		return nil
	}
	_, err := p.closeRow(0, rowTermNone)
	return err
}

// ParseString is a convenience wrapper over ParseBuffer for a
// complete, in-memory input.
func (p *Parser) ParseString(s string) error {
	return p.ParseBuffer([]byte(s), true)
}

// ParseStream drives ParseBuffer over r using a bufio.Reader sized to
// Options.BufferHint, for callers that have an io.Reader but no interest
// in managing chunk boundaries themselves.
func (p *Parser) ParseStream(r io.Reader) error {
	br := bufio.NewReaderSize(r, p.opts.BufferHint)
	buf := make([]byte, p.opts.BufferHint)
	for {
		n, err := br.Read(buf)
		if n > 0 {
			if perr := p.ParseBuffer(buf[:n], err == io.EOF); perr != nil {
				return perr
			}
		}
		if err == io.EOF {
			if n == 0 {
				return p.ParseBuffer(nil, true)
			}
			return nil
		}
		if err != nil {
			return p.fail(ErrIOError, p.rowNumber, err)
		}
	}
}

// ParseFile opens path and drives ParseStream over it.
func (p *Parser) ParseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return p.fail(ErrIOError, 0, err)
	}
	defer f.Close()
	return p.ParseStream(f)
}
