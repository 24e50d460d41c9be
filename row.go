package sonicsv

// Field is one parsed field. Data is a window into the buffer most
// recently passed to ParseBuffer/ParseString (or into the Parser's
// carryover buffer) when Quoted is false; it is only valid until the row
// callback returns. Callers that need the bytes to outlive the callback
// must copy them; this zero-copy contract is explicit rather than implied.
type Field struct {
	Data   []byte
	Quoted bool
}

// Row is one parsed record, handed to the RowCallback. Fields is reused
// across callback invocations the same way Field.Data is: copy what you
// need before returning from the callback.
type Row struct {
	Fields     []Field
	RowNumber  uint64
	ByteOffset uint64 // offset of the row's first byte from the start of the stream
}

// RowCallback receives each completed row as it is recognized. Returning
// from the callback signals the parser it may reuse the Row's backing
// storage for the next row.
type RowCallback func(row *Row)

// ProgressCallback is invoked periodically (at row-boundary granularity,
// not a fixed byte interval) with the cumulative bytes passed to
// ParseBuffer so far (including the whole of the call in progress) and
// rows emitted so far, mirroring csv_progress_callback_t in the C original.
type ProgressCallback func(bytesProcessed, rowsParsed uint64)

// isBlankRow reports whether a row reduces to the single-field, zero-length
// case that IgnoreEmptyLines suppresses: exactly one field, unquoted, empty.
func isBlankRow(fields []Field) bool {
	return len(fields) == 1 && !fields[0].Quoted && len(fields[0].Data) == 0
}
