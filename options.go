package sonicsv

// Mode selects the scan strategy used while tokenizing a buffer.
//
// ModeGeneric is the fully general RFC 4180-with-relaxations grammar
// described by the tokenizer state machine. The other modes are fast paths
// for input known in advance to have a simpler shape; they still emit the
// same Row/Field contract, they just skip work the general grammar requires.
type Mode int

const (
	// ModeGeneric handles quoting, escaping, and mixed terminators.
	ModeGeneric Mode = iota
	// ModeSimple assumes the input contains no quote bytes at all; the
	// scan primitive never looks for the quote byte and the tokenizer
	// never enters InQuoted.
	ModeSimple
	// ModeQuotedOnly assumes every field is quoted (no bare unquoted
	// fields), skipping the FieldStart "is this a quote" branch cost.
	ModeQuotedOnly
	// ModeTSV is ModeGeneric with the delimiter fixed to tab and quoting
	// still honored (real-world TSV dumps occasionally quote a field).
	ModeTSV
)

// Options configures a Parser at construction time. Options are immutable
// for the lifetime of a Parser; to change them, construct a new Parser.
type Options struct {
	// Delimiter separates fields within a row. Default ','.
	Delimiter byte
	// Quote introduces and closes a quoted field. Default '"'.
	Quote byte
	// DoubleQuote controls whether two consecutive Quote bytes inside a
	// quoted field are unescaped to one literal Quote byte. Default true.
	DoubleQuote bool
	// TrimWhitespace strips leading/trailing ASCII space and tab from
	// unquoted fields only. Default false.
	TrimWhitespace bool
	// IgnoreEmptyLines skips rows that reduce to a single zero-length
	// field (i.e. a blank line) rather than emitting them. Default true.
	IgnoreEmptyLines bool
	// Strict turns tolerated deviations (a bare quote in an unquoted
	// field, junk after a closing quote, an unterminated quoted field at
	// EOF) into returned errors instead of being recovered from. Default
	// false.
	Strict bool
	// MaxFieldSize bounds the field accumulator. Exceeding it returns
	// ErrFieldTooLarge. Default 10 MiB.
	MaxFieldSize int
	// MaxRowSize bounds the sum of field lengths in one row, and the
	// carryover buffer. Exceeding it returns ErrRowTooLarge. Default
	// 100 MiB.
	MaxRowSize int
	// BufferHint is the read size ParseStream uses for each ParseBuffer
	// call. Default 64 KiB.
	BufferHint int
	// Mode selects the scan fast path. Default ModeGeneric.
	Mode Mode
}

const (
	defaultMaxFieldSize = 10 * 1024 * 1024
	defaultMaxRowSize   = 100 * 1024 * 1024
	defaultBufferHint   = 64 * 1024
)

// DefaultOptions returns the wire-compatible default option set: comma
// delimiter, double-quote escaping, empty lines ignored, strict mode off,
// 10 MiB/100 MiB field/row limits, and a 64 KiB buffer hint.
func DefaultOptions() Options {
	return Options{
		Delimiter:        ',',
		Quote:            '"',
		DoubleQuote:      true,
		TrimWhitespace:   false,
		IgnoreEmptyLines: true,
		Strict:           false,
		MaxFieldSize:     defaultMaxFieldSize,
		MaxRowSize:       defaultMaxRowSize,
		BufferHint:       defaultBufferHint,
		Mode:             ModeGeneric,
	}
}

// normalize fills in zero-valued fields with their defaults and validates
// the combination, returning ErrInvalidArguments for anything nonsensical.
func (o Options) normalize() (Options, error) {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.Quote == 0 {
		o.Quote = '"'
	}
	if o.Delimiter == o.Quote {
		return o, &ArgumentError{Reason: "delimiter and quote byte must differ"}
	}
	if o.Delimiter == '\n' || o.Delimiter == '\r' || o.Quote == '\n' || o.Quote == '\r' {
		return o, &ArgumentError{Reason: "delimiter and quote must not be a line terminator byte"}
	}
	if o.MaxFieldSize <= 0 {
		o.MaxFieldSize = defaultMaxFieldSize
	}
	if o.MaxRowSize <= 0 {
		o.MaxRowSize = defaultMaxRowSize
	}
	if o.BufferHint <= 0 {
		o.BufferHint = defaultBufferHint
	}
	if o.Mode == ModeTSV {
		o.Delimiter = '\t'
	}
	return o, nil
}
