package sonicsv

// byteClass is the classification of a single input byte, used by the
// Parser's strict-mode bare-quote check (indexOfClass) to classify a byte
// with one table load. The scan primitives in scan.go do not consult this
// table; scanScalar compares each byte against its targets directly.
type byteClass uint8

const (
	classRegular byteClass = 0
	classDelim   byteClass = 1 << 0
	classQuote   byteClass = 1 << 1
	classLF      byteClass = 1 << 2
	classCR      byteClass = 1 << 3
)

// charClassTable is a 256-entry lookup built once per (delimiter, quote)
// pair at Parser construction. Options are immutable after construction, so
// the table never needs rebuilding for the lifetime of a Parser.
type charClassTable [256]byteClass

// newCharClassTable builds the table for the given delimiter/quote pair.
// LF and CR are fixed structural bytes regardless of options.
func newCharClassTable(delim, quote byte) charClassTable {
	var t charClassTable
	t[delim] |= classDelim
	t[quote] |= classQuote
	t['\n'] |= classLF
	t['\r'] |= classCR
	return t
}

// isStructural reports whether b is any of the four structural classes.
func (t *charClassTable) isStructural(b byte) bool {
	return t[b] != classRegular
}

// hasClass reports whether b carries every bit set in want.
func (t *charClassTable) hasClass(b byte, want byteClass) bool {
	return t[b]&want == want
}
