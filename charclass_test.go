package sonicsv

import "testing"

func TestCharClassTable(t *testing.T) {
	tbl := newCharClassTable(',', '"')

	cases := []struct {
		b    byte
		want byteClass
	}{
		{',', classDelim},
		{'"', classQuote},
		{'\n', classLF},
		{'\r', classCR},
		{'a', classRegular},
	}
	for _, tc := range cases {
		if got := tbl[tc.b]; got != tc.want {
			t.Errorf("tbl[%q] = %v, want %v", tc.b, got, tc.want)
		}
	}

	if !tbl.isStructural(',') {
		t.Error("expected ',' to be structural")
	}
	if tbl.isStructural('a') {
		t.Error("expected 'a' to be non-structural")
	}
	if !tbl.hasClass('"', classQuote) {
		t.Error("expected '\"' to carry classQuote")
	}
	if tbl.hasClass('a', classQuote) {
		t.Error("expected 'a' to not carry classQuote")
	}
}

func TestCharClassTableDelimiterDoesNotAliasQuoteClass(t *testing.T) {
	// Tab as delimiter with default quote: disjoint bits, no accidental
	// aliasing between classDelim and classQuote.
	tbl := newCharClassTable('\t', '"')
	if tbl.hasClass('\t', classQuote) {
		t.Error("tab delimiter must not be misclassified as quote")
	}
	if !tbl.hasClass('\t', classDelim) {
		t.Error("tab must carry classDelim")
	}
}
