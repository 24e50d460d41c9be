package sonicsv

import (
	"bytes"
	"testing"
)

// =============================================================================
// TestWriterWrite - Basic Encoding
// =============================================================================

func TestWriterWrite(t *testing.T) {
	cases := []struct {
		name    string
		records [][]string
		want    string
	}{
		{
			name:    "plainFields",
			records: [][]string{{"a", "b", "c"}},
			want:    "a,b,c\n",
		},
		{
			name:    "multipleRows",
			records: [][]string{{"1", "2"}, {"3", "4"}},
			want:    "1,2\n3,4\n",
		},
		{
			name:    "fieldWithComma",
			records: [][]string{{"a,b", "c"}},
			want:    "\"a,b\",c\n",
		},
		{
			name:    "fieldWithQuote",
			records: [][]string{{`say "hi"`}},
			want:    "\"say \"\"hi\"\"\"\n",
		},
		{
			name:    "fieldWithNewline",
			records: [][]string{{"a\nb"}},
			want:    "\"a\nb\"\n",
		},
		{
			name:    "leadingTrailingSpace",
			records: [][]string{{" a", "b "}},
			want:    "\" a\",\"b \"\n",
		},
		{
			name:    "emptyField",
			records: [][]string{{""}},
			want:    "\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			if err := w.WriteAll(tc.records); err != nil {
				t.Fatalf("WriteAll: %v", err)
			}
			if got := buf.String(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWriterUseCRLF(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.UseCRLF = true
	if err := w.WriteAll([][]string{{"a", "b"}}); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if got := buf.String(); got != "a,b\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestWriterCustomComma(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Comma = '\t'
	if err := w.WriteAll([][]string{{"a", "b\tc"}}); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	want := "a\t\"b\tc\"\n"
	if got := buf.String(); got != want {
		// the delimiter itself is now tab, and the second field contains a
		// literal tab so it must be quoted.
		t.Fatalf("got %q, want %q", got, want)
	}
}

// =============================================================================
// TestWriterParserRoundTrip
// =============================================================================

func TestWriterParserRoundTrip(t *testing.T) {
	records := [][]string{
		{"id", "name", "note"},
		{"1", "alice", "hello, world"},
		{"2", "bob", "line1\nline2"},
		{"3", "carol", `quote "here"`},
		{"4", "dave", ""},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	p, err := NewParser(DefaultOptions())
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	var got [][]string
	p.SetRowCallback(func(row *Row) {
		vals := make([]string, len(row.Fields))
		for i, f := range row.Fields {
			vals[i] = string(f.Data)
		}
		got = append(got, vals)
	})
	if err := p.ParseString(buf.String()); err != nil {
		t.Fatalf("ParseString: %v", err)
	}

	if len(got) != len(records) {
		t.Fatalf("got %d rows, want %d", len(got), len(records))
	}
	for i, row := range got {
		for j, f := range row {
			if f != records[i][j] {
				t.Errorf("row %d field %d: got %q, want %q", i, j, f, records[i][j])
			}
		}
	}
}

// TestWriterErrorDoesNotForceFlush asserts that Error() only probes the
// underlying writer's stored error state rather than flushing buffered
// output as a side effect.
func TestWriterErrorDoesNotForceFlush(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write([]string{"a", "b"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Error(); err != nil {
		t.Fatalf("Error() = %v, want nil", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("Error() flushed buffered output: got %d bytes written, want 0 before Flush", buf.Len())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if buf.String() != "a,b\n" {
		t.Fatalf("got %q after explicit Flush", buf.String())
	}
}

func TestFieldNeedsQuotes(t *testing.T) {
	cases := []struct {
		field string
		want  bool
	}{
		{"", false},
		{"plain", false},
		{"a,b", true},
		{`a"b`, true},
		{"a\nb", true},
		{"a\rb", true},
		{" leading", true},
		{"trailing ", true},
		{"no-special-chars-123", false},
	}
	for _, tc := range cases {
		if got := fieldNeedsQuotes(tc.field, ','); got != tc.want {
			t.Errorf("fieldNeedsQuotes(%q) = %v, want %v", tc.field, got, tc.want)
		}
	}
}
