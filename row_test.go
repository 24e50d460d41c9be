package sonicsv

import "testing"

func TestIsBlankRow(t *testing.T) {
	cases := []struct {
		name   string
		fields []Field
		want   bool
	}{
		{"singleEmptyUnquoted", []Field{{Data: nil, Quoted: false}}, true},
		{"singleEmptyQuoted", []Field{{Data: nil, Quoted: true}}, false},
		{"singleNonEmpty", []Field{{Data: []byte("a")}}, false},
		{"multipleFields", []Field{{Data: nil}, {Data: nil}}, false},
		{"noFields", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isBlankRow(tc.fields); got != tc.want {
				t.Errorf("isBlankRow(%v) = %v, want %v", tc.fields, got, tc.want)
			}
		})
	}
}
