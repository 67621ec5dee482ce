package dbfacade

import "testing"

func TestQuoteIdent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "public", `"public"`},
		{"embedded quote", `weird"schema`, `"weird""schema"`},
		{"empty", "", `""`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := quoteIdent(tc.in)
			if got != tc.want {
				t.Fatalf("quoteIdent(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
