package dialect

import (
	"strings"
	"testing"
)

// unquoteIdent reverses QuoteIdent for a dialect quoting with q. It reports
// false when the quoted form is not wrapped in q or holds an unpaired q.
func unquoteIdent(quoted string, q byte) (string, bool) {
	if len(quoted) < 2 || quoted[0] != q || quoted[len(quoted)-1] != q {
		return "", false
	}
	inner := quoted[1 : len(quoted)-1]

	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == q {
			if i+1 >= len(inner) || inner[i+1] != q {
				return "", false
			}
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String(), true
}

// FuzzQuoteIdent checks that every dialect's quoting round-trips: whatever
// the registry names a table, the quoted form cannot end the identifier
// early.
func FuzzQuoteIdent(f *testing.F) {
	for _, s := range []string{
		"Patients",
		"LabQCResults",
		"__migration_history",
		`Lab"Results`,
		"Lab`Results",
		`""`,
		"``",
		"",
		`Patients"; DROP TABLE "Users`,
		"Patients`; DROP TABLE `Users",
		"Ward\x00Beds",
		"Krankenhausaufenthalt_Größe",
		strings.Repeat("Isolation", 20),
	} {
		f.Add(s)
	}

	dialects := []struct {
		d Dialect
		q byte
	}{
		{Postgres(), '"'},
		{SQLite(), '"'},
		{MySQL(), '`'},
	}

	f.Fuzz(func(t *testing.T, name string) {
		for _, tc := range dialects {
			quoted := tc.d.QuoteIdent(name)
			got, ok := unquoteIdent(quoted, tc.q)
			if !ok {
				t.Fatalf("%s: QuoteIdent(%q) = %q is not a single quoted identifier", tc.d.Name(), name, quoted)
			}
			if got != name {
				t.Errorf("%s: QuoteIdent(%q) = %q unquotes to %q", tc.d.Name(), name, quoted, got)
			}
		}
	})
}

func TestUnquoteIdent(t *testing.T) {
	tests := []struct {
		quoted string
		want   string
		ok     bool
	}{
		{`"Patients"`, "Patients", true},
		{`"Lab""Results"`, `Lab"Results`, true},
		{`""`, "", true},
		{`"Lab"Results"`, "", false},
		{`Patients`, "", false},
		{`"`, "", false},
	}
	for _, tt := range tests {
		got, ok := unquoteIdent(tt.quoted, '"')
		if ok != tt.ok || got != tt.want {
			t.Errorf("unquoteIdent(%q) = %q, %v; want %q, %v", tt.quoted, got, ok, tt.want, tt.ok)
		}
	}
}
