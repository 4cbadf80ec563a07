package alerr

import "testing"

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"Wards", "Wards", 0},
		{"Wards", "", 5},
		{"", "Wards", 5},
		{"patients", "Patients", 0},
		{"Wrads", "Wards", 1},
		{"Admision", "Admissions", 2},
		{"LabResult", "LabResults", 1},
		{"HAICase", "HAICases", 1},
		{"kitten", "sitting", 3},
		{"Größe", "grösse", 2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := editDistance(tt.a, tt.b); got != tt.want {
				t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := editDistance(tt.b, tt.a); got != tt.want {
				t.Errorf("editDistance(%q, %q) = %d, want %d", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestMaxEdits(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"Id", 1},
		{"Usrs", 1},
		{"Patient", 2},
		{"postgress", 3},
		{"IsolationOrder", 3},
	}
	for _, tt := range tests {
		if got := maxEdits(tt.input); got != tt.want {
			t.Errorf("maxEdits(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// -----------------------------------------------------------------------------
// FindClosestMatch Tests
// -----------------------------------------------------------------------------

func TestFindClosestMatch(t *testing.T) {
	tables := []string{
		"Admissions", "HAICases", "IsolationOrders", "LabRequests",
		"LabResults", "Patients", "Users", "Wards",
	}

	tests := []struct {
		input   string
		wantOk  bool
		wantVal string
	}{
		{"Patient", true, "Patients"},     // singular
		{"Admision", true, "Admissions"},  // missing letters
		{"LabResult", true, "LabResults"}, // singular
		{"Usrs", true, "Users"},           // missing letter
		{"Pharmacy", false, ""},           // no match (too far)
		{"Wards", true, "Wards"},          // exact match (distance 0)
		{"patients", true, "Patients"},    // case only
		{"Wrads", true, "Wards"},          // adjacent swap
		{"Id", false, ""},                 // short input needs a near match
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			match, ok := FindClosestMatch(tt.input, tables)
			if ok != tt.wantOk {
				t.Errorf("FindClosestMatch(%q) ok = %v, want %v", tt.input, ok, tt.wantOk)
			}
			if ok && match != tt.wantVal {
				t.Errorf("FindClosestMatch(%q) = %q, want %q", tt.input, match, tt.wantVal)
			}
		})
	}

	t.Run("empty options", func(t *testing.T) {
		_, ok := FindClosestMatch("test", nil)
		if ok {
			t.Error("expected no match with empty options")
		}
	})
}

// -----------------------------------------------------------------------------
// SuggestSimilar Tests
// -----------------------------------------------------------------------------

func TestSuggestSimilar(t *testing.T) {
	options := []string{"users", "patients", "wards"}

	t.Run("returns suggestion for close match", func(t *testing.T) {
		got := SuggestSimilar("usrs", options)
		want := "did you mean 'users'?"
		if got != want {
			t.Errorf("SuggestSimilar('usrs') = %q, want %q", got, want)
		}
	})

	t.Run("returns empty for no match", func(t *testing.T) {
		got := SuggestSimilar("xyzzyx", options)
		if got != "" {
			t.Errorf("SuggestSimilar('xyzzyx') = %q, want empty", got)
		}
	})

	t.Run("returns suggestion for exact match", func(t *testing.T) {
		got := SuggestSimilar("users", options)
		want := "did you mean 'users'?"
		if got != want {
			t.Errorf("SuggestSimilar('users') = %q, want %q", got, want)
		}
	})
}
