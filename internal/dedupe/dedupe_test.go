package dedupe

import (
	"reflect"
	"testing"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123 Main St, Springfield, IL 62701", "123 main street springfield il 62701"},
		{"123 MAIN STREET, Springfield, Illinois 62701", "123 main street springfield il 62701"},
		{"456 Oak Ave., Ste. 200", "456 oak avenue suite 200"},
		{"P.O. Box 4410", "p o box 4410"},
		{"789 Elm Blvd, New York, New York", "789 elm boulevard ny ny"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in, KindAddress); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Roe, Esq.", "jane roe"},
		{"JOHN Q. DOE JR.", "john q doe"},
		{"Jane Roe", "jane roe"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in, KindName); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalizeMergesAddressVariants(t *testing.T) {
	got := Canonicalize([]string{
		"123 Main St, Suite 400, Springfield, IL 62701",
		"123 Main St Springfield, IL 62701",
	}, KindAddress)

	want := []string{"123 Main St, Suite 400, Springfield, IL 62701"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Canonicalize = %v, want the suite-qualified variant only", got)
	}
}

func TestCanonicalizeNeverFuzzesNumbers(t *testing.T) {
	got := Canonicalize([]string{
		"123 Main St",
		"124 Main St",
	}, KindAddress)
	if len(got) != 2 {
		t.Fatalf("got %v, want both addresses kept: street numbers differ", got)
	}
}

func TestCanonicalizeFuzzyMergeWithMatchingNumbers(t *testing.T) {
	// One-character typo in the street name, identical numbers: one entry.
	got := Canonicalize([]string{
		"123 Main Street, Springfield, IL 62701",
		"123 Main Stret, Springfield, IL 62701",
	}, KindAddress)
	if len(got) != 1 {
		t.Fatalf("got %v, want typo variant merged", got)
	}
}

func TestCanonicalizePrefersLongerLiteralOnTie(t *testing.T) {
	// Same completeness either way; the longer literal wins.
	got := Canonicalize([]string{
		"123 Main St, Springfield, IL 62701",
		"123 Main Street, Springfield, IL 62701",
	}, KindAddress)
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0] != "123 Main Street, Springfield, IL 62701" {
		t.Errorf("representative = %q, want the spelled-out variant", got[0])
	}
}

func TestCanonicalizeKeepsZipMismatchSeparate(t *testing.T) {
	// A missing zip changes the numeric tokens; merging would guess.
	got := Canonicalize([]string{
		"123 Main Street, Springfield, IL",
		"123 Main Street, Springfield, IL 62701",
	}, KindAddress)
	if len(got) != 2 {
		t.Errorf("got %v, want both kept", got)
	}
}

func TestCanonicalizeInsertionOrder(t *testing.T) {
	got := Canonicalize([]string{
		"456 Oak Avenue, Decatur, IL 62521",
		"123 Main Street, Springfield, IL 62701",
		"456 Oak Ave, Decatur, IL 62521",
	}, KindAddress)
	want := []string{
		"456 Oak Avenue, Decatur, IL 62521",
		"123 Main Street, Springfield, IL 62701",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Canonicalize = %v, want first-appearance order %v", got, want)
	}
}

func TestCanonicalizeNames(t *testing.T) {
	got := Canonicalize([]string{
		"Jane Roe, Esq.",
		"Jane Roe",
		"John Doe",
	}, KindName)
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 people", got)
	}
	if got[0] != "Jane Roe, Esq." {
		t.Errorf("first entry = %q, want the fuller literal", got[0])
	}
	if got[1] != "John Doe" {
		t.Errorf("second entry = %q", got[1])
	}
}

func TestCanonicalizeSkipsBlanks(t *testing.T) {
	got := Canonicalize([]string{"", "  ", "123 Main Street"}, KindAddress)
	if len(got) != 1 || got[0] != "123 Main Street" {
		t.Errorf("got %v", got)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"street", "stret", 1},
		{"main", "oak", 4},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q,%q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
