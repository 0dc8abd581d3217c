package event

import (
	"testing"
	"time"
)

func TestRecordKey(t *testing.T) {
	a := Record{Title: "Band X", Venue: "The Hall", Date: "Fri May 2"}
	b := Record{Title: "  band x ", Venue: "the   hall", Date: "fri may 2", URL: "https://other.example.com"}
	c := Record{Title: "Band Y", Venue: "The Hall", Date: "Fri May 2"}

	if a.Key() != b.Key() {
		t.Errorf("Key should ignore case and spacing: %s vs %s", a.Key(), b.Key())
	}
	if a.Key() == c.Key() {
		t.Error("different titles should produce different keys")
	}
	if len(a.Key()) != 40 { // SHA1 produces 40 hex characters
		t.Errorf("expected key length of 40, got %d", len(a.Key()))
	}
}

func TestRecordWithToday(t *testing.T) {
	ref := NewRefDate(time.Date(2025, time.May, 2, 9, 0, 0, 0, time.UTC))
	orig := Record{Title: "Band X", Date: "Fri May 2"}

	got := orig.WithToday(ref)
	if !got.IsToday {
		t.Error("expected IsToday to be set")
	}
	if orig.IsToday {
		t.Error("WithToday should not modify the original record")
	}
}

func TestCollapseSpace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Fri \n  May 2 ", "Fri May 2"},
		{"\t8:00\tPM", "8:00 PM"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := CollapseSpace(tt.in); got != tt.want {
			t.Errorf("CollapseSpace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
