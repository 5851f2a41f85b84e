package id_test

import (
	"testing"

	"github.com/jobward/jobward/id"
)

func TestNewJobIDHasJobPrefix(t *testing.T) {
	jobID := id.NewJobID()

	if jobID.IsNil() {
		t.Fatal("NewJobID() returned the Nil ID")
	}
	if jobID.Prefix() != id.PrefixJob {
		t.Errorf("Prefix() = %q, want %q", jobID.Prefix(), id.PrefixJob)
	}
}

func TestParseRoundTrip(t *testing.T) {
	original := id.NewJobID()

	parsed, err := id.ParseJobID(original.String())
	if err != nil {
		t.Fatalf("ParseJobID(%q) error: %v", original, err)
	}
	if parsed.String() != original.String() {
		t.Errorf("round trip = %q, want %q", parsed, original)
	}
}

func TestParseRejectsEmptyString(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("Parse(\"\") succeeded, want error")
	}
}

func TestParseJobIDRejectsWrongPrefix(t *testing.T) {
	other := id.New("task")

	if _, err := id.ParseJobID(other.String()); err == nil {
		t.Errorf("ParseJobID(%q) succeeded, want prefix error", other)
	}
}

func TestNilID(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Error("Nil.IsNil() = false")
	}
	if id.Nil.String() != "" {
		t.Errorf("Nil.String() = %q, want empty", id.Nil.String())
	}
}

func TestTextMarshalRoundTrip(t *testing.T) {
	original := id.NewJobID()

	text, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText error: %v", err)
	}

	var decoded id.ID
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText error: %v", err)
	}
	if decoded.String() != original.String() {
		t.Errorf("round trip = %v, want %v", decoded, original)
	}
}
