package version

import "testing"

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestVersionStringIncludesCommit(t *testing.T) {
	old := Commit
	Commit = "abc123"
	t.Cleanup(func() { Commit = old })
	if got, want := String(), Version+" (abc123)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
