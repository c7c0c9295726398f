package version

import "testing"

func TestString(t *testing.T) {
	oldVersion, oldSHA, oldTime := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = oldVersion, oldSHA, oldTime }()

	Version, GitSHA, BuildTime = "1.2.3", "abc123", "2024-01-01"
	want := "scenegen version 1.2.3 (commit abc123, built 2024-01-01)"
	if got := String("scenegen"); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
