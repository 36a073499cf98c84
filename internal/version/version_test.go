package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	origVersion, origSHA, origTime := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = origVersion, origSHA, origTime }()

	Version = "1.2.3"
	GitSHA = "abc1234"
	BuildTime = "2026-01-01T00:00:00Z"

	got := String()
	for _, want := range []string{"oscbridge", "1.2.3", "abc1234", "2026-01-01T00:00:00Z"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
