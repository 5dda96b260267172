package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withPlainOutput(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestColoredKeepsSuffix(t *testing.T) {
	withPlainOutput(t)
	tests := []struct {
		version string
		want    string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"1.0.0-rc.1+build.123", "1.0.0-rc.1+build.123"},
		{"nightly", "nightly"},
	}
	orig := Version
	t.Cleanup(func() { Version = orig })
	for _, tt := range tests {
		Version = tt.version
		if got := Colored(); got != tt.want {
			t.Errorf("Colored() with %q = %q, want %q", tt.version, got, tt.want)
		}
	}
}

func TestLineIncludesBuildInfo(t *testing.T) {
	withPlainOutput(t)
	origCommit, origDate := GitCommit, BuildDate
	t.Cleanup(func() { GitCommit, BuildDate = origCommit, origDate })

	GitCommit = "1234567890abcdef1234"
	BuildDate = "2024-01-15T10:30:00Z"
	line := Line()
	for _, want := range []string{"ilmerge ", "(1234567890ab)", "built 2024-01-15T10:30:00Z", runtime.GOOS + "/" + runtime.GOARCH} {
		if !strings.Contains(line, want) {
			t.Errorf("Line() = %q, missing %q", line, want)
		}
	}

	GitCommit, BuildDate = "", ""
	if strings.Contains(Line(), "built") {
		t.Errorf("Line() without a build date = %q", Line())
	}
}
