package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestVersion_StringIncludesOptionalFields(t *testing.T) {
	origNoColor := color.NoColor
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() {
		color.NoColor = origNoColor
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	}()

	color.NoColor = true
	Version = "1.2.3-rc.1"
	GitCommit = "abc123"
	BuildDate = "2024-01-15T10:30:00Z"

	got := String()
	want := "cg 1.2.3-rc.1 (abc123) built 2024-01-15T10:30:00Z"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestVersion_ColoredKeepsNonSemver(t *testing.T) {
	origVersion := Version
	defer func() { Version = origVersion }()

	Version = "devel"
	if got := Colored(); got != "devel" {
		t.Errorf("Colored() = %q, want %q", got, "devel")
	}
	Version = "2.0.0"
	if got := Colored(); !strings.Contains(got, "2") {
		t.Errorf("Colored() = %q", got)
	}
}
