package version

import (
	"github.com/Masterminds/semver/v3"
)

var (
	parsedVersion  *semver.Version
	parsedFrom     string
	parseAttempted bool
)

// resetParsedVersion clears the cached parsed version for testing.
func resetParsedVersion() {
	parsedVersion = nil
	parsedFrom = ""
	parseAttempted = false
}

// Parsed returns the parsed semantic version, or nil if unparseable.
// The result is cached until Version changes.
func Parsed() *semver.Version {
	if parseAttempted && parsedFrom == Version {
		return parsedVersion
	}
	parseAttempted = true
	parsedFrom = Version
	parsedVersion = nil

	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil
	}
	parsedVersion = v
	return parsedVersion
}

// IsPrerelease returns true if the current version is a pre-release.
// Returns false for unparseable versions (like "dev").
func IsPrerelease() bool {
	v := Parsed()
	if v == nil {
		return false
	}
	return v.Prerelease() != ""
}

// IsDevBuild returns true if this is a development build (no valid semver).
func IsDevBuild() bool {
	return Parsed() == nil
}

// Satisfies reports whether this build meets a server-declared minimum
// client version, e.g. ">= 1.4.0". Development builds and empty or
// malformed constraints always pass.
func Satisfies(constraint string) bool {
	if constraint == "" {
		return true
	}
	current := Parsed()
	if current == nil {
		return true
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return true
	}
	return c.Check(current)
}
