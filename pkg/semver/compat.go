// Package semver checks client version constraints against the decoder catalog version.
package semver

import (
	"fmt"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:compat"

var (
	majorOnlyRegex    = regexp.MustCompile(`^\d+$`)
	exactVersionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(-[\w.]+)?(\+[\w.]+)?$`)
)

// IsMajorOnly checks if a range is a major-only specifier (e.g., "1").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// IsExactVersion checks if a range is an exact version (e.g., "1.2.0").
func IsExactVersion(rangeStr string) bool {
	return exactVersionRegex.MatchString(rangeStr)
}

// ExtractMajorFromRange extracts the major version if the range is major-only.
// Returns -1 if not a major-only range.
func ExtractMajorFromRange(rangeStr string) int {
	if !IsMajorOnly(rangeStr) {
		return -1
	}
	var major int
	fmt.Sscanf(rangeStr, "%d", &major)
	return major
}

// Satisfies reports whether version matches constraint.
//
// Supported constraints:
//   - ""              (anything)
//   - 1               (major only)
//   - 1.2.0           (exact version)
//   - ^1.2.0, ~1.2.0  (caret / tilde ranges)
//   - >=1.0.0 <2.0.0  (comparison ranges)
func Satisfies(version, constraint string) (bool, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return true, nil
	}

	v, err := masterminds.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("%s - invalid version %q: %w", logPrefix, version, err)
	}

	if IsMajorOnly(constraint) {
		return int(v.Major()) == ExtractMajorFromRange(constraint), nil
	}
	if IsExactVersion(constraint) {
		want, err := masterminds.NewVersion(constraint)
		if err != nil {
			return false, fmt.Errorf("%s - invalid version %q: %w", logPrefix, constraint, err)
		}
		return v.Equal(want), nil
	}

	c, err := masterminds.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("%s - invalid constraint %q: %w", logPrefix, constraint, err)
	}
	return c.Check(v), nil
}

// Major returns the major component of version.
func Major(version string) (int, error) {
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return 0, fmt.Errorf("%s - invalid version %q: %w", logPrefix, version, err)
	}
	return int(v.Major()), nil
}
