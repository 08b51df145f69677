// Package pkgver normalizes Arch-style package version strings for kernel
// range checks. Normalization keeps only major.minor and forces the patch
// component to zero: any patch level inside a major.minor band counts as
// in-range. Exact-match checks (precompiled modules) must compare the raw
// strings instead and never go through Parse.
package pkgver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a normalized (major, minor, 0) triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Parse normalizes a version string to a (major, minor, 0) triple. The
// pkgrel suffix (everything after the first '-') and vendor suffixes like
// ".zen1" or ".hardened1" are discarded. Non-numeric or empty input parses
// to (0, 0, 0).
func Parse(s string) Version {
	base, _, _ := strings.Cut(s, "-")

	var clean strings.Builder
	for _, r := range base {
		if (r >= '0' && r <= '9') || r == '.' {
			clean.WriteRune(r)
		}
	}

	var parts []int
	for _, field := range strings.Split(clean.String(), ".") {
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		parts = append(parts, n)
	}

	v := Version{}
	if len(parts) > 0 {
		v.Major = parts[0]
	}
	if len(parts) > 1 {
		v.Minor = parts[1]
	}
	// Patch stays zero regardless of any further components.
	return v
}

// Compare returns -1, 0 or 1 ordering a against b lexicographically by
// (major, minor, patch).
func Compare(a, b Version) int {
	switch {
	case a.Major != b.Major:
		return sign(a.Major - b.Major)
	case a.Minor != b.Minor:
		return sign(a.Minor - b.Minor)
	case a.Patch != b.Patch:
		return sign(a.Patch - b.Patch)
	}
	return 0
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// Range is an inclusive [Min, Max] band of normalized versions.
type Range struct {
	Min Version
	Max Version
}

// ParseRange normalizes the string bounds of a compatibility range.
func ParseRange(min, max string) Range {
	return Range{Min: Parse(min), Max: Parse(max)}
}

// Contains reports whether v falls inside the range, bounds included.
func (r Range) Contains(v Version) bool {
	return Compare(r.Min, v) <= 0 && Compare(v, r.Max) <= 0
}
