// Package version compares the loose dotted version strings found in release
// tags and dependency ranges. It is not a semantic-versioning implementation:
// pre-release and build suffixes are ignored and only the first three numeric
// components take part in a comparison.
package version

import (
	"regexp"
	"strconv"
	"strings"
)

const components = 3

var (
	rangePrefix = regexp.MustCompile(`^[\^~>=v]+`)
	baseVersion = regexp.MustCompile(`^v?(\d+\.\d+\.\d+)`)
)

// Clean strips a leading range operator or 'v' prefix, e.g. "^1.2.3" -> "1.2.3".
func Clean(v string) string {
	return strings.TrimSpace(rangePrefix.ReplaceAllString(strings.TrimSpace(v), ""))
}

// Parse returns the first three numeric components of v. Missing or
// non-numeric components are 0; "1.49.0-beta.1" parses as [1 49 0].
func Parse(v string) [components]int {
	var out [components]int
	parts := strings.SplitN(Clean(v), ".", components+1)
	for i := 0; i < components && i < len(parts); i++ {
		out[i] = leadingInt(parts[i])
	}
	return out
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// Compare returns 1 if a > b, -1 if a < b and 0 when the first three components are equal.
func Compare(a, b string) int {
	pa, pb := Parse(a), Parse(b)
	for i := 0; i < components; i++ {
		switch {
		case pa[i] > pb[i]:
			return 1
		case pa[i] < pb[i]:
			return -1
		}
	}
	return 0
}

// IsGreaterOrEqual reports whether v >= target.
func IsGreaterOrEqual(v, target string) bool {
	return Compare(v, target) >= 0
}

// Base extracts the "X.Y.Z" part of a tag such as "v1.49.0-beta.1".
func Base(tag string) (string, bool) {
	m := baseVersion.FindStringSubmatch(strings.TrimSpace(tag))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Status classifies a declared dependency range against a target threshold.
type Status string

const (
	StatusMissing   Status = "missing"
	StatusUntracked Status = "untracked"
	StatusCompliant Status = "compliant"
	StatusOutdated  Status = "outdated"
)

// Missing is the placeholder used when a repository does not declare a package.
const Missing = "-"

// StatusOf returns the compliance status of a declared version.
func StatusOf(declared, target string) Status {
	switch {
	case declared == "" || declared == Missing:
		return StatusMissing
	case target == "":
		return StatusUntracked
	case IsGreaterOrEqual(declared, target):
		return StatusCompliant
	default:
		return StatusOutdated
	}
}
