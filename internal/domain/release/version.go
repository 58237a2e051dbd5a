package release

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Version is a semantic version (major.minor.patch with optional
// pre-release and build metadata).
type Version struct {
	// Major is incremented for incompatible changes.
	Major uint64
	// Minor is incremented for backwards-compatible functionality.
	Minor uint64
	// Patch is incremented for backwards-compatible fixes.
	Patch uint64
	// PreRelease is the dot-separated pre-release identifier ("rc1", "beta.2").
	PreRelease string
	// Build is the build metadata; it never affects ordering.
	Build string
}

var (
	// errEmptyVersion is returned when an empty string is parsed.
	errEmptyVersion = errors.New("version string is empty")
	// errMalformedVersion is returned when the version does not follow major.minor.patch.
	errMalformedVersion = errors.New("malformed version string")
)

// ParseVersion parses a semantic version string.
// A single leading "v" is tolerated so git tags can be parsed directly.
func ParseVersion(s string) (Version, error) {
	var v Version

	s = strings.TrimSpace(s)
	if s == "" {
		return v, errEmptyVersion
	}

	s = strings.TrimPrefix(s, "v")

	if build, _, found := cutLast(s, "+"); found {
		v.Build = build
		s = s[:len(s)-len(build)-1]
	}

	if pre, _, found := cutLast(s, "-"); found {
		v.PreRelease = pre
		s = s[:len(s)-len(pre)-1]
	}

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%q: %w", s, errMalformedVersion)
	}

	numbers := make([]uint64, len(parts))

	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("%q: %w", s, errMalformedVersion)
		}

		numbers[i] = n
	}

	v.Major, v.Minor, v.Patch = numbers[0], numbers[1], numbers[2]

	return v, nil
}

// cutLast splits at the first occurrence of sep and returns the suffix.
func cutLast(s, sep string) (suffix, prefix string, found bool) {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return "", s, false
	}

	return s[idx+1:], s[:idx], true
}

// String renders the version without a "v" prefix.
func (v Version) String() string {
	var builder strings.Builder

	builder.WriteString(strconv.FormatUint(v.Major, 10))
	builder.WriteByte('.')
	builder.WriteString(strconv.FormatUint(v.Minor, 10))
	builder.WriteByte('.')
	builder.WriteString(strconv.FormatUint(v.Patch, 10))

	if v.PreRelease != "" {
		builder.WriteByte('-')
		builder.WriteString(v.PreRelease)
	}

	if v.Build != "" {
		builder.WriteByte('+')
		builder.WriteString(v.Build)
	}

	return builder.String()
}

// TagName renders the git tag for this version ("v" prefix, no build metadata).
func (v Version) TagName() string {
	tagged := v
	tagged.Build = ""

	return "v" + tagged.String()
}

// Compare returns -1, 0 or 1 when v is ordered before, equal to,
// or after other. Build metadata is ignored.
func (v Version) Compare(other Version) int {
	if c := compareUint(v.Major, other.Major); c != 0 {
		return c
	}

	if c := compareUint(v.Minor, other.Minor); c != 0 {
		return c
	}

	if c := compareUint(v.Patch, other.Patch); c != 0 {
		return c
	}

	return comparePreRelease(v.PreRelease, other.PreRelease)
}

// Less reports whether v is ordered strictly before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePreRelease orders pre-release identifiers per the semver rules:
// a pre-release sorts before its release, numeric identifiers compare
// numerically and sort before alphanumeric ones.
func comparePreRelease(a, b string) int {
	if a == b {
		return 0
	}

	if a == "" {
		return 1
	}

	if b == "" {
		return -1
	}

	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		if c := compareIdentifier(aParts[i], bParts[i]); c != 0 {
			return c
		}
	}

	// Identical prefixes: the longer identifier list wins.
	switch {
	case len(aParts) < len(bParts):
		return -1
	case len(aParts) > len(bParts):
		return 1
	default:
		return 0
	}
}

func compareIdentifier(a, b string) int {
	aNum, aErr := strconv.ParseUint(a, 10, 64)
	bNum, bErr := strconv.ParseUint(b, 10, 64)

	switch {
	case aErr == nil && bErr == nil:
		return compareUint(aNum, bNum)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
