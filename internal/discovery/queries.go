package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// GenerateSearchQueries produces the candidate search queries for a
// ProjectIdentity:
//   - versioned (SemVer a.b.c): "{name} a.b.c documentation", "{name} a.b
//     documentation", "{name} documentation"
//   - unversioned: "{name} documentation", "{name} api reference",
//     "{name} tutorial", "{name} guide"
//   - version present but not SemVer-parseable: falls back to
//     "{name} documentation" only, without raising an error.
func GenerateSearchQueries(identity ProjectIdentity) []string {
	if identity.Version == "" {
		return []string{
			fmt.Sprintf("%s documentation", identity.Name),
			fmt.Sprintf("%s api reference", identity.Name),
			fmt.Sprintf("%s tutorial", identity.Name),
			fmt.Sprintf("%s guide", identity.Name),
		}
	}

	major, minor, patch, ok := parseSemVer(identity.Version)
	if !ok {
		return []string{fmt.Sprintf("%s documentation", identity.Name)}
	}

	return []string{
		fmt.Sprintf("%s %d.%d.%d documentation", identity.Name, major, minor, patch),
		fmt.Sprintf("%s %d.%d documentation", identity.Name, major, minor),
		fmt.Sprintf("%s documentation", identity.Name),
	}
}

// parseSemVer parses a strict "a.b.c" version string (an optional
// leading "v" is tolerated). Any other shape (pre-release tags, missing
// components, non-numeric parts) is reported as unparseable rather than
// guessed at.
func parseSemVer(version string) (major, minor, patch int, ok bool) {
	trimmed := strings.TrimPrefix(version, "v")
	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], true
}
