package gate

import (
	"regexp"
	"strings"
)

var (
	// Remaster markers such as "- 2011 Remaster", "(Remastered 2023)" or "[Remastered]".
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`),
	}
	// Alternate version markers such as "(Single Version)", "(Radio Edit)" or "- Live".
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),
		regexp.MustCompile(`\s*\(.*?edit\)`),
		regexp.MustCompile(`\s*\(live\)`),
		regexp.MustCompile(`\s*-\s*live\b.*$`),
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),
		regexp.MustCompile(`\s*-?\s*single\s+version`),
	}
	spaces = regexp.MustCompile(`\s+`)
)

// normalizeTrackName lowercases a title and strips remaster and version markers.
func normalizeTrackName(name string) string {
	n := strings.ToLower(name)
	for _, p := range remasterPatterns {
		n = p.ReplaceAllString(n, "")
	}
	for _, p := range versionPatterns {
		n = p.ReplaceAllString(n, "")
	}
	n = spaces.ReplaceAllString(strings.TrimSpace(n), " ")
	return strings.TrimRight(n, " -")
}

// isRemaster reports whether two titles by the same main artist normalize to
// the same name.
func isRemaster(nameA string, artistsA []string, nameB string, artistsB []string) bool {
	if !sameMainArtist(artistsA, artistsB) {
		return false
	}
	a, b := normalizeTrackName(nameA), normalizeTrackName(nameB)
	return a != "" && a == b
}

// sameMainArtist compares the first credited artist, case-insensitively.
func sameMainArtist(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return strings.EqualFold(a[0], b[0])
}
