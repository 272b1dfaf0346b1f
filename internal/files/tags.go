package files

import "strings"

// canonicalTags trims every comma-separated segment and rejoins them.
// Nil or blank input means no tags.
func canonicalTags(raw *string) *string {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	parts := strings.Split(*raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	joined := strings.Join(parts, ",")
	return &joined
}

// splitTags turns the stored form back into a list.
func splitTags(tags *string) []string {
	if tags == nil {
		return nil
	}
	return strings.Split(*tags, ",")
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// extensionOf returns the text after the last '.', or the whole name when
// there is no dot.
func extensionOf(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		return filename[i+1:]
	}
	return filename
}
