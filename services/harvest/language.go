package harvest

import "strings"

// canonicalLanguages collapses upstream spelling variants: matching is
// by containment so "Spanish - Spain" and "Spanish - Latin America"
// both fold to "spanish". Languages outside this list pass through
// unchanged (lowercased), it is an alias table, not a whitelist.
var canonicalLanguages = []string{
	"english",
	"spanish",
	"german",
	"french",
	"italian",
	"portuguese",
	"russian",
	"polish",
	"dutch",
	"danish",
	"swedish",
	"norwegian",
	"finnish",
	"czech",
	"hungarian",
	"romanian",
	"bulgarian",
	"greek",
	"turkish",
	"arabic",
	"ukrainian",
	"japanese",
	"korean",
	"chinese",
	"thai",
	"vietnamese",
}

// markupJunk is HTML debris SteamSpy leaves inside its languages
// field. Longer fragments first so e.g. "lt;" goes before ";".
var markupJunk = []string{
	"strong", "amp", "lt;", "gt;", "[b]", "br", "\\/", "/", "*", "&", ";",
}

// CanonicalLanguage folds a raw upstream language string into the
// canonical vocabulary. Values that match no canonical name are kept
// as their own lowercased normalized value, so rarer languages still
// get a dimension row. Returns "" only for blank input.
func CanonicalLanguage(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}
	for _, canon := range canonicalLanguages {
		if strings.Contains(lowered, canon) {
			return canon
		}
	}
	return lowered
}

// cleanLanguages splits the raw comma-separated languages field and
// strips the markup junk upstream embeds in it. Entries that are pure
// annotations (hash notes, parentheticals, "not supported" remarks)
// are removed entirely.
func cleanLanguages(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", ",")
	raw = strings.ReplaceAll(raw, "\n", ",")

	var out []string
	for _, part := range strings.Split(raw, ",") {
		for _, junk := range markupJunk {
			part = strings.ReplaceAll(part, junk, "")
		}
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "#") || strings.HasPrefix(part, "(") {
			continue
		}
		if strings.Contains(strings.ToLower(part), "not supported") {
			continue
		}
		out = append(out, part)
	}
	return out
}

// splitList splits a comma-separated field such as the genre list,
// trimming whitespace and dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
