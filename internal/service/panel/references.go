package panel

import (
	"regexp"
	"strings"
)

// Candidate is a persona that generated text may mention.
type Candidate struct {
	ID   string
	Name string
}

const credential = `(?:ph\.?\s?d|m\.?\s?d|psy\.?\s?d|lcsw|lmft|lpc|esq)\.?`

// Everything after ", <credential>" goes; without a comma only a final
// credential token does, so "Dr. Md Rahman" keeps its name.
var credentialSuffix = regexp.MustCompile(`(?i)(?:,\s*` + credential + `(?:[\s,].*)?|\s+` + credential + `)$`)

// StripCredentials removes trailing credentials such as ", PhD" from a display name.
func StripCredentials(name string) string {
	return strings.TrimSpace(credentialSuffix.ReplaceAllString(strings.TrimSpace(name), ""))
}

// DetectReferences returns the ids of candidates mentioned in text, in
// candidate order. A candidate matches on its credential-stripped name, on the
// first two words of that name, or on its last word when that word is longer
// than three characters. Matching is case-insensitive substring search.
func DetectReferences(text, authorID string, candidates []Candidate) []string {
	refs := make([]string, 0)
	lower := strings.ToLower(text)
	if lower == "" {
		return refs
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c.ID == authorID || c.Name == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		if mentions(lower, StripCredentials(c.Name)) {
			seen[c.ID] = struct{}{}
			refs = append(refs, c.ID)
		}
	}
	return refs
}

func mentions(lowerText, name string) bool {
	name = strings.ToLower(name)
	if name == "" {
		return false
	}
	if strings.Contains(lowerText, name) {
		return true
	}

	parts := strings.Fields(name)
	if len(parts) < 2 {
		return false
	}
	if strings.Contains(lowerText, parts[0]+" "+parts[1]) {
		return true
	}
	last := parts[len(parts)-1]
	return len([]rune(last)) > 3 && strings.Contains(lowerText, last)
}
