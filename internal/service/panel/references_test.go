package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCredentials(t *testing.T) {
	tests := map[string]string{
		"Dr. Ada Sterling, PhD":   "Dr. Ada Sterling",
		"Dr. Ada Sterling, Ph.D.": "Dr. Ada Sterling",
		"Jane Roe, LCSW":          "Jane Roe",
		"Sam Poe MD":              "Sam Poe",
		"Ann Lee, PsyD, LMFT":     "Ann Lee",
		"Dr. Md Rahman":           "Dr. Md Rahman",
		"Lee Esq Park":            "Lee Esq Park",
		"Captain Whiskers":        "Captain Whiskers",
		"  Dr. Pixel  ":           "Dr. Pixel",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripCredentials(in), in)
	}
}

func TestDetectReferences(t *testing.T) {
	candidates := []Candidate{
		{ID: "dr-ada-sterling", Name: "Dr. Ada Sterling, PhD"},
		{ID: "captain-whiskers", Name: "Captain Whiskers"},
		{ID: "dr-rex", Name: "Dr. Rex"},
		{ID: "dr-sigmund-2000", Name: "Dr. Sigmund 2000"},
	}

	tests := []struct {
		name   string
		text   string
		author string
		want   []string
	}{
		{name: "full name without credentials", text: "As Dr. Ada Sterling noted, sleep matters.", want: []string{"dr-ada-sterling"}},
		{name: "last name", text: "I side with sterling here.", want: []string{"dr-ada-sterling"}},
		{name: "first two words", text: "captain whiskers would purr at that", want: []string{"captain-whiskers"}},
		{name: "short last word ignored", text: "rex would disagree", want: []string{}},
		{name: "short name in full", text: "DR. REX is right", want: []string{"dr-rex"}},
		{name: "author excluded", text: "Dr. Ada Sterling here again.", author: "dr-ada-sterling", want: []string{}},
		{name: "candidate order", text: "Whiskers and Sterling both", want: []string{"dr-ada-sterling", "captain-whiskers"}},
		{name: "nothing", text: "Take a deep breath.", want: []string{}},
		{name: "empty", text: "", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectReferences(tt.text, tt.author, candidates)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectReferencesDeduplicates(t *testing.T) {
	candidates := []Candidate{
		{ID: "captain-whiskers", Name: "Captain Whiskers"},
		{ID: "captain-whiskers", Name: "Captain Whiskers"},
	}
	got := DetectReferences("Captain Whiskers, Captain Whiskers!", "", candidates)
	assert.Equal(t, []string{"captain-whiskers"}, got)
}
