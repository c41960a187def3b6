package panel

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTemplates = `{
  "moderator": {
    "id": "moderator-dr-panel",
    "name": "Dr. Panel",
    "role": "moderator",
    "systemPrompt": "You are Dr. Panel, a neutral moderator...",
    "asciiArt": {"neutral": "[M]"}
  },
  "panel_templates": {
    "balanced": {
      "id": "balanced",
      "name": "The Balanced Panel",
      "description": "Retro humor, evidence-based therapy, whimsical wisdom",
      "persona_ids": ["dr-sigmund-2000", "dr-ada-sterling", "captain-whiskers"],
      "best_for": "General problems",
      "icon": "scale",
      "order": 1,
      "default": true
    },
    "tough-love": {
      "name": "The Tough Love Panel",
      "persona_ids": ["dr-rex-hardcastle", "dr-ada-sterling"],
      "order": 2
    },
    "misc": {
      "name": "Unordered",
      "persona_ids": ["dr-pixel", "dr-luna-cosmos"]
    }
  }
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoaderLoadsTemplatesAndModerator(t *testing.T) {
	path := writeFile(t, "panel_configs.json", sampleTemplates)

	reg, err := NewLoader().Load(path)
	require.NoError(t, err)

	tmpl, ok := reg.Template("balanced")
	require.True(t, ok)
	assert.Equal(t, "The Balanced Panel", tmpl.Name)
	assert.Equal(t, []string{"dr-sigmund-2000", "dr-ada-sterling", "captain-whiskers"}, tmpl.PersonaIDs)
	assert.True(t, tmpl.Default)

	tough, ok := reg.Template("tough-love")
	require.True(t, ok)
	assert.Equal(t, "tough-love", tough.ID)

	_, ok = reg.Template("nope")
	assert.False(t, ok)

	mod, ok := reg.Moderator()
	require.True(t, ok)
	assert.Equal(t, "moderator-dr-panel", mod.ID)
	assert.Equal(t, "You are Dr. Panel, a neutral moderator...", mod.SystemInstructions)
	assert.Equal(t, "[M]", mod.MoodAssets["neutral"])
}

func TestLoaderCachesByPath(t *testing.T) {
	path := writeFile(t, "panel_configs.json", sampleTemplates)
	loader := NewLoader()

	first, err := loader.Load(path)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	second, err := loader.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegistryTemplatesSortedByOrder(t *testing.T) {
	reg, err := NewLoader().Load(writeFile(t, "panel_configs.json", sampleTemplates))
	require.NoError(t, err)

	var ids []string
	for _, tmpl := range reg.Templates() {
		ids = append(ids, tmpl.ID)
	}
	assert.Equal(t, []string{"balanced", "tough-love", "misc"}, ids)
}

func TestRegistryTemplateReturnsCopy(t *testing.T) {
	reg, err := NewLoader().Load(writeFile(t, "panel_configs.json", sampleTemplates))
	require.NoError(t, err)

	tmpl, _ := reg.Template("balanced")
	tmpl.PersonaIDs[0] = "mutated"

	again, _ := reg.Template("balanced")
	assert.Equal(t, "dr-sigmund-2000", again.PersonaIDs[0])
}

func TestLoaderErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		want string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.json") },
			want: "no such file",
		},
		{
			name: "malformed",
			path: func(t *testing.T) string { return writeFile(t, "bad.json", "{not json") },
			want: "load panel config",
		},
		{
			name: "missing templates field",
			path: func(t *testing.T) string { return writeFile(t, "empty.json", `{"moderator": {"id": "m"}}`) },
			want: "missing panel_templates",
		},
		{
			name: "too few personas",
			path: func(t *testing.T) string {
				return writeFile(t, "solo.json", `{"panel_templates": {"solo": {"persona_ids": ["a"]}}}`)
			},
			want: "2-4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().Load(tt.path(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfigLoad))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLegacyPanelConfigsKeyAccepted(t *testing.T) {
	path := writeFile(t, "legacy.yaml", "panel_configs:\n  duo:\n    persona_ids: [a, b]\n")

	reg, err := NewLoader().Load(path)
	require.NoError(t, err)

	tmpl, ok := reg.Template("duo")
	require.True(t, ok)
	assert.Equal(t, DefaultTemplateOrder, tmpl.Order)

	_, ok = reg.Moderator()
	assert.False(t, ok)
}
