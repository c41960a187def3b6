package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())

	p, ok := store.FindByID("dr-ada-sterling")
	require.True(t, ok)
	assert.Equal(t, "Dr. Ada Sterling, PhD", p.Name)

	_, ok = store.FindByID("nobody")
	assert.False(t, ok)
	assert.Len(t, store.IDs(), len(Seed()))
}

func TestMemoryStoreLaterDuplicateWins(t *testing.T) {
	store := NewMemoryStore([]Persona{
		{ID: "a", Name: "First"},
		{ID: "b", Name: "Bee"},
		{ID: "a", Name: "Second"},
	})

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].Name)
}

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.json")
	doc := `{
  "defaultPersonaId": "dr-pixel",
  "personas": {
    "dr-pixel": {"name": "Dr. Pixel", "systemPrompt": "game on", "asciiArt": {"neutral": "[=]"}},
    "captain-whiskers": {"id": "captain-whiskers", "name": "Captain Whiskers", "systemPrompt": "meow"}
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	items, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "captain-whiskers", items[0].ID)
	assert.Equal(t, "dr-pixel", items[1].ID)
	assert.Equal(t, "[=]", items[1].MoodAssets["neutral"])
}

func TestLoadFileRejectsNamelessPersona(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("personas:\n  ghost:\n    systemPrompt: boo\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a name")
}
