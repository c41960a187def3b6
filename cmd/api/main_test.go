package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-panel/backend/internal/config"
)

func TestShippedTemplatesReferenceSeedPersonas(t *testing.T) {
	personas, registry, err := loadCatalogue(config.PanelConfig{
		TemplatesPath: "../../config/panel_configs.json",
	}, zap.NewNop())
	require.NoError(t, err)

	templates := registry.Templates()
	require.NotEmpty(t, templates)
	assert.Equal(t, "balanced", templates[0].ID)

	for _, tmpl := range templates {
		for _, id := range tmpl.PersonaIDs {
			_, ok := personas.FindByID(id)
			assert.True(t, ok, "template %s references unknown persona %s", tmpl.ID, id)
		}
	}

	mod, ok := registry.Moderator()
	require.True(t, ok)
	assert.Equal(t, "moderator-dr-panel", mod.ID)
}

func TestLoadCatalogueMissingTemplates(t *testing.T) {
	_, _, err := loadCatalogue(config.PanelConfig{TemplatesPath: "testdata/missing.json"}, zap.NewNop())
	assert.Error(t, err)
}
