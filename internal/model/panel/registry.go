package panel

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultTemplateOrder sorts templates without an explicit order last.
const DefaultTemplateOrder = 999

// Template is a named, ordered persona line-up.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PersonaIDs  []string `json:"persona_ids"`
	BestFor     string   `json:"best_for"`
	Icon        string   `json:"icon"`
	Order       int      `json:"order"`
	Default     bool     `json:"default"`
}

// Moderator is the non-panelist persona that introduces and summarizes.
type Moderator struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Role               string            `json:"role"`
	SystemInstructions string            `json:"system_instructions"`
	MoodAssets         map[string]string `json:"mood_assets,omitempty"`
}

// Registry holds the templates and moderator parsed from one file. It is
// immutable once returned by a Loader.
type Registry struct {
	path      string
	templates map[string]Template
	moderator *Moderator
}

// Path returns the file the registry was loaded from.
func (r *Registry) Path() string { return r.path }

// Template looks up a template by id.
func (r *Registry) Template(id string) (Template, bool) {
	t, ok := r.templates[id]
	if !ok {
		return Template{}, false
	}
	t.PersonaIDs = slices.Clone(t.PersonaIDs)
	return t, true
}

// Moderator returns the configured moderator, if any.
func (r *Registry) Moderator() (Moderator, bool) {
	if r.moderator == nil {
		return Moderator{}, false
	}
	return *r.moderator, true
}

// Templates lists every template by ascending order, then id.
func (r *Registry) Templates() []Template {
	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		t.PersonaIDs = slices.Clone(t.PersonaIDs)
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Template) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), strings.Compare(a.ID, b.ID))
	})
	return out
}

// Loader parses template files once per path and caches the result.
type Loader struct {
	mu    sync.Mutex
	cache map[string]*Registry
}

// NewLoader returns an empty Loader.
func NewLoader() *Loader {
	return &Loader{cache: make(map[string]*Registry)}
}

// Load returns the registry for path, reading the file only on first use.
func (l *Loader) Load(path string) (*Registry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if reg, ok := l.cache[path]; ok {
		return reg, nil
	}

	reg, err := parseRegistry(path)
	if err != nil {
		return nil, err
	}
	l.cache[path] = reg
	return reg, nil
}

type templateDoc struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	PersonaIDs  []string `yaml:"persona_ids"`
	BestFor     string   `yaml:"best_for"`
	Icon        string   `yaml:"icon"`
	Order       *int     `yaml:"order"`
	Default     bool     `yaml:"default"`
}

// moderatorDoc accepts both the snake_case keys and the camelCase keys used
// by the persona catalogue.
type moderatorDoc struct {
	ID                 string            `yaml:"id"`
	Name               string            `yaml:"name"`
	Role               string            `yaml:"role"`
	SystemInstructions string            `yaml:"system_instructions"`
	SystemPrompt       string            `yaml:"systemPrompt"`
	MoodAssets         map[string]string `yaml:"mood_assets"`
	ASCIIArt           map[string]string `yaml:"asciiArt"`
}

type registryDoc struct {
	Moderator      *moderatorDoc           `yaml:"moderator"`
	PanelTemplates *map[string]templateDoc `yaml:"panel_templates"`
	PanelConfigs   *map[string]templateDoc `yaml:"panel_configs"`
}

func parseRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var doc registryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	raw := doc.PanelTemplates
	if raw == nil {
		raw = doc.PanelConfigs
	}
	if raw == nil {
		return nil, &LoadError{Path: path, Err: errors.New("missing panel_templates field")}
	}

	reg := &Registry{path: path, templates: make(map[string]Template, len(*raw))}
	for key, td := range *raw {
		t, err := buildTemplate(key, td)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		reg.templates[t.ID] = t
	}

	if doc.Moderator != nil {
		m, err := buildModerator(*doc.Moderator)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		reg.moderator = &m
	}

	return reg, nil
}

func buildTemplate(key string, td templateDoc) (Template, error) {
	id := strings.TrimSpace(td.ID)
	if id == "" {
		id = key
	}
	if id != key {
		return Template{}, fmt.Errorf("template %q declares mismatched id %q", key, id)
	}
	if n := len(td.PersonaIDs); n < MinPanelists || n > MaxPanelists {
		return Template{}, fmt.Errorf("template %q: %w", key, &PersonaCountError{Got: n})
	}
	for _, pid := range td.PersonaIDs {
		if strings.TrimSpace(pid) == "" {
			return Template{}, fmt.Errorf("template %q has an empty persona id", key)
		}
	}

	order := DefaultTemplateOrder
	if td.Order != nil {
		order = *td.Order
	}

	return Template{
		ID:          id,
		Name:        td.Name,
		Description: td.Description,
		PersonaIDs:  slices.Clone(td.PersonaIDs),
		BestFor:     td.BestFor,
		Icon:        td.Icon,
		Order:       order,
		Default:     td.Default,
	}, nil
}

func buildModerator(md moderatorDoc) (Moderator, error) {
	if strings.TrimSpace(md.ID) == "" {
		return Moderator{}, errors.New("moderator is missing an id")
	}
	m := Moderator{
		ID:                 md.ID,
		Name:               md.Name,
		Role:               md.Role,
		SystemInstructions: cmp.Or(md.SystemInstructions, md.SystemPrompt),
		MoodAssets:         md.MoodAssets,
	}
	if m.MoodAssets == nil {
		m.MoodAssets = md.ASCIIArt
	}
	if m.Name == "" {
		m.Name = m.ID
	}
	return m, nil
}
