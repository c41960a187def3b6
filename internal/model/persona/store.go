package persona

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store exposes persona retrieval for the panel service and HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
	index map[string]int
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
// Later entries win when two personas share an id.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{index: make(map[string]int, len(items))}
	for _, item := range items {
		if i, ok := s.index[item.ID]; ok {
			s.items[i] = item
			continue
		}
		s.index[item.ID] = len(s.items)
		s.items = append(s.items, item)
	}
	return s
}

// List returns the personas in load order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	i, ok := s.index[id]
	if !ok {
		return Persona{}, false
	}
	return s.items[i], true
}

// IDs returns the set of known persona ids.
func (s *MemoryStore) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.items))
	for id := range s.index {
		ids[id] = struct{}{}
	}
	return ids
}

type personaFile struct {
	Personas         map[string]Persona `yaml:"personas"`
	DefaultPersonaID string             `yaml:"defaultPersonaId"`
}

// LoadFile reads a personas document ({"personas": {id: {...}}}). JSON input is
// accepted since it is valid YAML.
func LoadFile(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}

	var doc personaFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode personas file %s: %w", path, err)
	}
	if len(doc.Personas) == 0 {
		return nil, errors.New("personas file has no personas")
	}

	items := make([]Persona, 0, len(doc.Personas))
	for key, p := range doc.Personas {
		if strings.TrimSpace(p.ID) == "" {
			p.ID = key
		}
		if p.ID != key {
			return nil, fmt.Errorf("persona %q declares mismatched id %q", key, p.ID)
		}
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("persona %q is missing a name", key)
		}
		items = append(items, p)
	}
	slices.SortFunc(items, func(a, b Persona) int { return strings.Compare(a.ID, b.ID) })
	return items, nil
}
