// Package catalog serves the static persona and UX principle data that
// grounds every evaluation. Catalogs are immutable after load.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

//go:embed personas.yaml
var defaultPersonasYAML []byte

type personaFile struct {
	Personas []domain.Persona `yaml:"personas"`
}

// PersonaCatalog keeps personas in file order so listings are stable.
type PersonaCatalog struct {
	ordered []domain.Persona
	byID    map[string]domain.Persona
}

// LoadPersonas reads the catalog from path, or the embedded default when path
// is empty.
func LoadPersonas(path string) (*PersonaCatalog, error) {
	raw := defaultPersonasYAML
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read persona catalog: %w", err)
		}
	}

	var file personaFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse persona catalog: %w", err)
	}
	if len(file.Personas) == 0 {
		return nil, fmt.Errorf("persona catalog is empty")
	}

	catalog := &PersonaCatalog{
		ordered: file.Personas,
		byID:    make(map[string]domain.Persona, len(file.Personas)),
	}
	for _, p := range file.Personas {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("persona missing id or name: %+v", p)
		}
		if p.TechSavviness < 1 || p.TechSavviness > 5 {
			return nil, fmt.Errorf("persona %s: tech_savviness %d out of range 1-5", p.ID, p.TechSavviness)
		}
		if _, dup := catalog.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %s", p.ID)
		}
		catalog.byID[p.ID] = p
	}
	return catalog, nil
}

func (c *PersonaCatalog) Get(id string) (domain.Persona, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *PersonaCatalog) All() []domain.Persona {
	out := make([]domain.Persona, len(c.ordered))
	copy(out, c.ordered)
	return out
}
