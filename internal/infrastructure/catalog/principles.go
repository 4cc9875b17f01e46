package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

//go:embed ux_principles.yaml
var defaultPrinciplesYAML []byte

type principleFile struct {
	Principles []domain.UXPrinciple `yaml:"principles"`
}

const promptPriorityFloor = 4

// PrincipleCatalog indexes UX principles by flow. Lookups return the flow's
// own entries followed by the general set, in file order, filtered to the
// priorities that are worth prompt space.
type PrincipleCatalog struct {
	byFlow map[domain.FlowType][]domain.UXPrinciple
}

func LoadPrinciples(path string) (*PrincipleCatalog, error) {
	raw := defaultPrinciplesYAML
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read principle catalog: %w", err)
		}
	}

	var file principleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse principle catalog: %w", err)
	}
	if len(file.Principles) == 0 {
		return nil, fmt.Errorf("principle catalog is empty")
	}

	catalog := &PrincipleCatalog{byFlow: make(map[domain.FlowType][]domain.UXPrinciple)}
	for _, p := range file.Principles {
		if p.Name == "" {
			return nil, fmt.Errorf("principle missing name: %+v", p)
		}
		if p.Priority < 1 || p.Priority > 5 {
			return nil, fmt.Errorf("principle %s: priority %d out of range 1-5", p.Name, p.Priority)
		}
		flow := domain.ParseFlowType(string(p.Flow))
		catalog.byFlow[flow] = append(catalog.byFlow[flow], p)
	}
	return catalog, nil
}

func (c *PrincipleCatalog) ForFlow(flow domain.FlowType) []domain.UXPrinciple {
	var out []domain.UXPrinciple
	for _, p := range c.byFlow[flow] {
		if p.Priority >= promptPriorityFloor {
			out = append(out, p)
		}
	}
	if flow != domain.FlowGeneral {
		for _, p := range c.byFlow[domain.FlowGeneral] {
			if p.Priority >= promptPriorityFloor {
				out = append(out, p)
			}
		}
	}
	return out
}
