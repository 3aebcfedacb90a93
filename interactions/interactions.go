// Package interactions loads the handler specifications of every interaction
// from YAML and serves their rule-type catalogs.
package interactions

import (
	"fmt"
	"os"
	"sort"

	"github.com/meikuraledutech/ruleeditor"
	"gopkg.in/yaml.v3"
)

// Interaction is the YAML form of one interaction.
type Interaction struct {
	// ChoiceBased marks interactions whose rule inputs are picked from the
	// answer choices, such as multiple choice or image click.
	ChoiceBased bool                     `yaml:"choice_based"`
	Handlers    []ruleeditor.HandlerSpec `yaml:"handlers"`
}

type file struct {
	Interactions map[string]Interaction `yaml:"interactions"`
}

// Registry holds the loaded interactions and their catalogs. It is not
// modified after Parse returns.
type Registry struct {
	interactions map[string]Interaction
	catalogs     map[string]ruleeditor.Catalog
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("interactions: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Registry from YAML data.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("interactions: parse: %w", err)
	}
	r := &Registry{
		interactions: make(map[string]Interaction, len(f.Interactions)),
		catalogs:     make(map[string]ruleeditor.Catalog, len(f.Interactions)),
	}
	for id, in := range f.Interactions {
		for _, h := range in.Handlers {
			if h.Name == "" {
				return nil, fmt.Errorf("interactions: %s: handler without a name", id)
			}
		}
		r.interactions[id] = in
		r.catalogs[id] = ruleeditor.BuildCatalog(in.Handlers)
	}
	return r, nil
}

// IDs returns the interaction ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.interactions))
	for id := range r.interactions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether id names a loaded interaction.
func (r *Registry) Has(id string) bool {
	_, ok := r.interactions[id]
	return ok
}

// Catalog returns the rule types of interaction id. Unknown ids get an
// empty catalog.
func (r *Registry) Catalog(id string) ruleeditor.Catalog {
	if cat, ok := r.catalogs[id]; ok {
		return cat
	}
	return ruleeditor.Catalog{}
}

// IsChoiceBased reports whether interaction id takes its rule inputs from
// answer choices.
func (r *Registry) IsChoiceBased(id string) bool {
	return r.interactions[id].ChoiceBased
}
