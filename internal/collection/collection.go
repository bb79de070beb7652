// Package collection models the tree of tracked items and handles its YAML
// persistence.
package collection

import (
	"fmt"
	"os"
	"time"

	"github.com/dandi/citecollect/internal/citation"
	"gopkg.in/yaml.v3"
)

// Ref is one resolvable identifier for an item flavor (DOI, RRID, URL, ...).
type Ref struct {
	Type  citation.RefType `yaml:"ref_type"`
	Value string           `yaml:"ref_value"`
}

// Flavor is one version of a tracked item.
type Flavor struct {
	FlavorID    string `yaml:"flavor_id"`
	ReleaseDate string `yaml:"release_date,omitempty"`
	Refs        []Ref  `yaml:"refs"`
}

// Item is a tracked subject (e.g. a dataset) with its versions.
type Item struct {
	ItemID  string   `yaml:"item_id"`
	Name    string   `yaml:"name,omitempty"`
	Flavors []Flavor `yaml:"flavors"`
}

// Discovery holds the discovery configuration for a collection.
type Discovery struct {
	Sources []string `yaml:"sources,omitempty"` // default: all
	Email   string   `yaml:"email,omitempty"`   // polite-pool contact
}

// Collection is the root aggregate loaded from the collection YAML file.
type Collection struct {
	Name          string     `yaml:"name"`
	Description   string     `yaml:"description,omitempty"`
	Items         []Item     `yaml:"items"`
	Discovery     Discovery  `yaml:"discovery,omitempty"`
	LastUpdated   *time.Time `yaml:"last_updated,omitempty"`
	CitationsFile string     `yaml:"citations_file,omitempty"`
}

// Load reads and validates a collection YAML file. Ref values are
// normalized on load (DOIs lower-cased).
func Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var coll Collection
	if err := yaml.Unmarshal(data, &coll); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := coll.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	coll.normalize()

	return &coll, nil
}

// Save writes the collection back to a YAML file.
func (c *Collection) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing collection: %w", err)
	}

	return nil
}

func (c *Collection) validate() error {
	if c.Name == "" {
		return fmt.Errorf("collection must have a name")
	}

	seen := make(map[string]bool)
	for i, item := range c.Items {
		if item.ItemID == "" {
			return fmt.Errorf("item %d must have an item_id", i+1)
		}
		if seen[item.ItemID] {
			return fmt.Errorf("duplicate item_id %q", item.ItemID)
		}
		seen[item.ItemID] = true

		for _, flavor := range item.Flavors {
			if flavor.FlavorID == "" {
				return fmt.Errorf("item %q: flavor must have a flavor_id", item.ItemID)
			}
			for _, ref := range flavor.Refs {
				if !ref.Type.IsValid() {
					return fmt.Errorf("item %q flavor %q: unknown ref_type %q",
						item.ItemID, flavor.FlavorID, ref.Type)
				}
				if ref.Value == "" {
					return fmt.Errorf("item %q flavor %q: ref_value must not be empty",
						item.ItemID, flavor.FlavorID)
				}
			}
		}
	}

	return nil
}

func (c *Collection) normalize() {
	for i := range c.Items {
		for j := range c.Items[i].Flavors {
			for k := range c.Items[i].Flavors[j].Refs {
				ref := &c.Items[i].Flavors[j].Refs[k]
				if ref.Type == citation.RefDOI {
					ref.Value = citation.NormalizeDOI(ref.Value)
				}
			}
		}
	}
}

// AddRef appends a ref to a flavor unless an identical (type, value) pair is
// already present. Reports whether the ref was added.
func (f *Flavor) AddRef(ref Ref) bool {
	for _, existing := range f.Refs {
		if existing.Type == ref.Type && existing.Value == ref.Value {
			return false
		}
	}
	f.Refs = append(f.Refs, ref)
	return true
}
