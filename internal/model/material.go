// Package model defines the domain types shared across the takeoff pipeline.
package model

import (
	_ "embed"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FormulaTag selects the quantity formula applied to a material. Materials
// with an empty tag have no takeoff formula and are skipped by the estimator.
type FormulaTag string

const (
	FormulaExteriorStuds      FormulaTag = "exterior_studs"
	FormulaInteriorStuds      FormulaTag = "interior_studs"
	FormulaSheetGoods         FormulaTag = "sheet_goods"
	FormulaRoofSheet          FormulaTag = "roof_sheet"
	FormulaPaintInterior      FormulaTag = "paint_interior"
	FormulaPaintExterior      FormulaTag = "paint_exterior"
	FormulaConcreteSlab       FormulaTag = "concrete_slab"
	FormulaInsulationExterior FormulaTag = "insulation_exterior"
	FormulaInsulationInterior FormulaTag = "insulation_interior"
)

// Material is one catalog entry. The catalog is loaded once at process start
// and immutable afterwards; adding a material is a data change, not code.
type Material struct {
	ID            string     `yaml:"id" json:"id"`
	Name          string     `yaml:"name" json:"name"`
	Category      string     `yaml:"category" json:"category"`
	Unit          string     `yaml:"unit" json:"unit"`
	WasteFactor   float64    `yaml:"waste_factor" json:"waste_factor"`
	Coverage      float64    `yaml:"coverage,omitempty" json:"coverage,omitempty"`
	FallbackPrice float64    `yaml:"fallback_price" json:"fallback_price"`
	Formula       FormulaTag `yaml:"formula,omitempty" json:"formula,omitempty"`
}

// Catalog is the immutable material registry.
type Catalog struct {
	byID  map[string]Material
	order []string
}

//go:embed materials.yaml
var catalogData []byte

// LoadCatalog builds the registry from the embedded catalog file.
func LoadCatalog() (*Catalog, error) {
	var raw struct {
		Materials []Material `yaml:"materials"`
	}
	if err := yaml.Unmarshal(catalogData, &raw); err != nil {
		return nil, eris.Wrap(err, "model: parse material catalog")
	}

	c := &Catalog{byID: make(map[string]Material, len(raw.Materials))}
	for _, m := range raw.Materials {
		if m.ID == "" {
			return nil, eris.New("model: catalog entry missing id")
		}
		if m.WasteFactor < 0 || m.WasteFactor >= 1 {
			return nil, eris.Errorf("model: material %s waste factor %.2f out of range", m.ID, m.WasteFactor)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, eris.Errorf("model: duplicate material id %s", m.ID)
		}
		c.byID[m.ID] = m
		c.order = append(c.order, m.ID)
	}
	return c, nil
}

// Get returns the material for an id.
func (c *Catalog) Get(id string) (Material, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// IDs returns all material ids in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Select resolves a list of requested ids against the catalog, preserving
// request order. Unknown ids are reported, not silently dropped.
func (c *Catalog) Select(ids []string) ([]Material, []string) {
	var materials []Material
	var unknown []string
	for _, id := range ids {
		if m, ok := c.byID[id]; ok {
			materials = append(materials, m)
		} else {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	return materials, unknown
}

// FallbackPrices returns the static price table keyed by material id.
func (c *Catalog) FallbackPrices() map[string]float64 {
	out := make(map[string]float64, len(c.byID))
	for id, m := range c.byID {
		out[id] = m.FallbackPrice
	}
	return out
}
