// Package estimate computes material quantities from project geometry.
// Each material carries a formula tag; the registry maps tags to quantity
// functions so new materials can be added in the catalog without code
// changes when an existing formula fits.
package estimate

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/takeoff-cli/internal/model"
)

const (
	studsPerFoot    = 12.0 // converts wall length to stud count at a given spacing
	platesDivisor   = 8.0  // one extra stud per 8 ft for plates, corners and openings
	sheetCoverage   = 32.0 // 4x8 sheet, square feet
	roofPitchRatio  = 1.25 // roof surface relative to the footprint it covers
	slabSqftPerUnit = 81.0 // slab coverage per concrete unit at 4" depth
)

// formula computes a raw (pre-waste) quantity for one material.
type formula func(g model.ProjectGeometry, m model.Material) float64

var registry = map[model.FormulaTag]formula{
	model.FormulaExteriorStuds:       exteriorStuds,
	model.FormulaInteriorStuds:       interiorStuds,
	model.FormulaSheetGoods:          sheetGoods,
	model.FormulaRoofSheet:           roofSheet,
	model.FormulaPaintInterior:       paintInterior,
	model.FormulaPaintExterior:       paintExterior,
	model.FormulaConcreteSlab:        concreteSlab,
	model.FormulaInsulationExterior:  insulationExterior,
	model.FormulaInsulationInterior:  insulationInterior,
}

// Quantities computes one QuantityResult per material that carries a known
// formula. Waste is applied before the final ceiling so the rounded figure
// already includes the allowance. Materials without a formula are skipped;
// an unknown tag is an error since it signals a malformed catalog.
func Quantities(g model.ProjectGeometry, materials []model.Material) ([]model.QuantityResult, error) {
	results := make([]model.QuantityResult, 0, len(materials))
	for _, m := range materials {
		if m.Formula == "" {
			continue
		}
		fn, ok := registry[m.Formula]
		if !ok {
			return nil, eris.Errorf("estimate: unknown formula %q for material %q", m.Formula, m.ID)
		}
		raw := fn(g, m)
		if raw < 0 {
			raw = 0
		}
		qty := math.Ceil(raw * (1 + m.WasteFactor))
		if raw == 0 {
			qty = 0
			zap.L().Debug("material quantity is zero",
				zap.String("material", m.ID),
				zap.String("formula", string(m.Formula)))
		}
		results = append(results, model.QuantityResult{
			MaterialID: m.ID,
			Quantity:   qty,
			Unit:       m.Unit,
		})
	}
	return results, nil
}

// exteriorStuds counts studs along the exterior perimeter at the scheduled
// spacing, plus one per 8 ft for plates and corners.
func exteriorStuds(g model.ProjectGeometry, _ model.Material) float64 {
	return studRun(g.ExteriorPerimeter(), g.ExteriorWall.SpacingInches)
}

func interiorStuds(g model.ProjectGeometry, _ model.Material) float64 {
	return studRun(g.InteriorWall.Length, g.InteriorWall.SpacingInches)
}

func studRun(length, spacing float64) float64 {
	if length <= 0 || spacing <= 0 {
		return 0
	}
	return length*(studsPerFoot/spacing) + length/platesDivisor
}

// sheetGoods covers both faces of interior partitions and the inside face
// of exterior walls.
func sheetGoods(g model.ProjectGeometry, _ model.Material) float64 {
	interior := g.InteriorWall.Length * g.InteriorWall.Height * 2
	exterior := g.ExteriorWallArea()
	return (interior + exterior) / sheetCoverage
}

func roofSheet(g model.ProjectGeometry, _ model.Material) float64 {
	return g.MainFootprint() * roofPitchRatio / sheetCoverage
}

// paintInterior covers both faces of interior partitions. Coverage comes
// from the material record; a missing coverage yields zero rather than a
// divide-by-zero quantity.
func paintInterior(g model.ProjectGeometry, m model.Material) float64 {
	if m.Coverage <= 0 {
		return 0
	}
	return g.InteriorWall.Length * g.InteriorWall.Height * 2 / m.Coverage
}

func paintExterior(g model.ProjectGeometry, m model.Material) float64 {
	if m.Coverage <= 0 {
		return 0
	}
	return g.ExteriorWallArea() / m.Coverage
}

// concreteSlab pours the basement when present, otherwise a slab under the
// main footprint.
func concreteSlab(g model.ProjectGeometry, _ model.Material) float64 {
	area := g.FloorArea(model.FloorBasement)
	if area <= 0 {
		area = g.MainFootprint()
	}
	return area / slabSqftPerUnit
}

func insulationExterior(g model.ProjectGeometry, _ model.Material) float64 {
	return g.ExteriorWallArea()
}

func insulationInterior(g model.ProjectGeometry, _ model.Material) float64 {
	return g.InteriorWall.Length * g.InteriorWall.Height
}
