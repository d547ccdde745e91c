package model

import "math"

// FloorName identifies a floor level recognized by the geometry extractor.
type FloorName string

const (
	FloorBasement FloorName = "basement"
	FloorMain     FloorName = "main"
	FloorUpper    FloorName = "upper"
	FloorGarage   FloorName = "garage"
)

// WallSpec describes one class of wall (exterior or interior) from the
// blueprint's wall schedule.
type WallSpec struct {
	Length        float64 `json:"length"`
	Height        float64 `json:"height"`
	StudSize      string  `json:"stud_size"`
	SpacingInches float64 `json:"spacing_inches"`
}

// ProjectGeometry is the structured floor-area and wall record derived from
// blueprint text. TotalArea may exceed the sum of known floor areas when
// extraction under-counts individual floors.
type ProjectGeometry struct {
	TotalArea  float64               `json:"total_area"`
	Floors     int                   `json:"floors"`
	FloorAreas map[FloorName]float64 `json:"floor_areas"`

	ExteriorWall WallSpec `json:"exterior_wall"`
	InteriorWall WallSpec `json:"interior_wall"`

	// Confidence is 0-1; lower when areas were defaulted rather than read.
	Confidence float64  `json:"confidence"`
	Notes      []string `json:"notes,omitempty"`
}

// FloorArea returns the recorded area for a floor, or 0 when absent.
func (g ProjectGeometry) FloorArea(f FloorName) float64 {
	return g.FloorAreas[f]
}

// LivableArea sums basement, main and upper floor areas (garage excluded).
func (g ProjectGeometry) LivableArea() float64 {
	return g.FloorArea(FloorBasement) + g.FloorArea(FloorMain) + g.FloorArea(FloorUpper)
}

// perimeterShapeFactor corrects the square-footprint assumption for typical
// non-square house plans.
const perimeterShapeFactor = 1.2

// FootprintPerimeter approximates the perimeter of a floor from its area,
// assuming a roughly rectangular footprint.
func FootprintPerimeter(area float64) float64 {
	if area <= 0 {
		return 0
	}
	return 4 * math.Sqrt(area) * perimeterShapeFactor
}

// MainFootprint returns the main floor area, falling back to an even split
// of the total area across floors when the main floor was not extracted.
func (g ProjectGeometry) MainFootprint() float64 {
	if a := g.FloorArea(FloorMain); a > 0 {
		return a
	}
	if g.Floors > 0 {
		return g.TotalArea / float64(g.Floors)
	}
	return g.TotalArea
}

// UpperFootprint returns the upper floor area, assuming it mirrors the main
// footprint in multi-storey plans when not extracted.
func (g ProjectGeometry) UpperFootprint() float64 {
	if a := g.FloorArea(FloorUpper); a > 0 {
		return a
	}
	if g.Floors > 1 {
		return g.MainFootprint()
	}
	return 0
}

// ExteriorPerimeter sums the estimated perimeters of basement, main and
// upper floors.
func (g ProjectGeometry) ExteriorPerimeter() float64 {
	return FootprintPerimeter(g.FloorArea(FloorBasement)) +
		FootprintPerimeter(g.MainFootprint()) +
		FootprintPerimeter(g.UpperFootprint())
}

// ExteriorWallArea is the total exterior wall surface, perimeter times the
// scheduled wall height.
func (g ProjectGeometry) ExteriorWallArea() float64 {
	return g.ExteriorPerimeter() * g.ExteriorWall.Height
}

// InteriorWallMultiplier estimates interior partition length relative to
// the exterior perimeter, matching typical residential framing density.
const InteriorWallMultiplier = 2.5

// InteriorWallLength estimates total interior partition length as a multiple
// of the exterior perimeter.
func (g ProjectGeometry) InteriorWallLength(multiplier float64) float64 {
	return g.ExteriorPerimeter() * multiplier
}
