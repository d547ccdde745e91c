// Package geometry derives structured project geometry from raw blueprint
// text. Extraction is pure pattern matching with documented defaults: it
// never fails, so downstream stages always have a usable input.
package geometry

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/takeoff-cli/internal/model"
)

const (
	// DefaultTotalArea and DefaultFloors are used when no recognizable
	// geometry appears in the document.
	DefaultTotalArea = 2000.0
	DefaultFloors    = 2

	// sqftPerFloorEstimate sizes the floor-count estimate when only a total
	// livable figure is present.
	sqftPerFloorEstimate = 1500.0

	defaultWallHeight = 9.0

	confidenceExtracted = 0.7
	confidenceTotalOnly = 0.6
	confidenceDefaulted = 0.3
)

var (
	floorAreaRe  = regexp.MustCompile(`(?i)(basement|main\s*floor|upper\s*floor|garage)\s*(?:area)?\s*:?\s*([\d,]+(?:\.\d+)?)\s*(?:SQFT|sq\.?\s*ft|square\s*feet)`)
	totalAreaRe  = regexp.MustCompile(`(?i)total\s*(?:livable\s*)?(?:space|area)\s*:?\s*([\d,]+(?:\.\d+)?)\s*(?:SQFT|sq\.?\s*ft|square\s*feet)`)
	wallSpecRe   = regexp.MustCompile(`(?i)(exterior|interior)\s*walls?\s*:?\s*(\d+)x(\d+)\s*@\s*(\d+)["']\s*O\.C\.`)
	wallHeightRe = regexp.MustCompile(`(?i)wall\s*height\s*:?\s*(\d+)'(?:-(\d+)")?\s*typical`)
)

// Extract parses blueprint text into a ProjectGeometry. On no recognizable
// pattern it returns the documented default (2000 sq ft over 2 floors) with
// a low-confidence note rather than an error.
func Extract(text string) model.ProjectGeometry {
	g := model.ProjectGeometry{
		FloorAreas:   map[model.FloorName]float64{},
		ExteriorWall: model.WallSpec{StudSize: "2x6", SpacingInches: 16, Height: defaultWallHeight},
		InteriorWall: model.WallSpec{StudSize: "2x4", SpacingInches: 16, Height: defaultWallHeight},
	}

	for _, m := range floorAreaRe.FindAllStringSubmatch(text, -1) {
		area, ok := parseNumber(m[2])
		if !ok {
			continue
		}
		switch normalizeLabel(m[1]) {
		case "basement":
			g.FloorAreas[model.FloorBasement] = area
		case "mainfloor":
			g.FloorAreas[model.FloorMain] = area
		case "upperfloor":
			g.FloorAreas[model.FloorUpper] = area
		case "garage":
			g.FloorAreas[model.FloorGarage] = area
		}
	}

	g.TotalArea = g.LivableArea()
	for _, f := range []model.FloorName{model.FloorBasement, model.FloorMain, model.FloorUpper} {
		if g.FloorArea(f) > 0 {
			g.Floors++
		}
	}
	g.Confidence = confidenceExtracted

	// No per-floor figures: fall back to an explicit total, estimating the
	// floor count from typical storey size.
	if g.TotalArea == 0 {
		if m := totalAreaRe.FindStringSubmatch(text); m != nil {
			if total, ok := parseNumber(m[1]); ok && total > 0 {
				g.TotalArea = total
				g.Floors = int(math.Max(1, math.Ceil(total/sqftPerFloorEstimate)))
				g.Confidence = confidenceTotalOnly
				g.Notes = append(g.Notes,
					fmt.Sprintf("floor count estimated as %d from total livable space", g.Floors))
			}
		}
	}

	// Nothing recognizable at all: documented defaults.
	if g.TotalArea == 0 {
		g.TotalArea = DefaultTotalArea
		g.Floors = DefaultFloors
		g.Confidence = confidenceDefaulted
		g.Notes = append(g.Notes, "no floor areas found in document, default geometry applied")
	}

	height := defaultWallHeight
	if m := wallHeightRe.FindStringSubmatch(text); m != nil {
		feet, _ := strconv.ParseFloat(m[1], 64)
		height = feet
		if m[2] != "" {
			inches, _ := strconv.ParseFloat(m[2], 64)
			height += inches / 12
		}
	}
	g.ExteriorWall.Height = height
	g.InteriorWall.Height = height

	for _, m := range wallSpecRe.FindAllStringSubmatch(text, -1) {
		spacing, _ := strconv.ParseFloat(m[4], 64)
		if spacing <= 0 {
			continue
		}
		spec := model.WallSpec{
			StudSize:      m[2] + "x" + m[3],
			SpacingInches: spacing,
			Height:        height,
		}
		if strings.EqualFold(m[1], "exterior") {
			g.ExteriorWall = spec
		} else {
			g.InteriorWall = spec
		}
	}

	// Estimated wall lengths from floor footprints; these are geometry-level
	// approximations, noted as such.
	g.ExteriorWall.Length = round1(g.ExteriorPerimeter())
	g.InteriorWall.Length = round1(g.InteriorWallLength(model.InteriorWallMultiplier))
	g.Notes = append(g.Notes,
		"wall lengths estimated from floor areas",
		fmt.Sprintf("interior wall length estimated at %.1fx exterior perimeter", model.InteriorWallMultiplier),
	)

	return g
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// parseNumber strips thousands separators before parsing.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
