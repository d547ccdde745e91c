package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/takeoff-cli/internal/model"
)

// testGeometry is a single-storey 1600 sq ft plan. The derived figures used
// in expectations below: exterior perimeter 192 ft, exterior wall area
// 1728 sq ft, interior wall length 480 ft.
func testGeometry() model.ProjectGeometry {
	return model.ProjectGeometry{
		TotalArea: 1600,
		Floors:    1,
		FloorAreas: map[model.FloorName]float64{
			model.FloorMain: 1600,
		},
		ExteriorWall: model.WallSpec{Length: 192, Height: 9, StudSize: "2x6", SpacingInches: 16},
		InteriorWall: model.WallSpec{Length: 480, Height: 9, StudSize: "2x4", SpacingInches: 16},
	}
}

func quantityFor(t *testing.T, g model.ProjectGeometry, m model.Material) float64 {
	t.Helper()
	results, err := Quantities(g, []model.Material{m})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, m.ID, results[0].MaterialID)
	assert.Equal(t, m.Unit, results[0].Unit)
	return results[0].Quantity
}

func TestQuantitiesFormulas(t *testing.T) {
	g := testGeometry()

	tests := []struct {
		name     string
		material model.Material
		want     float64
	}{
		{
			// 192*(12/16) + 192/8 = 168, +10% waste, ceiling
			name:     "exterior studs",
			material: model.Material{ID: "2x6_studs", Unit: "each", WasteFactor: 0.10, Formula: model.FormulaExteriorStuds},
			want:     185,
		},
		{
			// 480*(12/16) + 480/8 = 420, +10% waste
			name:     "interior studs",
			material: model.Material{ID: "2x4_studs", Unit: "each", WasteFactor: 0.10, Formula: model.FormulaInteriorStuds},
			want:     462,
		},
		{
			// (480*9*2 + 1728)/32 = 324, +15% waste
			name:     "sheet goods",
			material: model.Material{ID: "drywall_1_2", Unit: "sheet", WasteFactor: 0.15, Formula: model.FormulaSheetGoods},
			want:     373,
		},
		{
			// 1600*1.25/32 = 62.5, +10% waste
			name:     "roof sheathing",
			material: model.Material{ID: "osb_7_16", Unit: "sheet", WasteFactor: 0.10, Formula: model.FormulaRoofSheet},
			want:     69,
		},
		{
			// 480*9*2/350 = 24.69, +5% waste
			name:     "interior paint",
			material: model.Material{ID: "interior_paint", Unit: "gallon", WasteFactor: 0.05, Coverage: 350, Formula: model.FormulaPaintInterior},
			want:     26,
		},
		{
			// 1728/300 = 5.76, +8% waste
			name:     "exterior paint",
			material: model.Material{ID: "exterior_paint", Unit: "gallon", WasteFactor: 0.08, Coverage: 300, Formula: model.FormulaPaintExterior},
			want:     7,
		},
		{
			// no basement, slab under main footprint: 1600/81 = 19.75, +5% waste
			name:     "concrete slab",
			material: model.Material{ID: "concrete_mix", Unit: "cubic yard", WasteFactor: 0.05, Formula: model.FormulaConcreteSlab},
			want:     21,
		},
		{
			// 1728 sq ft of exterior cavity, +10% waste
			name:     "exterior insulation",
			material: model.Material{ID: "fiberglass_r21", Unit: "sq ft", WasteFactor: 0.10, Formula: model.FormulaInsulationExterior},
			want:     1901,
		},
		{
			// 480*9 = 4320, +10% waste
			name:     "interior insulation",
			material: model.Material{ID: "fiberglass_r13", Unit: "sq ft", WasteFactor: 0.10, Formula: model.FormulaInsulationInterior},
			want:     4752,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quantityFor(t, g, tt.material), 0.001)
		})
	}
}

func TestQuantitiesBasementSlab(t *testing.T) {
	g := testGeometry()
	g.FloorAreas[model.FloorBasement] = 1175.82

	m := model.Material{ID: "concrete_mix", Unit: "cubic yard", WasteFactor: 0.05, Formula: model.FormulaConcreteSlab}

	// 1175.82/81 = 14.52, +5% waste, ceiling
	assert.InDelta(t, 16, quantityFor(t, g, m), 0.001)
}

func TestQuantitiesSkipsFormulaless(t *testing.T) {
	materials := []model.Material{
		{ID: "rebar", Unit: "each", FallbackPrice: 25},
		{ID: "2x6_studs", Unit: "each", WasteFactor: 0.10, Formula: model.FormulaExteriorStuds},
	}

	results, err := Quantities(testGeometry(), materials)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2x6_studs", results[0].MaterialID)
}

func TestQuantitiesUnknownFormula(t *testing.T) {
	materials := []model.Material{
		{ID: "mystery", Unit: "each", Formula: model.FormulaTag("phlogiston")},
	}

	_, err := Quantities(testGeometry(), materials)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phlogiston")
}

func TestQuantitiesMissingCoverage(t *testing.T) {
	m := model.Material{ID: "interior_paint", Unit: "gallon", WasteFactor: 0.05, Formula: model.FormulaPaintInterior}

	assert.Zero(t, quantityFor(t, testGeometry(), m))
}

func TestQuantitiesZeroSpacing(t *testing.T) {
	g := testGeometry()
	g.ExteriorWall.SpacingInches = 0

	m := model.Material{ID: "2x6_studs", Unit: "each", WasteFactor: 0.10, Formula: model.FormulaExteriorStuds}

	assert.Zero(t, quantityFor(t, g, m))
}

func TestQuantitiesCatalogCoversAllFormulas(t *testing.T) {
	catalog, err := model.LoadCatalog()
	require.NoError(t, err)

	materials, unknown := catalog.Select(catalog.IDs())
	require.Empty(t, unknown)

	results, err := Quantities(testGeometry(), materials)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Quantity, 0.0, r.MaterialID)
	}
}
