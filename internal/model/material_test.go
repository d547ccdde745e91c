package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	t.Parallel()
	c, err := LoadCatalog()
	require.NoError(t, err)

	ids := c.IDs()
	assert.NotEmpty(t, ids)

	for _, id := range ids {
		m, ok := c.Get(id)
		require.True(t, ok)
		assert.Equal(t, id, m.ID)
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.Unit)
		assert.GreaterOrEqual(t, m.WasteFactor, 0.0)
		assert.Less(t, m.WasteFactor, 1.0)
		assert.Greater(t, m.FallbackPrice, 0.0)
	}
}

func TestCatalog_KnownEntries(t *testing.T) {
	t.Parallel()
	c, err := LoadCatalog()
	require.NoError(t, err)

	studs, ok := c.Get("2x6_studs")
	require.True(t, ok)
	assert.Equal(t, FormulaExteriorStuds, studs.Formula)
	assert.Equal(t, 12.50, studs.FallbackPrice)
	assert.Equal(t, 0.10, studs.WasteFactor)

	paint, ok := c.Get("interior_paint")
	require.True(t, ok)
	assert.Equal(t, FormulaPaintInterior, paint.Formula)
	assert.Equal(t, 350.0, paint.Coverage)

	// Entries without a formula stay in the catalog; the estimator skips them.
	rebar, ok := c.Get("rebar")
	require.True(t, ok)
	assert.Empty(t, rebar.Formula)
}

func TestCatalog_Select(t *testing.T) {
	t.Parallel()
	c, err := LoadCatalog()
	require.NoError(t, err)

	materials, unknown := c.Select([]string{"2x4_studs", "no_such_material", "drywall_1_2"})
	require.Len(t, materials, 2)
	assert.Equal(t, "2x4_studs", materials[0].ID)
	assert.Equal(t, "drywall_1_2", materials[1].ID)
	assert.Equal(t, []string{"no_such_material"}, unknown)
}

func TestJobStatus_Terminal(t *testing.T) {
	t.Parallel()
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusActive.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestProjectGeometry_Areas(t *testing.T) {
	t.Parallel()
	g := ProjectGeometry{
		TotalArea: 3549.03,
		FloorAreas: map[FloorName]float64{
			FloorBasement: 1175.82,
			FloorMain:     1187.51,
			FloorUpper:    1185.70,
			FloorGarage:   624.42,
		},
	}
	assert.InDelta(t, 3549.03, g.LivableArea(), 0.001)
	assert.Equal(t, 624.42, g.FloorArea(FloorGarage))
	assert.Zero(t, ProjectGeometry{}.FloorArea(FloorMain))
}
