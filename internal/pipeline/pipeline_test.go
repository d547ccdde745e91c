package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/takeoff-cli/internal/config"
	"github.com/sells-group/takeoff-cli/internal/cost"
	"github.com/sells-group/takeoff-cli/internal/docstore"
	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/ocr"
	"github.com/sells-group/takeoff-cli/internal/pricing"
)

const sampleBlueprint = `BASEMENT AREA: 1175.82 SQFT
MAIN FLOOR AREA: 1187.51 SQFT
UPPER FLOOR AREA: 1185.70 SQFT
EXTERIOR WALLS: 2x6 @ 16" O.C.
INTERIOR WALLS: 2x4 @ 16" O.C.
WALL HEIGHT: 9'-0" TYPICAL`

type failingAggregator struct {
	err error
}

func (f failingAggregator) Aggregate([]model.QuantityResult, []model.PriceQuote, float64) (model.CostBreakdown, error) {
	return model.CostBreakdown{}, f.err
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()

	catalog, err := model.LoadCatalog()
	require.NoError(t, err)

	docs, err := docstore.NewLocal(t.TempDir(), 1<<20)
	require.NoError(t, err)

	resolver := pricing.NewResolver(catalog.FallbackPrices(), pricing.ResolverOptions{})

	cfg := &config.Config{}
	cfg.Analysis.TaxRate = 0.12
	cfg.Analysis.PriceConcurrency = 4

	return New(cfg, catalog, docs, ocr.Plain{}, nil, resolver, cost.NewAggregator(catalog))
}

func TestRunFromRawText(t *testing.T) {
	p := testPipeline(t)

	var events []model.Progress
	result, err := p.Run(context.Background(),
		model.AnalysisRequest{RawText: sampleBlueprint},
		func(e model.Progress) { events = append(events, e) })
	require.NoError(t, err)

	assert.InDelta(t, 3549.03, result.Geometry.TotalArea, 0.001)
	assert.Equal(t, 3, result.Geometry.Floors)
	assert.NotEmpty(t, result.Breakdown.LineItems)
	assert.Greater(t, result.Breakdown.Subtotal, 0.0)
	assert.InDelta(t, result.Breakdown.Subtotal*0.12, result.Breakdown.Tax, 0.01)
	assert.InDelta(t, result.Breakdown.Subtotal+result.Breakdown.Tax, result.Breakdown.Total, 0.01)
	assert.Equal(t, 1, result.Metadata.PageCount)
	assert.WithinDuration(t, time.Now().UTC(), result.Metadata.AnalysisDate, time.Minute)

	// Every line item carries a price from the fallback tier.
	for _, li := range result.Breakdown.LineItems {
		assert.Equal(t, model.QuoteSourceFallback, li.PriceSource, li.MaterialID)
		assert.Greater(t, li.UnitPrice, 0.0, li.MaterialID)
	}

	// Progress is staged and monotonic, ending at complete.
	require.NotEmpty(t, events)
	last := 0
	for _, e := range events {
		assert.GreaterOrEqual(t, e.Percent, last)
		last = e.Percent
	}
	assert.Equal(t, "complete", events[len(events)-1].Stage)
	assert.Equal(t, 100, events[len(events)-1].Percent)
}

func TestRunFromStoredDocument(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	stored, err := p.docs.Store(ctx, "plan.txt", strings.NewReader(sampleBlueprint), int64(len(sampleBlueprint)))
	require.NoError(t, err)

	result, err := p.Run(ctx, model.AnalysisRequest{DocumentHandle: stored.Handle}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 3549.03, result.Geometry.TotalArea, 0.001)
}

func TestRunMaterialSubset(t *testing.T) {
	p := testPipeline(t)

	result, err := p.Run(context.Background(), model.AnalysisRequest{
		RawText:     sampleBlueprint,
		MaterialIDs: []string{"2x6_studs", "concrete_mix"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, result.Breakdown.LineItems, 2)
	ids := []string{result.Breakdown.LineItems[0].MaterialID, result.Breakdown.LineItems[1].MaterialID}
	assert.ElementsMatch(t, []string{"2x6_studs", "concrete_mix"}, ids)
}

func TestRunUnknownMaterialsSkippedWithNote(t *testing.T) {
	p := testPipeline(t)

	result, err := p.Run(context.Background(), model.AnalysisRequest{
		RawText:     sampleBlueprint,
		MaterialIDs: []string{"2x6_studs", "unobtainium"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, result.Breakdown.LineItems, 1)
	assert.Contains(t, result.Metadata.Notes, "unknown material skipped: unobtainium")
}

func TestRunAllMaterialsUnknown(t *testing.T) {
	p := testPipeline(t)

	_, err := p.Run(context.Background(), model.AnalysisRequest{
		RawText:     sampleBlueprint,
		MaterialIDs: []string{"unobtainium"},
	}, nil)
	require.Error(t, err)
}

func TestRunEmptyRequest(t *testing.T) {
	p := testPipeline(t)

	_, err := p.Run(context.Background(), model.AnalysisRequest{}, nil)
	require.Error(t, err)
}

func TestRunMissingDocument(t *testing.T) {
	p := testPipeline(t)

	_, err := p.Run(context.Background(), model.AnalysisRequest{DocumentHandle: "absent.txt"}, nil)
	require.Error(t, err)
}

func TestRunDefaultTaxRate(t *testing.T) {
	p := testPipeline(t)

	result, err := p.Run(context.Background(), model.AnalysisRequest{RawText: sampleBlueprint}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.12, result.Breakdown.TaxRate, 0.001)

	result, err = p.Run(context.Background(), model.AnalysisRequest{RawText: sampleBlueprint, TaxRate: 0.07}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.07, result.Breakdown.TaxRate, 0.001)
}

func TestRunAggregatorFailure(t *testing.T) {
	p := testPipeline(t)
	p.aggregator = failingAggregator{err: eris.New("ledger offline")}

	_, err := p.Run(context.Background(), model.AnalysisRequest{RawText: sampleBlueprint}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger offline")
}

func TestRunDefaultGeometryOnUnreadableText(t *testing.T) {
	p := testPipeline(t)

	result, err := p.Run(context.Background(), model.AnalysisRequest{RawText: "illegible scan"}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2000, result.Geometry.TotalArea, 0.001)
	assert.Equal(t, 2, result.Geometry.Floors)
	assert.InDelta(t, 0.3, result.Metadata.Confidence, 0.001)
}
