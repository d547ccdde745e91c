// Package pipeline orchestrates one blueprint analysis end to end: read
// the document, derive geometry, compute quantities, resolve prices and
// aggregate the cost breakdown.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/takeoff-cli/internal/config"
	"github.com/sells-group/takeoff-cli/internal/cost"
	"github.com/sells-group/takeoff-cli/internal/docstore"
	"github.com/sells-group/takeoff-cli/internal/estimate"
	"github.com/sells-group/takeoff-cli/internal/geometry"
	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/ocr"
	"github.com/sells-group/takeoff-cli/internal/refine"
)

// Progress checkpoints for the analysis stages. The complete event always
// fires at 100 on success.
const (
	percentReading     = 10
	percentAnalyzing   = 30
	percentCalculating = 50
	percentPricing     = 70
	percentReport      = 90
	percentComplete    = 100
)

const defaultPriceConcurrency = 4

// ProgressFunc receives progress events as the pipeline advances. Percent
// values are non-decreasing. A nil ProgressFunc is valid.
type ProgressFunc func(model.Progress)

// PriceResolver resolves unit prices for a set of materials.
type PriceResolver interface {
	Resolve(ctx context.Context, materialIDs []string) []model.PriceQuote
}

// Pipeline runs blueprint analyses. All dependencies are injected; the
// refiner may be nil when LLM refinement is disabled.
type Pipeline struct {
	cfg        *config.Config
	catalog    *model.Catalog
	docs       docstore.Storage
	extractor  ocr.Extractor
	refiner    *refine.Refiner
	resolver   PriceResolver
	aggregator cost.Aggregator
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	catalog *model.Catalog,
	docs docstore.Storage,
	extractor ocr.Extractor,
	refiner *refine.Refiner,
	resolver PriceResolver,
	aggregator cost.Aggregator,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		catalog:    catalog,
		docs:       docs,
		extractor:  extractor,
		refiner:    refiner,
		resolver:   resolver,
		aggregator: aggregator,
	}
}

// Run executes the full analysis for one request.
func (p *Pipeline) Run(ctx context.Context, req model.AnalysisRequest, report ProgressFunc) (*model.AnalysisResult, error) {
	log := zap.L().Named("pipeline")
	start := time.Now()
	progress := func(stage string, percent int, message string) {
		if report != nil {
			report(model.Progress{Stage: stage, Percent: percent, Message: message})
		}
	}

	// Stage 1: document text.
	progress("reading", percentReading, "reading blueprint document")
	text, pages, err := p.documentText(ctx, req)
	if err != nil {
		return nil, err
	}

	// Stage 2: geometry.
	progress("analyzing", percentAnalyzing, "analyzing floor plan geometry")
	geom := geometry.Extract(text)
	geom = p.refiner.Refine(ctx, text, geom)
	log.Info("geometry derived",
		zap.Float64("total_area", geom.TotalArea),
		zap.Int("floors", geom.Floors),
		zap.Float64("confidence", geom.Confidence),
	)

	// Stage 3: quantities.
	progress("calculating", percentCalculating, "calculating material quantities")
	materials, notes, err := p.selectMaterials(req.MaterialIDs)
	if err != nil {
		return nil, err
	}
	geom.Notes = append(geom.Notes, notes...)
	quantities, err := estimate.Quantities(geom, materials)
	if err != nil {
		return nil, err
	}

	// Stage 4: prices, resolved concurrently per material.
	progress("pricing", percentPricing, "resolving material prices")
	quotes, err := p.resolvePrices(ctx, quantities)
	if err != nil {
		return nil, err
	}

	// Stage 5: cost breakdown.
	progress("report", percentReport, "building cost report")
	taxRate := req.TaxRate
	if taxRate <= 0 {
		taxRate = p.cfg.Analysis.TaxRate
	}
	breakdown, err := p.aggregator.Aggregate(quantities, quotes, taxRate)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: aggregate costs")
	}

	result := &model.AnalysisResult{
		Geometry:  geom,
		Breakdown: breakdown,
		Metadata: model.AnalysisMetadata{
			AnalysisDate: time.Now().UTC(),
			Confidence:   geom.Confidence,
			Notes:        geom.Notes,
			PageCount:    pages,
		},
	}

	progress("complete", percentComplete, "analysis complete")
	log.Info("analysis complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("line_items", len(breakdown.LineItems)),
		zap.Float64("total", breakdown.Total),
	)
	return result, nil
}

func (p *Pipeline) documentText(ctx context.Context, req model.AnalysisRequest) (string, int, error) {
	if req.RawText != "" {
		return req.RawText, 1, nil
	}
	if req.DocumentHandle == "" {
		return "", 0, eris.New("pipeline: request has neither document nor raw text")
	}

	path, err := p.docs.Stage(ctx, req.DocumentHandle)
	if err != nil {
		return "", 0, eris.Wrapf(err, "pipeline: stage document %s", req.DocumentHandle)
	}
	doc, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return "", 0, eris.Wrapf(err, "pipeline: extract text from %s", req.DocumentHandle)
	}
	return doc.Text, doc.Pages, nil
}

// selectMaterials resolves the requested material list against the catalog.
// An empty request means the full catalog. Unknown IDs are skipped with a
// note; a request with no known IDs at all is an error.
func (p *Pipeline) selectMaterials(ids []string) ([]model.Material, []string, error) {
	if len(ids) == 0 {
		ids = p.catalog.IDs()
	}
	materials, unknown := p.catalog.Select(ids)
	if len(materials) == 0 {
		return nil, nil, eris.Errorf("pipeline: no known materials in request %v", ids)
	}

	var notes []string
	for _, id := range unknown {
		notes = append(notes, "unknown material skipped: "+id)
	}
	return materials, notes, nil
}

func (p *Pipeline) resolvePrices(ctx context.Context, quantities []model.QuantityResult) ([]model.PriceQuote, error) {
	concurrency := p.cfg.Analysis.PriceConcurrency
	if concurrency <= 0 {
		concurrency = defaultPriceConcurrency
	}

	quotes := make([]model.PriceQuote, len(quantities))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, q := range quantities {
		g.Go(func() error {
			resolved := p.resolver.Resolve(gCtx, []string{q.MaterialID})
			if len(resolved) != 1 {
				return eris.Errorf("pipeline: no quote for material %q", q.MaterialID)
			}
			mu.Lock()
			quotes[i] = resolved[0]
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return quotes, nil
}
