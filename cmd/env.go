package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/takeoff-cli/internal/cost"
	"github.com/sells-group/takeoff-cli/internal/docstore"
	"github.com/sells-group/takeoff-cli/internal/jobs"
	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/ocr"
	"github.com/sells-group/takeoff-cli/internal/pipeline"
	"github.com/sells-group/takeoff-cli/internal/pricing"
	"github.com/sells-group/takeoff-cli/internal/refine"
	"github.com/sells-group/takeoff-cli/internal/store"
	"github.com/sells-group/takeoff-cli/pkg/anthropic"
)

// env holds the wired dependencies shared by the commands. Everything hangs
// off the package-level cfg populated in PersistentPreRunE.
type env struct {
	catalog  *model.Catalog
	docs     docstore.Storage
	store    store.Store
	pipeline *pipeline.Pipeline
}

// initEnv wires the full dependency graph. The store is migrated before any
// command touches it.
func initEnv(ctx context.Context) (*env, error) {
	catalog, err := model.LoadCatalog()
	if err != nil {
		return nil, eris.Wrap(err, "cmd: load material catalog")
	}

	docs, err := docstore.New(cfg.Docs)
	if err != nil {
		return nil, eris.Wrap(err, "cmd: init document store")
	}

	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return nil, eris.Wrap(err, "cmd: init text extractor")
	}

	var refiner *refine.Refiner
	if cfg.Anthropic.Key != "" {
		refiner = refine.New(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic)
	}

	var src pricing.Source
	if cfg.Pricing.LiveEnabled {
		src = pricing.NewSimulatedSource(
			catalog.FallbackPrices(),
			cfg.Pricing.SimulatedJitter,
			time.Duration(cfg.Pricing.SimulatedDelay)*time.Millisecond,
		)
	}
	resolver := pricing.NewResolver(catalog.FallbackPrices(), pricing.ResolverOptions{
		Source:      src,
		CacheTTL:    cfg.Pricing.CacheTTL(),
		CacheSize:   cfg.Pricing.CacheSize,
		LiveTimeout: cfg.Pricing.LiveTimeout(),
		RatePerSec:  cfg.Pricing.LiveRatePerSec,
	})

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "cmd: init job store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "cmd: migrate job store")
	}

	p := pipeline.New(cfg, catalog, docs, extractor, refiner, resolver, cost.NewAggregator(catalog))

	return &env{
		catalog:  catalog,
		docs:     docs,
		store:    st,
		pipeline: p,
	}, nil
}

// runner returns the job runner matching the configured mode.
func (e *env) runner() (jobs.Runner, *jobs.AsyncRunner) {
	if cfg.Jobs.Mode == "async" {
		async := jobs.NewAsync(e.store, e.pipeline, cfg.Jobs)
		return async, async
	}
	return jobs.NewSync(e.store, e.pipeline), nil
}

func (e *env) close() {
	e.store.Close()
}
