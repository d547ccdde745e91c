package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/takeoff-cli/internal/config"
	"github.com/sells-group/takeoff-cli/internal/docstore"
	"github.com/sells-group/takeoff-cli/internal/store"
)

const defaultCleanupEvery = 30 * time.Minute

// Janitor enforces the retention window: terminal jobs and their uploaded
// documents are purged once they age past it.
type Janitor struct {
	store store.Store
	docs  docstore.Storage
	cfg   config.JobsConfig
	log   *zap.Logger
}

// NewJanitor creates a Janitor; docs may be nil when uploads are not used.
func NewJanitor(st store.Store, docs docstore.Storage, cfg config.JobsConfig) *Janitor {
	return &Janitor{
		store: st,
		docs:  docs,
		cfg:   cfg,
		log:   zap.L().Named("janitor"),
	}
}

// Run sweeps periodically until ctx is canceled. The first sweep happens
// immediately so restarts do not defer overdue cleanup.
func (j *Janitor) Run(ctx context.Context) {
	every := time.Duration(j.cfg.CleanupEveryMins) * time.Minute
	if every <= 0 {
		every = defaultCleanupEvery
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	j.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.cfg.Retention())

	purged, err := j.store.PurgeTerminalBefore(ctx, cutoff)
	if err != nil {
		j.log.Warn("job purge failed", zap.Error(err))
	} else if purged > 0 {
		j.log.Info("purged terminal jobs", zap.Int("count", purged))
	}

	if j.docs == nil {
		return
	}
	removed, err := j.docs.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		j.log.Warn("document purge failed", zap.Error(err))
	} else if removed > 0 {
		j.log.Info("purged stored documents", zap.Int("count", removed))
	}
}
