package pricing

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/resilience"
)

const defaultCacheSize = 512

// cachedPrice keeps the live fetch time alongside the price so cache hits
// report when the price was actually quoted, not when it was looked up.
type cachedPrice struct {
	price     float64
	fetchedAt time.Time
}

// ResolverOptions configure a Resolver. Zero values get sensible defaults;
// a nil Source disables the live tier entirely.
type ResolverOptions struct {
	Source      Source
	CacheTTL    time.Duration
	CacheSize   int
	LiveTimeout time.Duration
	RatePerSec  float64
	Breaker     resilience.BreakerConfig
}

// Resolver resolves unit prices with three tiers. Cache hits are served
// first; misses go to the live source behind a circuit breaker, a rate
// limiter and a per-call timeout; any live failure degrades to the static
// fallback price. Successful live quotes are written through to the cache.
type Resolver struct {
	source      Source
	fallback    map[string]float64
	cache       *lru.LRU[string, cachedPrice]
	breaker     *resilience.Breaker
	limiter     *rate.Limiter
	liveTimeout time.Duration
	log         *zap.Logger
}

// NewResolver builds a Resolver over the given static fallback prices.
func NewResolver(fallback map[string]float64, opts ResolverOptions) *Resolver {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}
	return &Resolver{
		source:      opts.Source,
		fallback:    fallback,
		cache:       lru.NewLRU[string, cachedPrice](size, nil, opts.CacheTTL),
		breaker:     resilience.NewBreaker(opts.Breaker),
		limiter:     limiter,
		liveTimeout: opts.LiveTimeout,
		log:         zap.L().Named("pricing"),
	}
}

// Resolve produces one quote per material. It never returns an error: every
// material gets a quote, with Source recording which tier served it.
func (r *Resolver) Resolve(ctx context.Context, materialIDs []string) []model.PriceQuote {
	quotes := make([]model.PriceQuote, 0, len(materialIDs))
	for _, id := range materialIDs {
		quotes = append(quotes, r.resolveOne(ctx, id))
	}
	return quotes
}

func (r *Resolver) resolveOne(ctx context.Context, materialID string) model.PriceQuote {
	now := time.Now().UTC()

	if cached, ok := r.cache.Get(materialID); ok {
		return model.PriceQuote{
			MaterialID: materialID,
			UnitPrice:  cached.price,
			Source:     model.QuoteSourceCache,
			FetchedAt:  cached.fetchedAt,
		}
	}

	if r.source != nil {
		price, err := r.fetchLive(ctx, materialID)
		if err == nil {
			r.cache.Add(materialID, cachedPrice{price: price, fetchedAt: now})
			return model.PriceQuote{
				MaterialID: materialID,
				UnitPrice:  price,
				Source:     model.QuoteSourceLive,
				FetchedAt:  now,
			}
		}
		r.log.Warn("live price unavailable, using fallback",
			zap.String("material", materialID),
			zap.Error(err))
	}

	return model.PriceQuote{
		MaterialID: materialID,
		UnitPrice:  r.fallback[materialID],
		Source:     model.QuoteSourceFallback,
		FetchedAt:  now,
	}
}

func (r *Resolver) fetchLive(ctx context.Context, materialID string) (float64, error) {
	return resilience.Call(ctx, r.breaker, func(ctx context.Context) (float64, error) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return 0, err
			}
		}
		if r.liveTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.liveTimeout)
			defer cancel()
		}
		return r.source.FetchPrice(ctx, materialID)
	})
}
