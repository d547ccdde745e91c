// Package pricing resolves material unit prices through a cache, a live
// source and a static fallback tier, in that order. A price is always
// produced; only the source attribution varies.
package pricing

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
)

// Source fetches a current unit price for a material from a live provider.
type Source interface {
	FetchPrice(ctx context.Context, materialID string) (float64, error)
}

// SimulatedSource stands in for a supplier price feed. It returns the base
// price perturbed by a bounded jitter after a short delay, which exercises
// the resolver's timeout and caching paths realistically.
type SimulatedSource struct {
	base   map[string]float64
	jitter float64
	delay  time.Duration
}

// NewSimulatedSource builds a simulated feed over the given base prices.
// Jitter is a fraction of the base price, applied symmetrically.
func NewSimulatedSource(base map[string]float64, jitter float64, delay time.Duration) *SimulatedSource {
	return &SimulatedSource{base: base, jitter: jitter, delay: delay}
}

// FetchPrice returns a jittered price for known materials and an error for
// unknown ones, honoring context cancellation during the simulated delay.
func (s *SimulatedSource) FetchPrice(ctx context.Context, materialID string) (float64, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, eris.Wrap(ctx.Err(), "pricing: fetch price")
		case <-timer.C:
		}
	}

	base, ok := s.base[materialID]
	if !ok {
		return 0, eris.Errorf("pricing: no listing for material %q", materialID)
	}
	spread := 1 + (rand.Float64()*2-1)*s.jitter
	return base * spread, nil
}
