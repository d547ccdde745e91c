package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCircuitOpen is returned when a call is rejected because the breaker
// is open.
var ErrCircuitOpen = eris.New("resilience: circuit open")

// BreakerConfig controls circuit breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before allowing a
	// probe call. Default: 30s.
	ResetTimeout time.Duration
}

// Breaker is a minimal circuit breaker guarding one external service. After
// FailureThreshold consecutive failures, calls fail fast with ErrCircuitOpen
// until ResetTimeout elapses; the next call is then let through as a probe
// and a success closes the circuit again.
type Breaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	failures    int
	openedAt    time.Time
	nowFunc     func() time.Time
}

// NewBreaker creates a circuit breaker with the given config.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg, nowFunc: time.Now}
}

// Call runs fn through the breaker, preserving its return value.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, ErrCircuitOpen
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	return !b.allow() // allow() is side-effect free until record()
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.cfg.FailureThreshold {
		return true
	}
	// Open; permit a probe once the reset window has passed.
	return b.nowFunc().Sub(b.openedAt) >= b.cfg.ResetTimeout
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures == b.cfg.FailureThreshold {
		b.openedAt = b.nowFunc()
	} else if b.failures > b.cfg.FailureThreshold {
		// Failed probe re-opens the window.
		b.openedAt = b.nowFunc()
	}
}
