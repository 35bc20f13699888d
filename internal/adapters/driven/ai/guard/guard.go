// Package guard wraps AI capabilities with a rate limiter and a circuit breaker.
//
// A tripped breaker fails calls fast with domain.ErrCapabilityUnavailable, which
// the indexing retry treats as permanent. Invalid input and caller cancellation
// do not count as capability failures.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/logger"
	"github.com/custodia-labs/medrag/internal/telemetry"
)

// Default breaker values used when settings leave them unset.
const (
	DefaultBreakerTimeout = 30 * time.Second
	halfOpenRequests      = 1
)

// Config configures one guard.
type Config struct {
	// RequestsPerSecond limits calls; 0 disables limiting.
	RequestsPerSecond float64

	// Burst is the limiter bucket size (minimum 1).
	Burst int

	// BreakerFailures is the number of consecutive failures that opens the breaker; 0 disables it.
	BreakerFailures uint32

	// BreakerTimeout is how long an open breaker waits before probing.
	BreakerTimeout time.Duration

	// Metrics records breaker transitions. May be nil.
	Metrics *telemetry.Metrics
}

// ConfigFrom maps resilience settings to a guard configuration.
func ConfigFrom(s domain.ResilienceSettings, m *telemetry.Metrics) Config {
	return Config{
		RequestsPerSecond: s.RequestsPerSecond,
		Burst:             s.Burst,
		BreakerFailures:   s.BreakerFailures,
		BreakerTimeout:    s.BreakerTimeout,
		Metrics:           m,
	}
}

// Enabled returns true if the config limits or breaks anything.
func (c Config) Enabled() bool {
	return c.RequestsPerSecond > 0 || c.BreakerFailures > 0
}

// Guard runs calls through the limiter and the breaker.
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New creates a guard for the named capability.
func New(name string, cfg Config) *Guard {
	g := &Guard{name: name}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	if cfg.BreakerFailures > 0 {
		timeout := cfg.BreakerTimeout
		if timeout <= 0 {
			timeout = DefaultBreakerTimeout
		}
		threshold := cfg.BreakerFailures
		metrics := cfg.Metrics
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: halfOpenRequests,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: countsAsSuccess,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
				metrics.RecordBreakerState(name, to.String())
			},
		})
	}

	return g
}

// countsAsSuccess keeps caller-side errors from tripping the breaker.
func countsAsSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, context.Canceled)
}

// Do waits for the limiter then runs fn through the breaker.
func (g *Guard) Do(ctx context.Context, fn func() error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit wait: %w", g.name, err)
		}
	}

	if g.breaker == nil {
		return fn()
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %w", g.name, domain.ErrCapabilityUnavailable, err)
	}
	return err
}

// State reports the breaker state, or "disabled".
func (g *Guard) State() string {
	if g.breaker == nil {
		return "disabled"
	}
	return g.breaker.State().String()
}
