// Package portalhttp provides the resilient HTTP client used for all
// outbound requests to the Carbon Portal: bounded timeouts, exponential
// backoff retries, a per-endpoint circuit breaker, request-id correlation and
// optional tracing.
package portalhttp

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds circuit breaker settings for one portal endpoint.
type BreakerConfig struct {
	// Name identifies the breaker in logs.
	Name string

	// MaxRequests allowed through in half-open state. Default 1.
	MaxRequests uint32

	// OpenTimeout is the open-state duration before probing again.
	// Default 60s.
	OpenTimeout time.Duration

	// ReadyToTrip decides when to open. Nil uses readyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// readyToTrip opens the breaker after at least 5 requests with a failure
// rate of 50% or more.
func readyToTrip(counts gobreaker.Counts) bool {
	ratio := float64(counts.TotalFailures) / float64(counts.Requests)
	return counts.Requests >= 5 && ratio >= 0.5
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[*result] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 60 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = readyToTrip
	}
	return gobreaker.NewCircuitBreaker[*result](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: cfg.ReadyToTrip,
	})
}
