package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// BreakerClient wraps a Doer with per-host circuit breakers so that a down
// registry fails fast instead of burning the retry budget on every call.
type BreakerClient struct {
	doer     Doer
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewBreakerClient creates a circuit breaker wrapper around a Doer.
func NewBreakerClient(d Doer) *BreakerClient {
	return &BreakerClient{
		doer:     d,
		breakers: make(map[string]*circuit.Breaker),
	}
}

// getBreaker returns or creates a circuit breaker for the given host.
func (b *BreakerClient) getBreaker(host string) *circuit.Breaker {
	b.mu.RLock()
	breaker, exists := b.breakers[host]
	b.mu.RUnlock()

	if exists {
		return breaker
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := b.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, resets with exponential backoff
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})

	b.breakers[host] = breaker
	return breaker
}

// GetJSON wraps the underlying Doer's GetJSON with circuit breaker logic.
func (b *BreakerClient) GetJSON(ctx context.Context, reqURL string, out any) error {
	return b.call(ctx, reqURL, func() error {
		return b.doer.GetJSON(ctx, reqURL, out)
	})
}

// Delete wraps the underlying Doer's Delete with circuit breaker logic.
func (b *BreakerClient) Delete(ctx context.Context, reqURL string) error {
	return b.call(ctx, reqURL, func() error {
		return b.doer.Delete(ctx, reqURL)
	})
}

func (b *BreakerClient) call(ctx context.Context, reqURL string, op func() error) error {
	host := hostOf(reqURL)
	breaker := b.getBreaker(host)

	if !breaker.Ready() {
		return fmt.Errorf("circuit breaker open for %s: %w", host, ErrUnavailable)
	}

	var opErr error
	err := breaker.Call(func() error {
		opErr = op()
		// Not-found and auth failures are registry answers, not outages;
		// they must not trip the breaker.
		if errors.Is(opErr, ErrNotFound) || errors.Is(opErr, ErrUnauthorized) {
			return nil
		}
		return opErr
	}, 0)

	if opErr != nil {
		return opErr
	}
	return err
}

// State returns the current state of the circuit breakers, keyed by host.
func (b *BreakerClient) State() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	states := make(map[string]string)
	for host, breaker := range b.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// hostOf extracts a host identifier from a URL for circuit breaker grouping.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
