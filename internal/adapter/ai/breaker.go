package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// BreakerConfig controls when a provider's circuit opens.
type BreakerConfig struct {
	MaxFailures uint32        // consecutive failures before opening
	OpenTimeout time.Duration // how long the circuit stays open
	Interval    time.Duration // closed-state counter reset period
}

// DefaultBreakerConfig is used by the server wiring.
var DefaultBreakerConfig = BreakerConfig{
	MaxFailures: 5,
	OpenTimeout: 30 * time.Second,
	Interval:    time.Minute,
}

// BreakerProvider wraps an LLMProvider with a circuit breaker. An open
// circuit fails fast with gobreaker.ErrOpenState.
type BreakerProvider struct {
	next port.LLMProvider
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next in a circuit breaker.
func WithBreaker(next port.LLMProvider, cfg BreakerConfig) *BreakerProvider {
	st := gobreaker.Settings{
		Name:        next.ProviderName(),
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// A caller hanging up says nothing about the provider's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("llm circuit breaker state", "provider", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerProvider{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// ProviderName returns the wrapped provider's name.
func (b *BreakerProvider) ProviderName() string {
	return b.next.ProviderName()
}

// Complete runs the wrapped Complete through the breaker.
func (b *BreakerProvider) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// Stream runs the wrapped Stream through the breaker. Only the stream set-up
// counts towards the breaker.
func (b *BreakerProvider) Stream(ctx context.Context, req domain.CompletionRequest) (<-chan string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Stream(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(<-chan string), nil
}
