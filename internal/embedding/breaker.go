package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/metrics"
)

// BreakerSettings configures a BreakerEmbedder.
type BreakerSettings struct {
	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32
	// Interval resets the failure counts while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open before trying again.
	Timeout time.Duration
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerSettings returns the settings used in production.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerEmbedder stops calling a failing provider for a while. Calls rejected by the open
// breaker fail with ErrProviderUnavailable without reaching the provider.
type BreakerEmbedder struct {
	next   Embedder
	cb     *gobreaker.CircuitBreaker[[]float32]
	name   string
	logger *zap.Logger
}

// NewBreakerEmbedder wraps next with a circuit breaker named name.
func NewBreakerEmbedder(next Embedder, name string, settings BreakerSettings, logger *zap.Logger) *BreakerEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]float32](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		// Caller cancellation and blank input say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrEmptyText)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("embedding circuit breaker state change",
				zap.String("name", name),
				zap.String("from", stateToString(from)),
				zap.String("to", stateToString(to)),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})
	return &BreakerEmbedder{next: next, cb: cb, name: name, logger: logger}
}

// Embed calls the wrapped embedder through the breaker.
func (b *BreakerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := b.cb.Execute(func() ([]float32, error) {
		return b.next.Embed(ctx, text)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return v, nil
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	}
}

// State returns the breaker state.
func (b *BreakerEmbedder) State() gobreaker.State {
	return b.cb.State()
}

// Dimensions returns the wrapped embedder's dimension.
func (b *BreakerEmbedder) Dimensions() int {
	return b.next.Dimensions()
}

// Close closes the wrapped embedder.
func (b *BreakerEmbedder) Close() error {
	return b.next.Close()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
