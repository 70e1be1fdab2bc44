// Package embedding turns profile text into vectors via Gemini, a local ONNX model, or a
// deterministic mock, behind a cache and a circuit breaker.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/hyperjump/matchfeed/internal/models"
)

var (
	// ErrProviderUnavailable is returned when the embedding provider cannot serve the request.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrRateLimited is returned when the provider rejects the request for quota reasons.
	ErrRateLimited = errors.New("embedding provider rate limited")
	// ErrEmptyText is returned for blank input.
	ErrEmptyText = errors.New("embedding text is empty")
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}

// ProfileText returns the text embedded for a profile: the ranking attributes as JSON with
// keys sorted at every level, so equal profiles always embed identically.
func ProfileText(p *models.Profile) (string, error) {
	input := p.RankingInput()
	if len(input) == 0 {
		return "", ErrEmptyText
	}
	// Map keys are emitted in sorted order.
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	return string(data), nil
}
