package embedding

import (
	"context"
	"math"
	"sync"

	"github.com/hyperjump/matchfeed/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline runs. It returns a
// unit-length vector derived from the text hash so the same text always gets the same
// embedding.
type MockEmbedder struct {
	dimensions int

	mu    sync.Mutex
	err   error
	calls int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// SetError makes every following Embed call fail with err; nil restores normal behavior.
func (e *MockEmbedder) SetError(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

// Calls returns how many times Embed was invoked.
func (e *MockEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
