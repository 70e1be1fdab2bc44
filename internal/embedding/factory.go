package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/config"
)

// Provider names accepted by NewEmbedder.
const (
	ProviderGemini = "gemini"
	ProviderONNX   = "onnx"
	ProviderMock   = "mock"
)

// NewEmbedder builds the configured provider. Remote providers sit behind a circuit breaker;
// every provider is wrapped in an LRU cache when cfg.CacheSize is positive.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var e Embedder
	switch cfg.Provider {
	case ProviderGemini, "":
		g, err := NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dimensions, logger)
		if err != nil {
			return nil, err
		}
		e = NewBreakerEmbedder(g, "gemini-embeddings", DefaultBreakerSettings(), logger)
	case ProviderONNX:
		o, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		e = o
	case ProviderMock:
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: gemini, onnx, mock)", cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	logger.Debug("embedder ready", zap.String("provider", cfg.Provider), zap.Int("dimensions", e.Dimensions()))
	return e, nil
}
