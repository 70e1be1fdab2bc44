package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hyperjump/matchfeed/internal/metrics"
)

const defaultGeminiModel = "text-embedding-004"

type embedContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)

// GeminiEmbedder calls the Gemini embedding API.
type GeminiEmbedder struct {
	embed      embedContentFunc
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewGeminiEmbedder creates an embedder for the Gemini API backend. dimensions is requested
// as the output dimensionality when positive.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimensions int, logger *zap.Logger) (*GeminiEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiEmbedder{
		embed:      client.Models.EmbedContent,
		model:      model,
		dimensions: dimensions,
		logger:     logger,
	}, nil
}

// Embed returns the embedding of text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	var cfg *genai.EmbedContentConfig
	if g.dimensions > 0 {
		dims := int32(g.dimensions)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}

	start := time.Now()
	resp, err := g.embed(ctx, g.model, genai.Text(text), cfg)
	metrics.RecordEmbedding("gemini", time.Since(start), err)
	if err != nil {
		g.logger.Warn("gemini embed content failed", zap.String("model", g.model), zap.Error(err))
		return nil, classifyError(err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: gemini api returned no embedding", ErrProviderUnavailable)
	}
	values := resp.Embeddings[0].Values
	out := make([]float32, len(values))
	copy(out, values)
	return out, nil
}

// Dimensions returns the requested output dimensionality.
func (g *GeminiEmbedder) Dimensions() int {
	return g.dimensions
}

// Close is a no-op; the genai client holds no resources that need releasing.
func (g *GeminiEmbedder) Close() error {
	return nil
}

// classifyError maps provider failures onto ErrRateLimited or ErrProviderUnavailable.
// Caller cancellation is returned unchanged.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if code, ok := apiErrorCode(err); ok && code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}
