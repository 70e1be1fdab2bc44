package profile

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hyperjump/matchfeed/pkg/utils"
)

const defaultModel = "gemini-2.5-flash"

//go:embed prompt.txt
var systemPrompt string

type generateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiExtractor extracts profiles with a Gemini model in JSON mode.
type GeminiExtractor struct {
	generate generateContentFunc
	model    string
	logger   *zap.Logger
}

// NewGeminiExtractor creates an extractor for the Gemini API backend.
func NewGeminiExtractor(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiExtractor, error) {
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
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiExtractor{generate: client.Models.GenerateContent, model: model, logger: logger}, nil
}

// Extract sends rawText to the model and parses its reply.
func (g *GeminiExtractor) Extract(ctx context.Context, rawText string) (*ExtractedProfile, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, fmt.Errorf("%w: empty resume text", ErrCannotParse)
	}

	temperature := float32(0)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
	}
	resp, err := g.generate(ctx, g.model, genai.Text(rawText), cfg)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		g.logger.Warn("profile extraction request failed", zap.String("model", g.model), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCannotParse, err)
	}

	var builder strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part == nil || part.Thought {
					continue
				}
				builder.WriteString(part.Text)
			}
		}
	}
	reply := builder.String()

	out, err := parseExtracted(reply)
	if err != nil {
		g.logger.Warn("unusable profile extraction reply",
			zap.String("model", g.model),
			zap.String("reply", utils.Truncate(reply, 200)),
			zap.Error(err),
		)
		return nil, err
	}
	g.logger.Debug("profile extracted",
		zap.Int("info_keys", len(out.Info)),
		zap.Int("job_keys", len(out.Preferences)),
	)
	return out, nil
}
