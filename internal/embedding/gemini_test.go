package embedding

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeEmbedAPI struct {
	resp   *genai.EmbedContentResponse
	err    error
	model  string
	text   string
	config *genai.EmbedContentConfig
}

func (f *fakeEmbedAPI) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.text = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func newTestGemini(api *fakeEmbedAPI, dims int) *GeminiEmbedder {
	return &GeminiEmbedder{
		embed:      api.EmbedContent,
		model:      defaultGeminiModel,
		dimensions: dims,
		logger:     zap.NewNop(),
	}
}

func TestGeminiEmbedder_Embed(t *testing.T) {
	api := &fakeEmbedAPI{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
	}}
	g := newTestGemini(api, 3)

	v, err := g.Embed(context.Background(), `{"role":"backend"}`)
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 3 || v[2] != 0.3 {
		t.Errorf("vector = %v", v)
	}
	if api.model != "text-embedding-004" || api.text != `{"role":"backend"}` {
		t.Errorf("request = model %q text %q", api.model, api.text)
	}
	if api.config == nil || api.config.OutputDimensionality == nil || *api.config.OutputDimensionality != 3 {
		t.Errorf("output dimensionality not requested: %+v", api.config)
	}
}

func TestGeminiEmbedder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"quota", genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}, ErrRateLimited},
		{"server error", genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}, ErrProviderUnavailable},
		{"network", errors.New("dial tcp: connection refused"), ErrProviderUnavailable},
		{"deadline", context.DeadlineExceeded, ErrProviderUnavailable},
		{"cancelled", context.Canceled, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGemini(&fakeEmbedAPI{err: tt.err}, 3)
			_, err := g.Embed(context.Background(), "text")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGeminiEmbedder_EmptyResponseAndInput(t *testing.T) {
	g := newTestGemini(&fakeEmbedAPI{resp: &genai.EmbedContentResponse{}}, 3)
	if _, err := g.Embed(context.Background(), "text"); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("empty response err = %v, want ErrProviderUnavailable", err)
	}
	if _, err := g.Embed(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("blank input err = %v, want ErrEmptyText", err)
	}
}
