package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRankingPass(t *testing.T) {
	tests := []struct {
		outcome string
		items   int
	}{
		{OutcomeSuccess, 42},
		{OutcomeEmptyCatalog, 0},
		{OutcomeProviderUnavailable, 0},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			before := testutil.ToFloat64(RankingPasses.WithLabelValues(tt.outcome))
			RecordRankingPass(tt.outcome, 10*time.Millisecond, tt.items)
			after := testutil.ToFloat64(RankingPasses.WithLabelValues(tt.outcome))
			if after-before != 1 {
				t.Errorf("ranking passes %s increased by %v, want 1", tt.outcome, after-before)
			}
		})
	}
}

func TestRecordDelivery(t *testing.T) {
	delivered := testutil.ToFloat64(ItemsDelivered)
	stale := testutil.ToFloat64(StaleReferences)

	RecordDelivery(false)
	RecordDelivery(true)

	if got := testutil.ToFloat64(ItemsDelivered) - delivered; got != 2 {
		t.Errorf("delivered delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(StaleReferences) - stale; got != 1 {
		t.Errorf("stale delta = %v, want 1", got)
	}
}

func TestRecordEmbedding(t *testing.T) {
	ok := testutil.ToFloat64(EmbeddingRequests.WithLabelValues("mock", "success"))
	failed := testutil.ToFloat64(EmbeddingRequests.WithLabelValues("mock", "failure"))

	RecordEmbedding("mock", time.Millisecond, nil)
	RecordEmbedding("mock", time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(EmbeddingRequests.WithLabelValues("mock", "success")) - ok; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(EmbeddingRequests.WithLabelValues("mock", "failure")) - failed; got != 1 {
		t.Errorf("failure delta = %v, want 1", got)
	}
}

func TestRecordCatalogImport(t *testing.T) {
	RecordCatalogImport(17, nil)
	if got := testutil.ToFloat64(CatalogSize); got != 17 {
		t.Errorf("catalog size = %v, want 17", got)
	}
	RecordCatalogImport(0, errors.New("bad dump"))
	if got := testutil.ToFloat64(CatalogSize); got != 17 {
		t.Errorf("failed import changed catalog size to %v", got)
	}
}

func TestMetricGathering(t *testing.T) {
	RecordAPIRequest("GET", "/health", 200, time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}
