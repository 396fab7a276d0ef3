package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/graph"
	"github.com/poiesic/policyrag/index"
	"github.com/poiesic/policyrag/rerank"
	"github.com/poiesic/policyrag/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.QueriesTotal.WithLabelValues("prefix").Inc()
	m.RecordHTTPRequest("/v1/retrieve", "200", 10*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "policyrag_queries_total")
	assert.Contains(t, names, "policyrag_http_requests_total")
	assert.Contains(t, names, "policyrag_index_chunks")

	// A second registration on the same registry would collide.
	assert.Panics(t, func() { New(reg) })
}

func TestNew_Unregistered(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}

func TestMonitor(t *testing.T) {
	m := New(prometheus.NewRegistry())
	mon := m.Monitor()

	mon.Start("travel approval", core.VariantPrefix)
	mon.AfterDense(make([]core.RankedCandidate, 4), 2*time.Millisecond)
	mon.AfterRerank(nil, fmt.Errorf("%w: 60s", rerank.ErrWorkerTimeout), time.Second)
	mon.AfterGraph([]graph.Chain{{Triples: []int{0, 1}}, {Triples: []int{1}}}, []int{1, 2}, time.Millisecond)
	mon.AfterFusion(nil)
	mon.Finish(make([]core.Result, 3), nil, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("prefix")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RerankFallbacks.WithLabelValues("timeout")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ResultsTotal))
	assert.Equal(t, 4, testutil.CollectAndCount(m.StageDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.GraphChains))

	t.Run("successful rerank is not a fallback", func(t *testing.T) {
		mon.AfterRerank(nil, nil, time.Millisecond)
		assert.Equal(t, 1, testutil.CollectAndCount(m.RerankFallbacks))
	})
}

func TestMonitor_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"embedding", fmt.Errorf("%w: refused", search.ErrEmbeddingFailed), "embedding"},
		{"variant", fmt.Errorf("%w: keyword", index.ErrVariantMissing), "variant"},
		{"canceled", context.Canceled, "canceled"},
		{"deadline", context.DeadlineExceeded, "canceled"},
		{"other", errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(prometheus.NewRegistry())
			m.Monitor().Finish(nil, tt.err, time.Millisecond)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryErrors.WithLabelValues(tt.kind)))
			assert.Equal(t, 0.0, testutil.ToFloat64(m.ResultsTotal))
		})
	}
}

func TestUpdateIndexStats(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.UpdateIndexStats(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.IndexChunks))

	m.UpdateIndexStats(&core.Manifest{ChunkCount: 120, TripleCount: 45})
	assert.Equal(t, 120.0, testutil.ToFloat64(m.IndexChunks))
	assert.Equal(t, 45.0, testutil.ToFloat64(m.IndexTriples))
}
