package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector.Registry())
	assert.NotNil(t, collector.generationRequests)
	assert.NotNil(t, collector.generationDuration)
	assert.NotNil(t, collector.streamChunks)
	assert.NotNil(t, collector.historyWrites)
}

func TestCollector_RecordGeneration(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordGeneration("openai", "text-to-image", "success", 2*time.Second)
	collector.RecordGeneration("openai", "text-to-image", "success", time.Second)
	collector.RecordGeneration("dalle", "image-to-image", "failed", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.generationRequests.WithLabelValues("openai", "text-to-image", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.generationRequests.WithLabelValues("dalle", "image-to-image", "failed")))
	// 零耗时不进入直方图
	assert.Equal(t, 1, testutil.CollectAndCount(collector.generationDuration))
}

func TestCollector_StreamAndHistory(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordStreamChunk()
	collector.RecordStreamChunk()
	collector.RecordHistoryWrite(nil)
	collector.RecordHistoryWrite(errors.New("quota"))
	collector.RecordStateTransition("idle", "validating")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.streamChunks))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.historyWrites.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.historyWrites.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.stateTransitions.WithLabelValues("idle", "validating")))
}

func TestCollector_Export(t *testing.T) {
	ns := nextTestNamespace()
	collector := NewCollector(ns, nil)
	collector.RecordStreamChunk()

	var buf bytes.Buffer
	require.NoError(t, collector.WriteText(&buf))
	assert.Contains(t, buf.String(), ns+"_stream_chunks_total 1")

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ns+"_stream_chunks_total")
}
