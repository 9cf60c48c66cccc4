package metrics

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 生成流程指标收集器，使用独立 Registry
type Collector struct {
	registry *prometheus.Registry

	generationRequests *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	stateTransitions   *prometheus.CounterVec
	streamChunks       prometheus.Counter
	historyWrites      *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.generationRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of settled generation requests",
		},
		[]string{"variant", "mode", "status"},
	)

	c.generationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generation duration from dispatch to settlement in seconds",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"variant"},
	)

	c.stateTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_state_transitions_total",
			Help:      "Total number of orchestrator state transitions",
		},
		[]string{"from", "to"},
	)

	c.streamChunks = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_chunks_total",
			Help:      "Total number of streamed content chunks received",
		},
	)

	c.historyWrites = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_writes_total",
			Help:      "Total number of history writes",
		},
		[]string{"status"},
	)

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordGeneration 记录一次结束的生成
func (c *Collector) RecordGeneration(variant, mode, status string, duration time.Duration) {
	c.generationRequests.WithLabelValues(variant, mode, status).Inc()
	if duration > 0 {
		c.generationDuration.WithLabelValues(variant).Observe(duration.Seconds())
	}
}

// RecordStateTransition 记录状态转换
func (c *Collector) RecordStateTransition(from, to string) {
	c.stateTransitions.WithLabelValues(from, to).Inc()
}

// RecordStreamChunk 记录一个流式片段
func (c *Collector) RecordStreamChunk() {
	c.streamChunks.Inc()
}

// RecordHistoryWrite 记录历史写入结果
func (c *Collector) RecordHistoryWrite(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.historyWrites.WithLabelValues(status).Inc()
}

// =============================================================================
// 📤 导出
// =============================================================================

// Registry 返回底层 Registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics HTTP handler
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteText 以 Prometheus 文本格式输出所有指标
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
