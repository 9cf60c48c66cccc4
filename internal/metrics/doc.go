/*
包 metrics 提供基于 Prometheus 的生成流程指标。

Collector 使用独立的 Registry（不污染全局默认 Registry），记录：

  - generation_requests_total{variant,mode,status}
  - generation_duration_seconds{variant}
  - generation_state_transitions_total{from,to}
  - stream_chunks_total
  - history_writes_total{status}

Handler 暴露标准 /metrics 接口，WriteText 输出文本格式供 CLI 使用。
*/
package metrics
