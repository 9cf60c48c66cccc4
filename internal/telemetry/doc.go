// Package telemetry 负责 OpenTelemetry SDK 的初始化与关闭。
// 启用时生成链路的 span 通过 OTLP gRPC 导出；禁用时保留全局 noop 实现，
// 编排器的 span 调用开销可以忽略。
package telemetry
