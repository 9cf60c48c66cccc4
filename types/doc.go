/*
Package types 提供全局共享的领域记录与错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。generation、transport、
storage 与 cmd 通过它共享协议变体、持久化记录和结构化错误，
避免循环依赖。

# 核心类型

  - Variant            — 协议变体（openai 流式 / dalle / gemini JSON）
  - CustomModel        — 用户自定义模型记录
  - APICredential      — bearer key 与固定 API 地址
  - HistoryEntry       — 生成历史，最新在前
  - Error / ErrorCode  — 结构化错误（校验、配置、传输、存储、忙碌）
  - StreamError        — 流式会话错误，区分结构化与纯文本两种展示
*/
package types
