/*
Package transport 实现 OpenAI 兼容图片接口的网络调用。

Client 实现 Adapter：

  - Generate：文生图走 POST /v1/images/generations（JSON），
    图生图走 POST /v1/images/edits（multipart：image、mask、prompt 等）。
  - Stream：POST /v1/chat/completions（stream=true），逐行读取 SSE
    data 帧，把 delta.content 交给 OnChunk，结束时从累计文本中提取
    图片地址交给 OnComplete；上游错误对象转换为结构化 StreamError。

每次请求前都会通过 CredentialSource 读取 bearer key，缺失时返回
ConfigurationError 而不发起请求。可选的 rate.Limiter 限制出站速率。
*/
package transport
