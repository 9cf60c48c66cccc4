package types

import (
	"fmt"
	"strings"
	"time"
)

// Variant 协议变体：同一个用户意图需要按哪种请求/响应形态发给服务商
type Variant string

const (
	// VariantOpenAI 流式对话接口，图片以 markdown 链接形式出现在最终内容中
	VariantOpenAI Variant = "openai"
	// VariantDalle JSON 请求/响应的图片接口，固定尺寸
	VariantDalle Variant = "dalle"
	// VariantGemini JSON 请求/响应的图片接口，固定尺寸
	VariantGemini Variant = "gemini"
)

// AllVariants lists every variant the request builder understands.
var AllVariants = []Variant{VariantOpenAI, VariantDalle, VariantGemini}

// Streaming reports whether the variant uses the incremental transport.
func (v Variant) Streaming() bool {
	return v == VariantOpenAI
}

// FixedSize reports whether the variant carries size as a structured field
// instead of a free-form ratio clause in the prompt.
func (v Variant) FixedSize() bool {
	return v == VariantDalle || v == VariantGemini
}

// ParseVariant 解析变体名称，大小写不敏感
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllVariants {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown protocol variant %q", s)
}

// CustomModel 用户自定义模型记录
type CustomModel struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value string  `json:"value"`
	Type  Variant `json:"type"`
}

// APICredential 单例凭据：bearer key + 固定的 API 地址
type APICredential struct {
	Key       string `json:"key"`
	BaseURL   string `json:"baseUrl"`
	CreatedAt string `json:"createdAt"`
}

// MaskedKey returns the key with everything but the last four characters hidden.
func (c APICredential) MaskedKey() string {
	return MaskKey(c.Key)
}

// MaskKey hides all but the last four characters of a secret.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// HistoryEntry 一次成功生成的记录，最新的排在最前
type HistoryEntry struct {
	ID          string `json:"id"`
	Prompt      string `json:"prompt"`
	URL         string `json:"url"`
	Model       string `json:"model"`
	CreatedAt   string `json:"createdAt"`
	AspectRatio string `json:"aspectRatio"`
}

// Timestamp formats t the way persisted records store creation times.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
