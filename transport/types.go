package transport

import (
	"context"

	"github.com/linkedlist771/magic-image-private/types"
)

// Adapter 执行实际网络调用的传输层
type Adapter interface {
	// Generate 一次性 JSON 请求（dalle / gemini 变体）
	Generate(ctx context.Context, variant types.Variant, req *Request) (*ImagesResponse, error)

	// Stream 流式请求（openai 变体）。立即返回；回调在后台触发：
	// OnChunk 零次或多次，然后 OnComplete 与 OnError 恰好其一
	Stream(ctx context.Context, req *Request, cb StreamCallbacks)
}

// Request 提供方请求
type Request struct {
	Variant     types.Variant
	Model       string
	Prompt      string
	Size        string
	Count       int
	Quality     string
	AspectRatio string

	// SourceImage 编辑主图（data URI）
	SourceImage string
	// SourceImages 流式请求附带的全部参考图（data URI）
	SourceImages []string
	// Mask 编辑蒙版（data URI）
	Mask string
	// Edit 为 true 时走 /v1/images/edits
	Edit bool
}

// ImageItem 单张图片结果，URL 与 B64JSON 至多其一有值
type ImageItem struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ImagesResponse /v1/images/* 的响应
type ImagesResponse struct {
	Created int64       `json:"created"`
	Data    []ImageItem `json:"data"`
}

// StreamCallbacks 流式回调
type StreamCallbacks struct {
	OnChunk    func(text string)
	OnComplete func(imageRef string)
	OnError    func(err error)
}

// CredentialSource 每次请求前读取凭证
type CredentialSource interface {
	APICredential(ctx context.Context) (types.APICredential, bool, error)
}
