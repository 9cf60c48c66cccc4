package generation

import (
	"regexp"
	"strings"

	"github.com/linkedlist771/magic-image-private/transport"
	"github.com/linkedlist771/magic-image-private/types"
)

// Normalize 把提供方结果转换为有序的图片引用列表：优先 http(s) 或 data:image 形式的 url，
// 否则取 b64_json 并在缺少 data:image 前缀时补上 PNG 前缀；两者都不可用的项被过滤
func Normalize(items []transport.ImageItem) []string {
	refs := make([]string, 0, len(items))
	for _, it := range items {
		if ref := normalizeItem(it); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

func normalizeItem(it transport.ImageItem) string {
	if u := strings.TrimSpace(it.URL); types.IsImageRef(u) {
		return u
	}
	b64 := strings.TrimSpace(it.B64JSON)
	if b64 == "" {
		return ""
	}
	if IsDataURI(b64) {
		return b64
	}
	return types.DataURIPrefix + b64
}

var bareBase64 = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)

// NormalizeRef 归一化流式响应中提取到的单个引用：http(s) 与 data:image 原样保留，
// 裸 base64 补上 PNG 前缀，其余（相对路径等）返回空串
func NormalizeRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if types.IsImageRef(ref) {
		return ref
	}
	if bareBase64.MatchString(ref) {
		return types.DataURIPrefix + ref
	}
	return ""
}

// IsDataURI 是否为内联图片
func IsDataURI(ref string) bool {
	return types.IsInlineImage(ref)
}

// DecodeDataURI 解码内联图片，返回字节与 MIME 类型
func DecodeDataURI(ref string) ([]byte, string, error) {
	mimeType, data, err := types.ParseDataURI(ref)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}
