package types

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DataURIPrefix 内联 PNG 图片的标准前缀
const DataURIPrefix = "data:image/png;base64,"

// EncodeDataURI 把图片字节编码为 base64 data URI
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI 解析 base64 data URI，返回 MIME 类型与原始字节
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI: missing payload")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("unsupported data URI encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return mimeType, data, nil
}

// IsInlineImage 是否为 data:image 内联图片
func IsInlineImage(ref string) bool {
	return strings.HasPrefix(ref, "data:image")
}

// IsImageRef 引用是否可直接展示：http(s) 链接或 data:image 内联图片
func IsImageRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || IsInlineImage(ref)
}
